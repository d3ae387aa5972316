// Package hub implements the coordinator that owns each document's
// authoritative version and change log, accepts commits from sessions,
// transforms them against any changes committed concurrently, and
// broadcasts the result to every other session watching that document.
//
// Grounded on eventsync.SyncServiceImpl: a map keyed by document id
// guarded by a mutex, zap structured logging at state transitions, and
// watcher teardown, which Hub exposes per session as Unwatch.
// Where SyncServiceImpl fans events out from an external change feed,
// Hub is itself the point where concurrent changes are resolved, since
// this module has no external CRDT store behind it.
package hub

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/homveloper/otdoc/objectop"
	"github.com/homveloper/otdoc/oterr"
)

// Transport delivers a committed change to one connected session. It is
// implemented by the transport package's websocket envelope codec and by
// any in-process test double.
type Transport interface {
	// Deliver pushes a change, now at the given version, to the far
	// side of the transport. originSessionID identifies the committer,
	// so a transport can skip echoing a change back to its own author.
	// catchup is non-nil only on the delivery to the committer of a
	// rebase-path commit: the concurrent changes it missed, transformed
	// past its own change, which it must still apply locally to reach
	// version.
	Deliver(ctx context.Context, version int64, change objectop.Change, originSessionID string, catchup []objectop.Change) error
}

// document holds the authoritative state for one document: its current
// value, version and the log of changes that produced it from version
// zero. The invariant version == len(log) holds at every observation
// point outside of commit's critical section.
type document struct {
	mu        sync.Mutex
	state     objectop.Document
	version   int64
	log       []objectop.Change
	watchers  map[string]Transport // sessionID -> transport
}

// Hub coordinates commits across a set of documents, each identified by
// an opaque string id.
type Hub struct {
	logger *zap.Logger

	mu        sync.RWMutex
	documents map[string]*document
}

// New returns an empty Hub.
func New(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{logger: logger, documents: make(map[string]*document)}
}

// Open registers a document under id with the given initial state,
// returning its current version. Calling Open again on an id that is
// already registered is a no-op and returns the existing version.
func (h *Hub) Open(id string, initial objectop.Document) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if d, ok := h.documents[id]; ok {
		return d.version
	}
	h.documents[id] = &document{
		state:    initial,
		version:  0,
		watchers: make(map[string]Transport),
	}
	h.logger.Info("document opened", zap.String("document_id", id))
	return 0
}

// Watch registers sessionID's transport to receive broadcasts for id and
// returns the document's current version and change log, so the caller
// can catch the session up before marking it synced.
func (h *Hub) Watch(id, sessionID string, t Transport) (version int64, log []objectop.Change, err error) {
	d, err := h.get(id)
	if err != nil {
		return 0, nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.watchers[sessionID] = t
	logCopy := make([]objectop.Change, len(d.log))
	copy(logCopy, d.log)
	h.logger.Debug("session watching document",
		zap.String("document_id", id), zap.String("session_id", sessionID), zap.Int64("version", d.version))
	return d.version, logCopy, nil
}

// Unwatch removes sessionID's transport registration for id.
func (h *Hub) Unwatch(id, sessionID string) {
	d, err := h.get(id)
	if err != nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.watchers, sessionID)
}

// Commit applies change, submitted by sessionID against baseVersion, to
// document id. If baseVersion equals the document's current version
// (the fast path), change is applied unmodified. Otherwise change is
// transformed against every change committed since baseVersion (the
// rebase path) before being applied: each concurrent log entry is
// transformed against the (progressively rebased) incoming change, in
// order, with the concurrent side of each pairing accumulated into
// catchup. The caller needs both halves of that pairwise transform, not
// just the rebased change: catchup is what its own local document must
// still apply to reach the new version, since those concurrent changes
// were only ever applied upstream in their original, un-rebased form.
// The rebased change, the version it produced, catchup, and an error are
// returned to the caller; the rebased change alone is broadcast to every
// other watcher, since they apply it directly rather than rebase it
// against anything of their own.
func (h *Hub) Commit(ctx context.Context, id, sessionID string, baseVersion int64, change objectop.Change) (rebased objectop.Change, newVersion int64, catchup []objectop.Change, err error) {
	d, err := h.get(id)
	if err != nil {
		return objectop.Change{}, 0, nil, err
	}

	d.mu.Lock()
	if baseVersion > d.version {
		d.mu.Unlock()
		return objectop.Change{}, 0, nil, &oterr.InvalidVersion{ClientVersion: baseVersion, HubVersion: d.version}
	}

	effective := change
	for v := baseVersion; v < d.version; v++ {
		concurrent := d.log[v]
		var concurrentPrime objectop.Change
		concurrentPrime, effective, err = objectop.TransformChange(concurrent, effective, objectop.TransformOptions{})
		if err != nil {
			d.mu.Unlock()
			h.logger.Warn("commit rejected: transform failed",
				zap.String("document_id", id), zap.String("session_id", sessionID), zap.Error(err))
			return objectop.Change{}, 0, nil, err
		}
		catchup = append(catchup, concurrentPrime)
	}

	if err := effective.Apply(d.state); err != nil {
		d.mu.Unlock()
		return objectop.Change{}, 0, nil, errors.Wrapf(err, "commit apply on document %s", id)
	}

	d.log = append(d.log, effective)
	d.version++
	newVersion = d.version
	watchers := make(map[string]Transport, len(d.watchers))
	for sid, t := range d.watchers {
		watchers[sid] = t
	}
	d.mu.Unlock()

	h.logger.Info("commit applied",
		zap.String("document_id", id), zap.String("session_id", sessionID), zap.Int64("version", newVersion))

	for sid, t := range watchers {
		if sid == sessionID {
			continue
		}
		if derr := t.Deliver(ctx, newVersion, effective, sessionID, nil); derr != nil {
			h.logger.Warn("broadcast delivery failed",
				zap.String("document_id", id), zap.String("session_id", sid), zap.Error(derr))
		}
	}

	return effective, newVersion, catchup, nil
}

// Snapshot returns the document's current value and version.
func (h *Hub) Snapshot(id string) (objectop.Document, int64, error) {
	d, err := h.get(id)
	if err != nil {
		return nil, 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, d.version, nil
}

func (h *Hub) get(id string) (*document, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	d, ok := h.documents[id]
	if !ok {
		return nil, &oterr.AdapterError{Op: "hub.get", Path: id, Err: oterr.ErrPathNotFound}
	}
	return d, nil
}
