// Package session implements the per-client state machine that sits
// between a document editor and the hub: it tracks the document's local
// version, buffers local changes awaiting acknowledgement, applies
// catch-up changes received while a commit is outstanding, and exposes
// the four states a client-side connection moves through.
//
// Grounded on eventsync.WebSocketClient's connection lifecycle (mutex
// guarding the state, zap logging at open and close) generalized from a
// single receive loop into an
// explicit state machine, since this module's client also originates
// local edits rather than only relaying a server feed.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/homveloper/otdoc/objectop"
	"github.com/homveloper/otdoc/oterr"
)

// State is one of the four states a Session moves through.
type State string

const (
	// StateOpening is the initial state, before the hub's current
	// version and log have been received.
	StateOpening State = "opening"
	// StateSynced means the local version matches the hub and there is
	// no outstanding commit.
	StateSynced State = "synced"
	// StateCommitting means a local change has been sent to the hub and
	// its acknowledgement is outstanding.
	StateCommitting State = "committing"
	// StateClosed means the session has been torn down and accepts no
	// further operations.
	StateClosed State = "closed"
)

// Transport is the client-side half of the wire protocol: it sends a
// commit request to the hub and is driven by Session.HandleBroadcast
// whenever the hub (or the transport's read loop) delivers one.
type Transport interface {
	// SendCommit submits change, generated against baseVersion, to the
	// hub for document id.
	SendCommit(ctx context.Context, id string, baseVersion int64, change objectop.Change) error
}

// Session is one client's view of a single document.
type Session struct {
	logger     *zap.Logger
	documentID string
	transport  Transport
	doc        objectop.Document

	mu           sync.Mutex
	state        State
	version      int64
	pendingLocal *objectop.Change // sent, awaiting ack
	queuedLocal  []objectop.Change // accumulated while committing
}

// New returns a Session for documentID, in StateOpening, operating on
// doc (the local document adapter the session mutates directly).
func New(documentID string, doc objectop.Document, transport Transport, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		logger:     logger,
		documentID: documentID,
		transport:  transport,
		doc:        doc,
		state:      StateOpening,
	}
}

// Open transitions the session from opening to synced, applying the
// hub's change log (as returned by hub.Hub.Watch) to bring the local
// document up to version.
func (s *Session) Open(version int64, log []objectop.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpening {
		return &oterr.IllegalTransform{Path: s.documentID, KindA: string(s.state), KindB: "open", Reason: "session already opened"}
	}
	for _, c := range log {
		if err := c.Apply(s.doc); err != nil {
			return err
		}
	}
	s.version = version
	s.state = StateSynced
	s.logger.Info("session opened", zap.String("document_id", s.documentID), zap.Int64("version", version))
	return nil
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Version returns the session's current local version.
func (s *Session) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Commit applies change to the local document immediately (optimistic
// local apply) and, if no commit is already outstanding, sends it to the
// hub. If a commit is already outstanding, change is queued; queued
// changes are sent one per request, each after the previous one is
// acknowledged.
func (s *Session) Commit(ctx context.Context, change objectop.Change) error {
	s.mu.Lock()
	if s.state == StateClosed || s.state == StateOpening {
		s.mu.Unlock()
		return &oterr.IllegalTransform{Path: s.documentID, KindA: string(s.state), KindB: "commit", Reason: "session not synced"}
	}
	if err := change.Apply(s.doc); err != nil {
		s.mu.Unlock()
		return err
	}

	if s.state == StateCommitting {
		s.queuedLocal = append(s.queuedLocal, change)
		s.mu.Unlock()
		return nil
	}

	base := s.version
	s.pendingLocal = &change
	s.state = StateCommitting
	s.mu.Unlock()

	s.logger.Debug("session sending commit", zap.String("document_id", s.documentID), zap.Int64("base_version", base))
	return s.transport.SendCommit(ctx, s.documentID, base, change)
}

// HandleBroadcast is invoked when the hub delivers a change at the given
// version. If originSessionID matches this session's own committing
// change, it is treated as the acknowledgement: catchup (non-nil only on
// a rebase-path commit) is applied to the local document first, since it
// carries the concurrent changes this commit's rebase means the local
// document never saw, then the session advances to synced (or re-commits
// the next queued change). Otherwise it is a remote change, transformed
// against any outstanding local change before being applied, per the
// rebase-path commit protocol.
func (s *Session) HandleBroadcast(ctx context.Context, version int64, change objectop.Change, originSessionID, selfSessionID string, catchup []objectop.Change) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return &oterr.IllegalTransform{Path: s.documentID, KindA: string(s.state), KindB: "broadcast", Reason: "session closed"}
	}

	if originSessionID == selfSessionID && s.pendingLocal != nil {
		for _, c := range catchup {
			if err := c.Apply(s.doc); err != nil {
				s.mu.Unlock()
				return err
			}
		}
		s.pendingLocal = nil
		s.version = version
		if len(s.queuedLocal) > 0 {
			next := s.queuedLocal[0]
			s.queuedLocal = s.queuedLocal[1:]
			base := s.version
			s.pendingLocal = &next
			s.mu.Unlock()
			s.logger.Debug("session sending queued commit", zap.String("document_id", s.documentID), zap.Int64("base_version", base))
			return s.transport.SendCommit(ctx, s.documentID, base, next)
		}
		s.state = StateSynced
		s.mu.Unlock()
		return nil
	}

	if s.pendingLocal != nil {
		remotePrime, localPrime, err := objectop.TransformChange(change, *s.pendingLocal, objectop.TransformOptions{})
		if err != nil {
			s.mu.Unlock()
			return err
		}
		if err := remotePrime.Apply(s.doc); err != nil {
			s.mu.Unlock()
			return err
		}
		s.pendingLocal = &localPrime
		s.version = version
		s.mu.Unlock()
		return nil
	}

	if err := change.Apply(s.doc); err != nil {
		s.mu.Unlock()
		return err
	}
	s.version = version
	s.mu.Unlock()
	return nil
}

// Close transitions the session to closed. Further calls to Commit or
// HandleBroadcast return errors.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
	s.logger.Info("session closed", zap.String("document_id", s.documentID))
}
