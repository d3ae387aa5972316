// Package transport provides the wire codec between a session and the
// hub: a small JSON envelope carrying a sync, a commit request or a
// broadcast, sent over a gorilla/websocket connection.
//
// Grounded on eventsync.WebSocketClient/WebSocketMessage: a single
// tagged envelope struct, a connection-owning client guarded by a
// mutex for writes, and zap logging when the connection is closed.
package transport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/homveloper/otdoc/objectop"
)

// EnvelopeType discriminates the three messages this protocol exchanges.
type EnvelopeType string

const (
	// TypeSync is the hub's reply to Watch: the document's current
	// version and the full change log the session must apply to reach
	// it, sent once, before any TypeBroadcast envelope.
	TypeSync EnvelopeType = "sync"
	// TypeCommit is a session submitting a local change to the hub.
	TypeCommit EnvelopeType = "commit"
	// TypeBroadcast is the hub delivering a committed change to a
	// session, either as the author's own acknowledgement or as a
	// remote change to rebase against. Catchup is non-nil only on the
	// acknowledgement of a rebase-path commit: the concurrent changes,
	// transformed past the author's own, that it missed and must still
	// apply locally.
	TypeBroadcast EnvelopeType = "broadcast"
)

// Envelope is the JSON message exchanged over the websocket connection.
type Envelope struct {
	Type          EnvelopeType      `json:"type"`
	DocumentID    string            `json:"documentId"`
	BaseVersion   int64             `json:"baseVersion,omitempty"`
	Version       int64             `json:"version,omitempty"`
	Change        objectop.Change   `json:"change"`
	OriginSession string            `json:"originSession,omitempty"`
	Log           []objectop.Change `json:"log,omitempty"`
	Catchup       []objectop.Change `json:"catchup,omitempty"`
}

// Conn is a single websocket connection carrying Envelope messages for
// one session. It implements both hub.Transport (via Deliver) and
// session.Transport (via SendCommit), since on the wire both directions
// share one connection.
type Conn struct {
	ws        *websocket.Conn
	sessionID string
	logger    *zap.Logger

	writeMu sync.Mutex
}

// NewConn wraps an established websocket connection.
func NewConn(ws *websocket.Conn, sessionID string, logger *zap.Logger) *Conn {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{ws: ws, sessionID: sessionID, logger: logger}
}

// SendCommit implements session.Transport.
func (c *Conn) SendCommit(ctx context.Context, id string, baseVersion int64, change objectop.Change) error {
	return c.write(Envelope{
		Type:        TypeCommit,
		DocumentID:  id,
		BaseVersion: baseVersion,
		Change:      change,
	})
}

// Deliver implements hub.Transport.
func (c *Conn) Deliver(ctx context.Context, version int64, change objectop.Change, originSessionID string, catchup []objectop.Change) error {
	return c.write(Envelope{
		Type:          TypeBroadcast,
		Version:       version,
		Change:        change,
		OriginSession: originSessionID,
		Catchup:       catchup,
	})
}

// SendSync sends the document's current version and change log to a
// newly watching session, ahead of any TypeBroadcast envelope.
func (c *Conn) SendSync(ctx context.Context, id string, version int64, log []objectop.Change) error {
	return c.write(Envelope{
		Type:       TypeSync,
		DocumentID: id,
		Version:    version,
		Log:        log,
	})
}

func (c *Conn) write(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Read blocks for the next Envelope on the connection.
func (c *Conn) Read() (Envelope, error) {
	var env Envelope
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return Envelope{}, err
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	c.logger.Info("connection closed", zap.String("session_id", c.sessionID))
	return c.ws.Close()
}
