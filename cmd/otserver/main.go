// Command otserver runs a standalone collaborative-document hub over
// websockets: clients connect, open a document, submit changes, and
// receive the changes other clients commit.
//
// Grounded on the root demo in this corpus (a Server synchronizing
// Clients over a MessageBroker) generalized from an in-process channel
// broker to a real network listener, using the ambient stack's own
// libraries (zap for logging, gorilla/websocket for transport) rather
// than the demo's channels.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/homveloper/otdoc/docadapter"
	"github.com/homveloper/otdoc/hub"
	"github.com/homveloper/otdoc/oterr"
	"github.com/homveloper/otdoc/transport"
)

// config is the server's runtime configuration, loaded from a JSON file
// named by -config and overridable by individual flags.
type config struct {
	Addr string `json:"addr"`
}

func defaultConfig() config {
	return config{Addr: ":8080"}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	addr := flag.String("addr", "", "listen address, overrides the config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	h := hub.New(logger)
	h.Open("default", docadapter.New(nil))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", zap.Error(err))
			return
		}
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		serveConnection(h, ws, sessionID, logger)
	})

	logger.Info("otserver listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, nil); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// serveConnection wires one websocket connection to the hub for the
// lifetime of the connection: it registers the connection as a watcher,
// sends the document's current version and change log as a sync
// envelope, then alternates between reading commit envelopes off the
// wire and forwarding them to the hub, delivering each commit's rebased
// form and catchup back to its own author and its plain rebased form to
// every other watcher. A commit rejected with *oterr.IllegalTransform or
// *oterr.InvalidVersion ends the connection.
func serveConnection(h *hub.Hub, ws *websocket.Conn, sessionID string, logger *zap.Logger) {
	conn := transport.NewConn(ws, sessionID, logger)
	defer conn.Close()

	version, log, err := h.Watch("default", sessionID, conn)
	if err != nil {
		logger.Error("watch failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	defer h.Unwatch("default", sessionID)

	if err := conn.SendSync(context.Background(), "default", version, log); err != nil {
		logger.Warn("sync delivery failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	for {
		env, err := conn.Read()
		if err != nil {
			logger.Info("session disconnected", zap.String("session_id", sessionID), zap.Error(err))
			return
		}
		if env.Type != transport.TypeCommit {
			continue
		}
		ctx := context.Background()
		change, version, catchup, err := h.Commit(ctx, "default", sessionID, env.BaseVersion, env.Change)
		if err != nil {
			logger.Warn("commit rejected", zap.String("session_id", sessionID), zap.Error(err))
			var illegal *oterr.IllegalTransform
			var invalid *oterr.InvalidVersion
			if errors.As(err, &illegal) || errors.As(err, &invalid) {
				return
			}
			continue
		}
		if err := conn.Deliver(ctx, version, change, sessionID, catchup); err != nil {
			logger.Warn("ack delivery failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}
