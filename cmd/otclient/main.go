// Command otclient connects to an otserver instance, opens the shared
// "default" document, and optionally applies one local edit, logging the
// new version and the whole document after every change it receives.
//
// Grounded on the root demo's Client/StartListening pair: a connection
// that both originates local edits and runs a background loop applying
// whatever the server relays. Where the demo drove both halves through
// an in-process MessageBroker, this drives them through session.Session
// and a real transport.Conn over a websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/homveloper/otdoc/docadapter"
	"github.com/homveloper/otdoc/objectop"
	"github.com/homveloper/otdoc/session"
	"github.com/homveloper/otdoc/transport"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "otserver address")
	sessionID := flag.String("session", "", "session id, defaults to a random one")
	setPath := flag.String("set", "", "dotted path to Set, e.g. title.en")
	setVal := flag.String("val", "", "value to Set at -set")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	id := *sessionID
	if id == "" {
		id = uuid.NewString()
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws", RawQuery: "session=" + id}
	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Fatal("dial failed", zap.Error(err))
	}
	conn := transport.NewConn(ws, id, logger)
	defer conn.Close()

	doc := docadapter.New(nil)
	sess := session.New("default", doc, conn, logger)

	sync, err := conn.Read()
	if err != nil {
		logger.Fatal("failed to read sync envelope", zap.Error(err))
	}
	if sync.Type != transport.TypeSync {
		logger.Fatal("expected a sync envelope first", zap.String("got", string(sync.Type)))
	}
	if err := sess.Open(sync.Version, sync.Log); err != nil {
		logger.Fatal("session open failed", zap.Error(err))
	}
	logger.Info("synced", zap.Int64("version", sync.Version))

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			env, err := conn.Read()
			if err != nil {
				logger.Info("disconnected", zap.Error(err))
				return
			}
			if env.Type != transport.TypeBroadcast {
				continue
			}
			if err := sess.HandleBroadcast(ctx, env.Version, env.Change, env.OriginSession, id, env.Catchup); err != nil {
				logger.Warn("broadcast handling failed", zap.Error(err))
				continue
			}
			logger.Info("document updated", zap.Int64("version", sess.Version()), zap.Any("root", doc.Root()))
		}
	}()

	if *setPath != "" {
		path := objectop.NewPath(strings.Split(*setPath, ".")...)
		prior, hadPrior := doc.Get(path)
		op, err := objectop.NewSet(path, *setVal, prior, hadPrior)
		if err != nil {
			logger.Fatal("invalid set", zap.Error(err))
		}
		change := objectop.NewChange([]objectop.Op{op}, map[string]any{"author": id})
		if err := sess.Commit(ctx, change); err != nil {
			logger.Fatal("commit failed", zap.Error(err))
		}
		fmt.Printf("committed %s = %q\n", *setPath, *setVal)
	}

	<-done
}
