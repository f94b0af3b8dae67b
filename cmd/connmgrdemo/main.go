// Command connmgrdemo runs the connection manager against a real TCP
// comm.Comm, registering whatever peer addresses are given on the command
// line and logging their connection state as it changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/connmgr/internal/comm"
	tcpcomm "github.com/dep2p/connmgr/internal/comm/tcp"
	"github.com/dep2p/connmgr/internal/connmgr"
	"github.com/dep2p/connmgr/pkg/log"
	"github.com/dep2p/connmgr/pkg/types"
)

type loggingHandler struct{ addr types.PeerAddr }

func (h *loggingHandler) Handle(ev types.Event) {
	log.Logger("connmgrdemo").Info("event", "addr", h.addr.String(), "type", ev.Type.String(), "text", ev.Text)
}

func main() {
	retry := flag.Duration("retry", 3*time.Second, "base retry interval per peer")
	flag.Parse()

	peers := flag.Args()
	if len(peers) == 0 {
		fmt.Fprintln(os.Stderr, "usage: connmgrdemo [-retry DURATION] host:port [host:port ...]")
		os.Exit(2)
	}

	app := fx.New(
		fx.Provide(func() comm.Comm { return tcpcomm.New(tcpcomm.DefaultConfig()) }),
		connmgr.DefaultModule(),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.Invoke(func(mgr *connmgr.Manager) {
			for _, p := range peers {
				addr, err := types.ParsePeerAddr(p)
				if err != nil {
					log.Logger("connmgrdemo").Error("skipping invalid peer address", "addr", p, "error", err)
					continue
				}
				mgr.Add(addr, *retry, "", &loggingHandler{addr: addr})
			}
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		log.Logger("connmgrdemo").Error("startup failed", "error", err)
		os.Exit(1)
	}

	<-app.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Logger("connmgrdemo").Error("shutdown failed", "error", err)
		os.Exit(1)
	}
}
