package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/aifa"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/cmps"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/config"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/metrics"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/node"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/observability/logger"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/p2p"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/sink"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/snapshot"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/statusapi"
)

func newRunCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Arranca el nodo (tick loop + heartbeat, y status API si STATUS_ADDR está seteado)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runNode(ctx, cfg())
		},
	}
}

func runNode(ctx context.Context, cfg *config.Config) error {
	log := logger.L()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	bootID := uuid.NewString()
	store := snapshot.NewStore(snapshot.NodeDir(cfg.State.Root, cfg.Node.ID))

	// El bind va primero: si el puerto está tomado no tiene sentido arrancar nada.
	hb := p2p.New(p2p.Options{
		NodeID:     cfg.Node.ID,
		ListenAddr: cfg.P2P.ListenAddr,
		Peers:      cfg.P2P.Peers,
		Interval:   cfg.P2P.Interval,
		InboxPath:  store.InboxPath(),
		BootID:     bootID,
		Log:        logger.Named("p2p"),
	})
	if err := hb.Bind(); err != nil {
		return err
	}
	defer hb.Close()

	pubs := buildPublishers(ctx, cfg, log)
	defer func() {
		for _, p := range pubs {
			if err := p.Close(); err != nil {
				log.Warn("sink close failed", logger.Component(p.Name()), logger.Err(err))
			}
		}
	}()

	client := aifa.New(aifa.Options{
		BaseURL:         cfg.AIFA.URL,
		Timeout:         cfg.AIFA.Timeout,
		BreakerFailures: cfg.AIFA.BreakerFailures,
		BreakerCooldown: cfg.AIFA.BreakerCooldown,
	})

	log.Info("node starting",
		logger.String("boot_id", bootID),
		logger.Addr(hb.Addr()),
		logger.String("aifa", cfg.AIFA.URL),
		logger.Mode(cfg.Node.MarketMode),
		logger.Int("ticks", cfg.Node.Ticks),
		logger.Duration(cfg.Node.Period),
		logger.Path(store.Dir()),
	)
	log.Info("static composite", logger.Score(cmps.Composite(cfg.Scores, cmps.StaticWeights)))

	telemetry := cfg.Telemetry
	orch := node.New(node.Options{
		NodeID:     cfg.Node.ID,
		BootID:     bootID,
		Mode:       cfg.Node.MarketMode,
		Ticks:      cfg.Node.Ticks,
		Period:     cfg.Node.Period,
		Scores:     cfg.Scores,
		Telemetry:  func(int) aifa.Telemetry { return telemetry },
		Client:     client,
		Store:      store,
		Publishers: pubs,
		Log:        logger.Named("node"),
	})

	g, gctx := errgroup.WithContext(ctx)
	loopCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error { return hb.Run(loopCtx) })
	if api, ln := startStatusAPI(cfg, bootID, store, log); api != nil {
		g.Go(func() error {
			// La status API es opcional: si se cae, el nodo sigue.
			if err := api.Serve(loopCtx, ln); err != nil {
				log.Warn("status api stopped", logger.Err(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		// Cuando terminan los ticks se apaga el resto.
		defer cancel()
		return orch.Run(loopCtx)
	})

	return g.Wait()
}

// startStatusAPI bindea el listener antes de arrancar los loops. Si el puerto no
// está disponible la API queda deshabilitada con un warning.
func startStatusAPI(cfg *config.Config, bootID string, store *snapshot.Store, log *zap.Logger) (*statusapi.Server, net.Listener) {
	if cfg.Status.Addr == "" {
		return nil, nil
	}
	ln, err := net.Listen("tcp", cfg.Status.Addr)
	if err != nil {
		log.Warn("status api disabled", logger.Addr(cfg.Status.Addr), logger.Err(err))
		return nil, nil
	}
	api := statusapi.New(statusapi.Options{
		Addr:   cfg.Status.Addr,
		NodeID: cfg.Node.ID,
		BootID: bootID,
		Reader: store,
		Log:    logger.Named("statusapi"),
	})
	return api, ln
}

// buildPublishers arma los mirrors configurados. Un mirror que no levanta se
// omite con warning: el nodo funciona igual sólo con disco.
func buildPublishers(ctx context.Context, cfg *config.Config, log *zap.Logger) []sink.Publisher {
	var pubs []sink.Publisher
	if addr := cfg.Sinks.Redis.Addr; addr != "" {
		pubs = append(pubs, sink.NewRedis(addr, cfg.Sinks.Redis.DB, cfg.Sinks.Redis.Prefix))
		log.Info("redis mirror enabled", logger.Addr(addr))
	}
	if dsn := cfg.Sinks.Postgres.DSN; dsn != "" {
		pg, err := sink.NewPostgres(ctx, dsn)
		if err != nil {
			log.Warn("postgres mirror disabled", logger.Err(err))
		} else {
			pubs = append(pubs, pg)
			log.Info("postgres mirror enabled")
		}
	}
	return pubs
}
