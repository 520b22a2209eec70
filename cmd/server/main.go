package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/config"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/dispatcher"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/handler"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/health"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/ledger"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/model"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/processor"
	"github.com/marlonbarreto-git/stratus-payment-gateway/internal/queue"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.FromEnv()

	own, err := ledger.OpenShard(cfg.OwnLedgerPath)
	if err != nil {
		// A replica that cannot write can still serve reads from its peer's
		// shard. Only when neither shard is reachable is the process useless.
		if cfg.PeerURL == "" && !ledger.Probe(cfg.PeerLedgerPath) {
			slog.Error("ledger_unavailable",
				"own_path", cfg.OwnLedgerPath,
				"peer_path", cfg.PeerLedgerPath,
				"error", err,
			)
			os.Exit(1)
		}
		slog.Warn("own_shard_unavailable_serving_read_only",
			"own_path", cfg.OwnLedgerPath,
			"error", err,
		)
		own = nil
	}
	if own != nil {
		defer own.Close()
	}

	var peer ledger.PeerReader
	if cfg.PeerURL != "" {
		peer = ledger.NewHTTPPeer(cfg.PeerURL)
	} else {
		peer = ledger.NewFilePeer(cfg.PeerLedgerPath)
	}
	book := ledger.New(own, peer)

	defaultClient := processor.NewClient(model.ProcessorDefault, cfg.DefaultProcessorURL)
	fallbackClient := processor.NewClient(model.ProcessorFallback, cfg.FallbackProcessorURL)

	q := queue.New()
	disp := dispatcher.New(q, book, []*processor.Client{defaultClient, fallbackClient})

	router := mux.NewRouter()
	handler.New(q, book).RegisterRoutes(router)
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return health.NewMonitor(defaultClient).Run(ctx)
	})
	g.Go(func() error {
		return health.NewMonitor(fallbackClient).Run(ctx)
	})
	g.Go(func() error {
		return disp.Run(ctx)
	})
	g.Go(func() error {
		slog.Info("server_starting",
			"addr", cfg.ListenAddr,
			"backend_id", cfg.BackendID,
			"own_shard", cfg.OwnLedgerPath,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server_stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server_stopped")
}
