package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"jobmate/match-service/internal/grpcserver"
	"jobmate/match-service/internal/httpapi"
	"jobmate/match-service/internal/scheduler"
	"jobmate/match-service/internal/trigger"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and gRPC APIs, the event triggers and the scheduler",
	RunE: func(cmd *cobra.Command, _ []string) error {
		migrate, _ := cmd.Flags().GetBool("migrate")
		return serve(cmd.Context(), migrate)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("migrate", false, "apply the schema before serving")
}

func serve(parent context.Context, migrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	d, err := openDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	if migrate {
		if err := d.store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	var lis net.Listener
	if cfg.GRPCPort != "" {
		if lis, err = net.Listen("tcp", ":"+cfg.GRPCPort); err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
	}

	var wg sync.WaitGroup
	errc := make(chan error, 2)

	// ── HTTP ────────────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      httpapi.NewHandler(d.lifecycle, d.scanner, d.scores, log).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()

	// ── gRPC ────────────────────────────────────────────────────────────────
	var gs *grpc.Server
	if lis != nil {
		gs = grpc.NewServer()
		grpcserver.Register(gs, grpcserver.NewServer(d.lifecycle, d.scanner, d.scores))
		go func() {
			log.Info("grpc listening", zap.String("addr", lis.Addr().String()))
			if err := gs.Serve(lis); err != nil {
				errc <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	// ── Triggers ────────────────────────────────────────────────────────────
	if cfg.Triggers() {
		router := trigger.NewRouter(d.scanner, log).WithInvalidator(d.scores)
		if d.rdb != nil {
			runTrigger(ctx, &wg, log, "redis", trigger.NewSubscriber(d.rdb, router).Run)
		}
		if d.mq != nil {
			runTrigger(ctx, &wg, log, "amqp", trigger.NewConsumer(d.mq, cfg.TriggerQueue, router).Run)
		}
	}

	// ── Scheduler ───────────────────────────────────────────────────────────
	sched := scheduler.New(d.store, d.store, d.scanner, scheduler.Options{
		ExpirySpec: cfg.ExpirySchedule,
		RescanSpec: cfg.RescanSchedule,
	}, log)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errc:
		log.Error("server failed", zap.Error(err))
		stop()
	}

	// ── Graceful shutdown ───────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn("http shutdown", zap.Error(serr))
	}
	if gs != nil {
		gs.GracefulStop()
	}
	sched.Stop()
	wg.Wait()
	log.Info("stopped")
	return err
}

// runTrigger runs a trigger source in the background until ctx is done.
func runTrigger(ctx context.Context, wg *sync.WaitGroup, log *zap.Logger, name string, run func(context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := run(ctx); err != nil {
			log.Error("trigger stopped", zap.String("source", name), zap.Error(err))
		}
	}()
}
