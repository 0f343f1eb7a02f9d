package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	grpcAdapter "github.com/quentinrf/kbdlightd/internal/adapters/grpc"
	"github.com/quentinrf/kbdlightd/internal/adapters/ops"
	"github.com/quentinrf/kbdlightd/internal/config"
	"github.com/quentinrf/kbdlightd/internal/domain"
	"github.com/quentinrf/kbdlightd/internal/engine"
	"github.com/quentinrf/kbdlightd/internal/metrics"
	"github.com/quentinrf/kbdlightd/internal/ports"
	"github.com/quentinrf/kbdlightd/pkg/tlsconfig"
)

const shutdownTimeout = 5 * time.Second

type runFlags struct {
	timeout  time.Duration
	backend  string
	fallback int
	grpcAddr string
	opsAddr  string
	input    string
}

func (a *app) newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the backlight daemon",
		Long: `Run the daemon in the foreground. SIGUSR1 toggles activity management,
SIGINT and SIGTERM stop it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyRunFlags(cmd, f, &a.cfg)
			return runDaemon(cmd.Context(), a.cfg, cmd.Root().Version)
		},
	}

	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "idle timeout before the backlight turns off (overrides config)")
	cmd.Flags().StringVar(&f.backend, "backend", "", "device backend: auto, sysfs, upower, command, gpio or mock (overrides config)")
	cmd.Flags().IntVar(&f.fallback, "fallback-level", 0, "level to light when the keyboard is dark at startup (overrides config)")
	cmd.Flags().StringVar(&f.grpcAddr, "grpc-addr", "", "control socket address (overrides config)")
	cmd.Flags().StringVar(&f.opsAddr, "ops-addr", "", "ops HTTP address, empty disables (overrides config)")
	cmd.Flags().StringVar(&f.input, "input", "", "activity source: evdev or typist (overrides config)")
	return cmd
}

// applyRunFlags overrides the loaded config with flags set on the command line
func applyRunFlags(cmd *cobra.Command, f runFlags, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Engine.Timeout = f.timeout
	}
	if flags.Changed("backend") {
		cfg.Device.Backend = f.backend
	}
	if flags.Changed("fallback-level") {
		cfg.Engine.FallbackLevel = f.fallback
	}
	if flags.Changed("grpc-addr") {
		cfg.Control.Addr = f.grpcAddr
	}
	if flags.Changed("ops-addr") {
		cfg.Ops.Addr = f.opsAddr
	}
	if flags.Changed("input") {
		cfg.Input.Source = f.input
	}
}

// runDaemon runs the engine and its servers until parent is cancelled or
// SIGINT/SIGTERM arrives
func runDaemon(parent context.Context, cfg config.Config, version string) error {
	if parent == nil {
		parent = context.Background()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	levels, err := cfg.Levels()
	if err != nil {
		return err
	}

	log.Info().
		Str("version", version).
		Str("backend", cfg.Device.Backend).
		Dur("timeout", cfg.Engine.Timeout).
		Msg("starting kbdlightd")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize journal
	repo, closeRepo, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer closeRepo()

	// Initialize device
	be, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer be.device.Close()
	log.Info().Str("backend", be.name).Msg("initialized backlight device")

	recorder := ports.NewRecorder(repo, cfg.Journal.Retention)
	opts := []engine.Option{engine.WithObserver(recorder)}

	reg := prom.NewRegistry()
	if cfg.Ops.Metrics {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, engine.WithMetrics(metrics.NewPrometheusRecorder(reg)))
	}

	eng, err := engine.New(ctx, be.device, openActivity(cfg), be.notifier, engine.Config{
		Levels:        levels,
		Timeout:       cfg.Engine.Timeout,
		FallbackLevel: domain.Level(cfg.Engine.FallbackLevel),
	}, opts...)
	if err != nil {
		return err
	}

	// The journal outlives the engine so the last transitions are saved
	recCtx, stopRecorder := context.WithCancel(context.Background())
	recDone := make(chan error, 1)
	go func() { recDone <- recorder.Start(recCtx) }()
	defer func() {
		stopRecorder()
		if err := <-recDone; err != nil {
			log.Error().Err(err).Msg("journal recorder failed")
		}
	}()

	serveErr := make(chan error, 2)

	// Start gRPC control server
	var tlsCfg *tls.Config
	if cfg.Control.TLS().Enabled() {
		tlsCfg, err = tlsconfig.LoadServerTLS(cfg.Control.TLS())
		if err != nil {
			return err
		}
		log.Info().Msg("mTLS enabled")
	} else {
		log.Warn().Str("addr", cfg.Control.Addr).Msg("control TLS not configured, serving plaintext (local use only)")
	}

	handler := grpcAdapter.NewControlHandler(eng, repo, recorder.Session())
	grpcServer, health := grpcAdapter.NewServer(handler, tlsCfg)

	listener, err := net.Listen("tcp", cfg.Control.Addr)
	if err != nil {
		return err
	}
	log.Info().Str("addr", listener.Addr().String()).Msg("gRPC server listening")

	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			serveErr <- err
		}
	}()
	defer grpcServer.GracefulStop()

	// Start ops server
	if cfg.Ops.Addr != "" {
		var metricsHandler http.Handler
		if cfg.Ops.Metrics {
			metricsHandler = metrics.HTTPHandler(reg)
		}
		opsServer := ops.NewServer(cfg.Ops.Addr, eng, metricsHandler)
		go func() {
			if err := opsServer.Start(); err != nil {
				serveErr <- err
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := opsServer.Shutdown(sctx); err != nil {
				log.Warn().Err(err).Msg("ops server shutdown")
			}
		}()
	}

	// SIGUSR1 is the presence toggle
	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	defer signal.Stop(usr1)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	go func() {
		for {
			select {
			case <-usr1:
				eng.Toggle()
			case err := <-serveErr:
				log.Error().Err(err).Msg("server failed")
				serveErr <- err
				cancelRun()
				return
			case <-runCtx.Done():
				return
			}
		}
	}()

	runErr := eng.Run(runCtx)

	log.Info().Msg("shutting down...")
	health.Shutdown()

	fctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := eng.Controller().Flush(fctx); err != nil {
		log.Warn().Err(err).Msg("pending backlight writes not flushed")
	}

	select {
	case err := <-serveErr:
		return err
	default:
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error().Err(runErr).Msg("engine stopped")
		return runErr
	}

	log.Info().Msg("kbdlightd stopped")
	return nil
}
