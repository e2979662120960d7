package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lanl/ibmq"
	"github.com/lanl/ibmq/ibmqtest"
	"github.com/lanl/ibmq/internal/config"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveFakeCmd = &cobra.Command{
	Use:   "serve-fake",
	Short: "Serve a fake execution service backed by the local simulator",
	Long: `Serve the execution service's REST API on a local port.  Jobs are run by
the state-vector simulator.  Store an account whose URL points at the
server to use it with the other commands.`,
	Args: cobra.NoArgs,
	RunE: runServeFake,
}

func init() {
	rootCmd.AddCommand(serveFakeCmd)

	serveFakeCmd.Flags().String("addr", "", "listen address")
	serveFakeCmd.Flags().String("token", "", "API token clients must present")
	serveFakeCmd.Flags().String("device", "", "device to offer: ibmqx4 or simulator")
	serveFakeCmd.Flags().Bool("metrics", false, "serve Prometheus metrics on /metrics")
	for _, name := range []string{"addr", "token", "device", "metrics"} {
		_ = viper.BindPFlag("fake."+name, serveFakeCmd.Flags().Lookup(name))
	}
}

// fakeHandler builds the HTTP handler of the fake service.
func fakeHandler(cfg *config.Config, log *zap.Logger) http.Handler {
	dev := ibmqtest.IBMQX4()
	if cfg.Fake.Device == "simulator" {
		dev = ibmqtest.SimulatorDevice(cfg.Fake.Qubits)
	}
	svc := ibmqtest.NewService(cfg.Fake.Token, dev)
	svc.SetLogger(log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Fake.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Mount("/", svc)
	return r
}

func runServeFake(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Fake.Addr,
		Handler:           fakeHandler(cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving fake execution service %s on http://%s (token %q)\n",
		ibmq.Version(), cfg.Fake.Addr, cfg.Fake.Token)
	log.Info("serving fake execution service",
		zap.String("addr", cfg.Fake.Addr),
		zap.String("device", cfg.Fake.Device),
		zap.Bool("metrics", cfg.Fake.Metrics))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
