package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/datachainlab/crossdomain-relayer/core"
	"github.com/datachainlab/crossdomain-relayer/log"
	"github.com/datachainlab/crossdomain-relayer/metrics"
	"github.com/datachainlab/crossdomain-relayer/server"
)

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Relay Service Commands",
		Long:  "Commands to manage the relay service",
	}
	cmd.AddCommand(
		startCmd(),
	)
	return cmd
}

func startCmd() *cobra.Command {
	const (
		flagRelayInterval  = "relay-interval"
		flagPrometheusAddr = "prometheus-addr"
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the relay service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var mirrors []io.Writer
			if cfg.Log.File != "" {
				f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return errors.Wrapf(err, "failed to open log file %s", cfg.Log.File)
				}
				defer f.Close()
				mirrors = append(mirrors, f)
			}
			if err := log.InitLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, mirrors...); err != nil {
				return err
			}

			promAddr := cfg.Telemetry.PrometheusAddr
			if v := viper.GetString(flagPrometheusAddr); v != "" {
				promAddr = v
			}
			if err := metrics.InitializeMetrics(metrics.ExporterProm{Addr: promAddr}); err != nil {
				return errors.Wrap(err, "failed to initialize the metrics subsystem")
			}
			defer func() {
				if err := metrics.ShutdownMetrics(context.Background()); err != nil {
					log.GetLogger().Error("failed to shutdown the metrics subsystem", err)
				}
			}()

			src, err := cfg.Source.Build()
			if err != nil {
				return err
			}
			dst, err := cfg.Destination.Build()
			if err != nil {
				return err
			}
			dst.SetRelaySender(cfg.RelaySender())

			store := core.NewMessageStore()

			apiSrv := server.NewAPIServer(store)
			go func() {
				if err := apiSrv.Start(cfg.API.ListenAddr); err != nil {
					log.GetLogger().Fatal("API server failed", err)
				}
			}()

			interval := cfg.Relay.Interval
			if d := viper.GetDuration(flagRelayInterval); d > 0 {
				interval = d
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = core.StartService(ctx, src, dst, store, cfg.Source.StartBlock, cfg.Destination.StartBlock, interval)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := apiSrv.Shutdown(shutdownCtx); err != nil {
				log.GetLogger().Error("failed to shutdown the API server", err)
			}

			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().Duration(flagRelayInterval, 0, "override the poll interval from the config")
	cmd.Flags().String(flagPrometheusAddr, "", "override the prometheus exporter address from the config")
	if err := viper.BindPFlag(flagRelayInterval, cmd.Flags().Lookup(flagRelayInterval)); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag(flagPrometheusAddr, cmd.Flags().Lookup(flagPrometheusAddr)); err != nil {
		panic(err)
	}
	return cmd
}
