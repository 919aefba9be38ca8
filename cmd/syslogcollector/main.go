// Command syslogcollector runs the syslog collection service.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spf13/cobra"

	"syslogcollector/internal/config"
	"syslogcollector/internal/dedup"
	"syslogcollector/internal/logging"
	"syslogcollector/internal/pipeline"
	"syslogcollector/internal/receiver/stream"
	"syslogcollector/internal/receiver/udp"
	"syslogcollector/internal/tlsprovision"
	"syslogcollector/internal/writer"
)

var version = "dev"

const sigShutdownGrace = 5 * time.Second

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	filterHandler := logging.NewComponentFilterHandler(baseHandler, slog.LevelInfo)
	logger := slog.New(filterHandler)

	rootCmd := &cobra.Command{
		Use:   "syslogcollector",
		Short: "Syslog collection service",
	}

	var logDirFlag string
	var configCheck bool

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the syslog collector",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if logDirFlag != "" {
				cfg.LogDir = logDirFlag
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if configCheck {
				logger.Info("configuration valid", "udp_enabled", cfg.EnableUDP, "tls_enabled", cfg.EnableTLS, "log_dir", cfg.LogDir)
				return nil
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, logger, cfg)
		},
	}
	serveCmd.Flags().StringVar(&logDirFlag, "log-dir", "", "override SYSLOG_LOG_DIR")
	serveCmd.Flags().BoolVar(&configCheck, "config-check", false, "validate configuration and exit without serving")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg config.Config) error {
	logger.Info("configuration loaded",
		"udp_enabled", cfg.EnableUDP, "tls_enabled", cfg.EnableTLS, "log_dir", cfg.LogDir)

	w, err := writer.New(writer.Config{
		Dir:         cfg.LogDir,
		MaxBytes:    cfg.WriterMaxBytes,
		BackupCount: cfg.WriterBackupCount,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			logger.Error("writer close error", "error", err)
		}
	}()

	dd, err := dedup.New(dedup.Config{Window: cfg.DedupWindow, Logger: logger})
	if err != nil {
		return fmt.Errorf("create deduplicator: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), sigShutdownGrace)
		defer closeCancel()
		if err := dd.Close(closeCtx); err != nil {
			logger.Error("deduplicator close error", "error", err)
		}
	}()

	pipe := pipeline.New(dd, w)

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.EnableUDP {
		udpRecv := udp.New(udp.Config{
			Addr:      fmt.Sprintf("%s:%d", cfg.UDPHost, cfg.UDPPort),
			Processor: pipe,
			Logger:    logger,
		})
		group.Go(func() error {
			return udpRecv.Run(groupCtx)
		})
	}

	if cfg.EnableTLS {
		provisioner, err := tlsprovision.LoadOrGenerate(tlsprovision.Config{
			CertFile: cfg.CertFile,
			KeyFile:  cfg.KeyFile,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("provision tls certificate: %w", err)
		}
		defer provisioner.Close()

		streamRecv := stream.New(stream.Config{
			Addr:          fmt.Sprintf("%s:%d", cfg.TLSHost, cfg.TLSPort),
			TLSConfig:     provisioner.TLSConfig(),
			MaxMsgLen:     cfg.FramingMaxMsgLen,
			MaxBufferSize: cfg.FramingMaxBufferSize,
			Processor:     pipe,
			Logger:        logger,
		})
		group.Go(func() error {
			return streamRecv.Run(groupCtx)
		})
	}

	if err := group.Wait(); err != nil && groupCtx.Err() == nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
