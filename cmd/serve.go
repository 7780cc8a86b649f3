package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/khanhnv2901/wisafe/internal/api"
	"github.com/khanhnv2901/wisafe/internal/application"
	"github.com/khanhnv2901/wisafe/internal/checker"
	"github.com/khanhnv2901/wisafe/internal/domain/network"
	"github.com/khanhnv2901/wisafe/internal/events"
	"github.com/khanhnv2901/wisafe/internal/metrics"
	"github.com/khanhnv2901/wisafe/internal/shared/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WiSafe API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, err := requireAppContext(cmd)
		if err != nil {
			return err
		}
		v := viper.GetViper()
		bindFlag(v, "server.addr", cmd.Flags(), "addr")
		bindFlag(v, "server.cors_origins", cmd.Flags(), "cors-origins")
		bindFlag(v, "server.rate_limit", cmd.Flags(), "rate-limit")
		bindFlag(v, "server.rate_burst", cmd.Flags(), "rate-burst")
		bindFlag(v, "server.shutdown_timeout", cmd.Flags(), "shutdown-timeout")
		bindFlag(v, "scan.use_nmcli", cmd.Flags(), "nmcli")
		cfg, err := loadConfig(v)
		if err != nil {
			return err
		}

		// Initialize structured logger
		logger, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer func() {
			if err := logger.Sync(); err != nil {
				appCtx.Logger.Debugw("failed to sync logger", "error", err)
			}
		}()

		if err := os.MkdirAll(cfg.DataDir, constants.DefaultDirPerm); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		containerCfg, err := buildContainerConfig(cfg, logger)
		if err != nil {
			return err
		}

		m := metrics.NewMetrics()
		jobManager := api.NewJobManager(logger.Named("jobs"))
		jobManager.SetObserver(m)
		jobManager.SetMaxJobs(cfg.Jobs.Max)
		defer jobManager.Close()

		container, err := application.NewContainer(containerCfg, jobManager, m, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if cfg.NATS.URL != "" {
			nc, err := events.Connect(cfg.NATS.URL, logger.Named("nats"))
			if err != nil {
				return err
			}
			defer nc.Close()

			updates, unsubscribe := jobManager.Subscribe()
			defer unsubscribe()
			publisher := events.NewPublisher(nc, cfg.NATS.Subject, logger.Named("events"), m)
			go publisher.Run(ctx, updates)
		}

		server := api.NewServer(api.Config{
			Scans:         container.ScanService,
			Checks:        container.CheckOrchestrator,
			Auth:          container.Auth,
			Jobs:          jobManager,
			Health:        &healthAPIService{dataDir: cfg.DataDir, scans: container.Catalog},
			Metrics:       m.Handler(),
			Logins:        m,
			Logger:        logger,
			CORSOrigins:   cfg.Server.CORSOrigins,
			RateLimit:     cfg.Server.RateLimit,
			RateBurst:     cfg.Server.RateBurst,
			SecureCookies: cfg.Server.SecureCookies,
			AccessTTL:     containerCfg.Auth.AccessTTL,
			RefreshTTL:    containerCfg.Auth.RefreshTTL,
		})
		defer server.Close()

		httpServer := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      server,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		// Channel to listen for errors from the server
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("%s WiSafe API listening on %s (data dir: %s)\n", colorInfo("→"), cfg.Server.Addr, cfg.DataDir)
			fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
			fmt.Printf("\n%s Shutdown requested, draining connections...\n", colorInfo("→"))

			shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer stop()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				// Force close if graceful shutdown fails
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}
		}

		// Running crack jobs observe their cancelled contexts and finish.
		for _, j := range jobManager.ListJobs(0) {
			if !j.Status.IsTerminal() {
				_ = jobManager.Cancel(j.ID)
			}
		}
		container.CheckOrchestrator.Wait()

		fmt.Printf("%s Server shutdown complete\n", colorSuccess("✓"))
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", defaultServerAddr, "Address for the API server")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().Int("rate-limit", 10, "Rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().Int("rate-burst", 20, "Rate limit burst size")
	serveCmd.Flags().Bool("nmcli", false, "Merge live nmcli scan results with the catalog")
	rootCmd.AddCommand(serveCmd)
}

func buildContainerConfig(cfg *Config, logger *zap.Logger) (application.Config, error) {
	secret := cfg.Auth.Secret
	if secret == "" {
		generated, err := randomSecret()
		if err != nil {
			return application.Config{}, err
		}
		secret = generated
		logger.Warn("auth.secret not set; using an ephemeral signing key, sessions end on restart")
	}
	if cfg.Auth.PasswordHash == "" && cfg.Auth.Password == "" {
		return application.Config{}, fmt.Errorf("operator credentials missing: set auth.password_hash (or auth.password)")
	}

	var wordlist []string
	if cfg.Crack.Wordlist != "" {
		words, err := checker.LoadWordlist(cfg.Crack.Wordlist)
		if err != nil {
			return application.Config{}, fmt.Errorf("failed to load wordlist: %w", err)
		}
		wordlist = words
	}

	return application.Config{
		DataDir:     cfg.DataDir,
		CatalogFile: cfg.Scan.CatalogFile,
		UseNmcli:    cfg.Scan.UseNmcli,
		MaxResults:  cfg.Scan.MaxResults,
		Crack: checker.CrackConfig{
			StepDelay:      cfg.Crack.StepDelay,
			AttemptRate:    cfg.Crack.AttemptRate,
			Wordlist:       wordlist,
			LabPassphrases: cfg.Crack.LabPassphrases,
		},
		Auth: application.AuthConfig{
			Username:     cfg.Auth.Username,
			PasswordHash: cfg.Auth.PasswordHash,
			Password:     cfg.Auth.Password,
			Secret:       secret,
			AccessTTL:    cfg.Auth.AccessTTL,
			RefreshTTL:   cfg.Auth.RefreshTTL,
		},
	}, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate signing key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

type catalogSource interface {
	Records() []network.Record
}

type healthAPIService struct {
	dataDir string
	scans   catalogSource
}

func (s *healthAPIService) Check(ctx context.Context) error {
	if s.dataDir == "" {
		return fmt.Errorf("data directory not configured")
	}
	return nil
}

func (s *healthAPIService) Ready(ctx context.Context) error {
	info, err := os.Stat(s.dataDir)
	if err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory %s is not a directory", s.dataDir)
	}
	if s.scans == nil || len(s.scans.Records()) == 0 {
		return fmt.Errorf("network catalog is empty")
	}
	return nil
}
