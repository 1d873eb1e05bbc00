package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Clark-Hu/media-catalog/internal/auth"
	"github.com/Clark-Hu/media-catalog/internal/blob"
	"github.com/Clark-Hu/media-catalog/internal/catalog"
	"github.com/Clark-Hu/media-catalog/internal/config"
	"github.com/Clark-Hu/media-catalog/internal/domain"
	httpserver "github.com/Clark-Hu/media-catalog/internal/http"
	"github.com/Clark-Hu/media-catalog/internal/logging"
	"github.com/Clark-Hu/media-catalog/internal/repository"
	"github.com/Clark-Hu/media-catalog/internal/store"
)

var migrateOnStart bool

func main() {
	_ = godotenv.Load()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "catalog",
	Short:        "Moderated movie and TV show catalog API",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.Migrate(cmd.Context())
	},
}

var grantAdminCmd = &cobra.Command{
	Use:   "grant-admin <email>",
	Short: "Create the user if needed and give it the ADMIN role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		user, err := repository.New(st).Users.UpsertRole(cmd.Context(), args[0], domain.RoleAdmin)
		if err != nil {
			return fmt.Errorf("grant admin: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s) is now %s\n", user.ID, user.Email, user.Role)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().BoolVar(&migrateOnStart, "migrate", true, "apply pending migrations before serving")
	}
	rootCmd.AddCommand(serveCmd, migrateCmd, grantAdminCmd)
}

func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config error: %w", err)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*store.Store, error) {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return st, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if migrateOnStart {
		if err := st.Migrate(ctx); err != nil {
			return err
		}
	}

	repo := repository.New(st)

	provider, err := auth.NewJWTProvider(cfg.JWTSecret, repo.Users, auth.Options{
		CacheSize: cfg.IdentityCacheSize,
		CacheTTL:  cfg.IdentityCacheTTL(),
		Timeout:   cfg.StoreTimeout(),
	})
	if err != nil {
		return fmt.Errorf("init identity provider: %w", err)
	}

	blobs, err := blob.NewS3Store(ctx, blob.S3Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
	})
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	svc := catalog.New(repo.Entries, catalog.Options{Timeout: cfg.StoreTimeout()})

	server := httpserver.New(cfg, httpserver.Deps{
		Health:   st,
		Catalog:  svc,
		Identity: provider,
		Blobs:    blobs,
	}, logger)

	// Start returns only after in-flight requests drain, so the deferred
	// pool close runs last.
	if err := server.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}
