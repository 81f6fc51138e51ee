package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-fiscal/internal/config"
	"github.com/sirosfoundation/go-fiscal/internal/keystore"
	"github.com/sirosfoundation/go-fiscal/internal/logger"
	"github.com/sirosfoundation/go-fiscal/internal/server"
	"github.com/sirosfoundation/go-fiscal/internal/service"
	"github.com/sirosfoundation/go-fiscal/internal/storage"
	"github.com/sirosfoundation/go-fiscal/internal/storage/file"
	"github.com/sirosfoundation/go-fiscal/internal/storage/mongodb"
	"github.com/sirosfoundation/go-fiscal/internal/storage/postgres"
	"github.com/sirosfoundation/go-fiscal/internal/tenant"
)

func newServeCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("FISCAL_CONFIG"), "path to the YAML configuration file")
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.Server.LogLevel), cfg.Server.Environment)
	slog.SetDefault(appLogger)

	appLogger.Info("Configuration loaded",
		slog.String("version", version),
		slog.String("environment", cfg.Server.Environment),
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.Bool("verify_after_sign", cfg.Signing.VerifyAfterSign),
		slog.Int("nfe_endpoint_overrides", len(cfg.Transport.NFeEndpoints)))

	store, err := openStore(ctx, &cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			appLogger.Warn("Closing account store", slog.String("error", err.Error()))
		}
	}()

	cipher, err := keystore.NewCipher(cfg.Security.EncryptionKey)
	if err != nil {
		return fmt.Errorf("initializing credential cipher: %w", err)
	}

	certs, err := keystore.NewAccountProvider(&keystore.AccountProviderConfig{
		Store:  store,
		Cipher: cipher,
		Logger: appLogger,
	})
	if err != nil {
		return fmt.Errorf("initializing certificate provider: %w", err)
	}

	accounts := tenant.NewService(store, cipher, &tenant.Config{Logger: appLogger})
	fiscal := service.New(certs, &service.Config{
		HTTPS:             cfg.Transport.HTTPSConfig(),
		EndpointOverrides: cfg.Transport.EndpointOverrides(),
		SaoPaulo:          cfg.NFSe.SaoPaulo,
		VerifyAfterSign:   cfg.Signing.VerifyAfterSign,
		Logger:            appLogger,
	})

	srv := server.New(cfg, store, accounts, fiscal, appLogger)
	if err := srv.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}
	appLogger.Info("Server shutdown complete")
	return nil
}

// openStore connects the account store selected by cfg.Driver.
func openStore(ctx context.Context, cfg *config.StorageConfig) (storage.AccountStore, error) {
	switch cfg.Driver {
	case "file":
		return file.NewStore(cfg.File.DataDir)
	case "mongodb":
		return mongodb.NewStore(ctx, &mongodb.Config{
			URI:        cfg.MongoDB.URI,
			Database:   cfg.MongoDB.Database,
			Collection: cfg.MongoDB.Collection,
		})
	case "postgres":
		return postgres.NewStore(ctx, &postgres.Config{
			URL:            cfg.Postgres.URL,
			MaxConnections: cfg.Postgres.MaxConnections,
			ConnectTimeout: cfg.Postgres.ConnectTimeout,
		})
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
