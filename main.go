package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"chirp-backend/config"
	"chirp-backend/contracts"
	"chirp-backend/datastore"
	"chirp-backend/datastore/memory"
	"chirp-backend/datastore/postgres"
	"chirp-backend/datastore/sanity"
	"chirp-backend/feed"
	"chirp-backend/handlers"
	"chirp-backend/middleware"
	"chirp-backend/minting"
	"chirp-backend/pinning"
	"chirp-backend/profiles"
	"chirp-backend/session"
	"chirp-backend/wallet"
)

const (
	commandUse              = "chirpd"
	commandShortDescription = "Serve the wallet-backed microblog API"
	flagPortName            = "port"
	flagDriverName          = "driver"
	shutdownTimeout         = 10 * time.Second
	limiterCleanupInterval  = 5 * time.Minute
)

func main() {
	cobra.CheckErr(newServerCommand().Execute())
}

func newServerCommand() *cobra.Command {
	v := viper.New()
	command := &cobra.Command{
		Use:   commandUse,
		Short: commandShortDescription,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v)
		},
	}

	command.Flags().String(flagPortName, "", "Port for the HTTP server (env PORT)")
	command.Flags().String(flagDriverName, "", "Datastore driver: sanity, postgres or memory (env DATASTORE_DRIVER)")
	cobra.CheckErr(v.BindPFlag(config.KeyPort, command.Flags().Lookup(flagPortName)))
	cobra.CheckErr(v.BindPFlag(config.KeyDatastoreDriver, command.Flags().Lookup(flagDriverName)))

	config.SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return command
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func connectToDatastore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (datastore.Store, func(), error) {
	switch cfg.DatastoreDriver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		store := postgres.NewStore(pool, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("successfully connected to the database")
		return store, pool.Close, nil
	case config.DriverMemory:
		logger.Warn("using in-memory datastore; documents are lost on exit")
		return memory.New(), func() {}, nil
	}

	client, err := sanity.NewClient(sanity.Config{
		ProjectID:  cfg.SanityProjectID,
		Dataset:    cfg.SanityDataset,
		Token:      cfg.SanityToken,
		APIVersion: cfg.SanityAPIVersion,
		BaseURL:    cfg.SanityBaseURL,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return sanity.NewStore(client), func() {}, nil
}

func connectToEthereum(ctx context.Context, rpcURL string, logger *zap.Logger) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum client: %w", err)
	}
	logger.Info("connected to Ethereum node", zap.String("rpc_url", rpcURL))
	return client, nil
}

func run(ctx context.Context, v *viper.Viper) error {
	loadedEnv := config.LoadDotEnv()

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	if !loadedEnv {
		logger.Warn(".env file not found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := connectToDatastore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ethClient, err := connectToEthereum(ctx, cfg.RPCURL, logger)
	if err != nil {
		return err
	}
	defer ethClient.Close()

	nft, err := contracts.NewProfileImageNFT(ethClient, cfg.ContractAddress)
	if err != nil {
		return err
	}

	gateway := pinning.NewGateway(cfg.GatewayURL)
	pinner := pinning.NewClient(pinning.Config{
		APIKey:    cfg.PinataAPIKey,
		SecretKey: cfg.PinataSecretKey,
		BaseURL:   cfg.PinataBaseURL,
		Logger:    logger.Named("pinning"),
	})
	signer := wallet.New(cfg.KeystoreDir, cfg.KeystorePassphrase, logger.Named("wallet"))

	profileService := profiles.NewService(store, gateway, logger.Named("profiles"))
	feedService := feed.NewService(store, gateway, feed.Options{Logger: logger.Named("feed")})
	machine := session.NewMachine(signer, profileService, feedService, logger.Named("session"))
	minter := minting.NewMinter(pinner, profileService, signer, nft, logger.Named("minting"))

	if state, err := machine.Mount(ctx); err != nil {
		logger.Error("wallet probe on startup failed", zap.Error(err))
	} else {
		logger.Info("session mounted", zap.String("status", string(state.Status)), zap.String("account", state.CurrentAccount))
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger.Named("ratelimit"))
	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(handlers.RouterConfig{
		Machine:     machine,
		Profiles:    profileService,
		Balances:    nft,
		Minter:      minter,
		Pinner:      pinner,
		RateLimiter: limiter,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger.Named("http"),
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
