package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/delta10/layer-catalog/internal/api"
	"github.com/delta10/layer-catalog/internal/auth"
	"github.com/delta10/layer-catalog/internal/cache"
	"github.com/delta10/layer-catalog/internal/catalog"
	"github.com/delta10/layer-catalog/internal/client"
	"github.com/delta10/layer-catalog/internal/config"
	"github.com/delta10/layer-catalog/internal/logging"
	"github.com/delta10/layer-catalog/internal/wms"
)

var (
	configPath string
	logger     zerolog.Logger
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "layer-catalog",
	Short: "Layer catalog for WMS services",
	Long:  "layer-catalog flattens the capability documents of configured WMS services into layer records with resolved time dimensions.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the catalog HTTP server",
	RunE:  runServe,
}

var layersCmd = &cobra.Command{
	Use:   "layers <service>",
	Short: "Print the layer records of a configured service",
	Args:  cobra.ExactArgs(1),
	RunE:  runLayers,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the configuration file")
	layersCmd.Flags().Int("limit", 0, "maximum instants generated per interval, -1 for no bound")
	layersCmd.Flags().Bool("sorted", true, "sort the time axis chronologically")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(layersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.NewConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Msg("layer catalog starting")

	documentCache := cache.Disabled(logger)
	if cfg.Cache.RedisAddress != "" {
		var err error
		documentCache, err = cache.New(cache.Config{
			RedisAddr:      cfg.Cache.RedisAddress,
			RedisPassword:  cfg.Cache.RedisPassword,
			RedisDB:        cfg.Cache.RedisDB,
			DocumentTTL:    cfg.Cache.TTLDuration(),
			DisableOnError: true,
		}, logger)
		if err != nil {
			return fmt.Errorf("initialize cache: %w", err)
		}
	}
	defer func() {
		if err := documentCache.Close(); err != nil {
			logger.Error().Err(err).Msg("could not close cache")
		}
	}()

	var verifier *auth.Verifier
	if cfg.JwksURL != "" {
		var err error
		verifier, err = auth.NewVerifier(cfg.JwksURL, logger)
		if err != nil {
			return fmt.Errorf("initialize token verifier: %w", err)
		}
	}

	server := api.NewServer(cfg, client.New(), documentCache, verifier, logger)

	httpServer := &http.Server{
		Addr:           cfg.ListenAddress,
		Handler:        server.Router(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddress).Msg("HTTP server listening")

		var err error
		if cfg.ListenTLS.Certificate != "" && cfg.ListenTLS.Key != "" {
			err = httpServer.ListenAndServeTLS(cfg.ListenTLS.Certificate, cfg.ListenTLS.Key)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("layer catalog stopped")
	return nil
}

func runLayers(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	slug := args[0]
	service, ok := cfg.Services[slug]
	if !ok {
		return fmt.Errorf("could not find service with this slug: %s", slug)
	}

	opts := catalog.DefaultBuildOptions()
	opts.Limit = cfg.InstantLimit
	if service.ExcludedLayers != nil {
		opts.Excluded = service.ExcludedLayers
	}

	if cmd.Flags().Changed("limit") {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		opts.Limit = limit
	}

	sorted, err := cmd.Flags().GetBool("sorted")
	if err != nil {
		return err
	}
	opts.Sorted = sorted

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	doc, err := client.New().FetchCapabilities(ctx, service)
	if err != nil {
		return fmt.Errorf("fetch capabilities: %w", err)
	}

	capabilities, err := wms.ParseCapabilities(doc)
	if err != nil {
		return err
	}

	node, err := catalog.Classify(capabilities)
	if err != nil {
		return err
	}

	leaves, err := catalog.Flatten(node)
	if err != nil {
		return err
	}

	records, err := catalog.BuildRecords(leaves, catalog.ServiceEndpoint(capabilities), opts)
	if err != nil {
		return fmt.Errorf("build layer records: %w", err)
	}

	output, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return err
	}

	fmt.Println(string(output))
	return nil
}
