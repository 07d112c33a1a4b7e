package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/msolakov/pdns-facade/api"
	"github.com/msolakov/pdns-facade/pdns"
	"github.com/msolakov/pdns-facade/provision"
)

type config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	PrimaryAPIURL   string `env:"PDNS_PRIMARY_API_URL"`
	PrimaryAPIKey   string `env:"PDNS_PRIMARY_API_KEY"`
	PrimaryServerID string `env:"PDNS_PRIMARY_SERVER_ID" envDefault:"localhost"`

	SecondaryAPIURL   string `env:"PDNS_SECONDARY_API_URL"`
	SecondaryAPIKey   string `env:"PDNS_SECONDARY_API_KEY"`
	SecondaryServerID string `env:"PDNS_SECONDARY_SERVER_ID" envDefault:"localhost"`

	Nameservers []string `env:"ZONE_NAMESERVERS" envSeparator:","`
	Hostmaster  string   `env:"ZONE_HOSTMASTER"`
	DefaultTTL  int      `env:"ZONE_DEFAULT_TTL" envDefault:"3600"`

	SecondaryDeleteRetries uint64 `env:"SECONDARY_DELETE_RETRIES" envDefault:"2"`
}

func (c *config) Validate() error {
	if c.PrimaryAPIURL == "" {
		return errors.New("PDNS_PRIMARY_API_URL is required")
	}

	if c.PrimaryAPIKey == "" {
		return errors.New("PDNS_PRIMARY_API_KEY is required")
	}

	if c.SecondaryAPIURL == "" {
		return errors.New("PDNS_SECONDARY_API_URL is required")
	}

	if c.SecondaryAPIKey == "" {
		return errors.New("PDNS_SECONDARY_API_KEY is required")
	}

	if len(c.Nameservers) == 0 {
		return errors.New("ZONE_NAMESERVERS is required")
	}

	if c.Hostmaster == "" {
		return errors.New("ZONE_HOSTMASTER is required")
	}

	return nil
}

func LoadConfig() (config, error) {
	_ = godotenv.Load()

	var c config
	err := env.Parse(&c)
	return c, err
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runId := uuid.New().String()

	logger := slog.New(tint.NewHandler(os.Stderr, nil))
	logger = logger.With("runId", runId)

	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %v", err)
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("error validating config: %v", err)
	}

	primary := pdns.NewClient(config.PrimaryAPIURL, config.PrimaryAPIKey, config.PrimaryServerID)
	secondary := pdns.NewClient(config.SecondaryAPIURL, config.SecondaryAPIKey, config.SecondaryServerID)

	facade := provision.New(primary, secondary, provision.Config{
		Nameservers:            config.Nameservers,
		Hostmaster:             config.Hostmaster,
		DefaultTTL:             config.DefaultTTL,
		SecondaryDeleteRetries: config.SecondaryDeleteRetries,
	}, logger)

	server := api.NewServer(facade, config.ListenAddr, logger)

	if err := server.Start(); err != nil {
		return fmt.Errorf("error starting api server: %v", err)
	}

	logger.Info("Facade started", "listen", config.ListenAddr, "primary", config.PrimaryAPIURL, "secondary", config.SecondaryAPIURL)

	<-ctx.Done()

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Stop(shutdownCtx)
}
