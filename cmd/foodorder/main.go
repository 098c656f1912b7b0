// Command foodorder runs the food ordering API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dabbahouse/foodorder/internal/app/runtime"
	"github.com/dabbahouse/foodorder/internal/config"
	"github.com/dabbahouse/foodorder/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config (defaults to $FOODORDER_CONFIG)")
		envFile    = flag.String("env", ".env", "Optional .env file loaded before reading the environment")
		migrate    = flag.Bool("migrate", false, "Apply the database schema on start")
		addr       = flag.String("addr", "", "Override listen host:port")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *migrate {
		cfg.Database.Migrate = true
	}
	if *addr != "" {
		if err := applyAddr(cfg, *addr); err != nil {
			fmt.Fprintf(os.Stderr, "invalid --addr: %v\n", err)
			os.Exit(2)
		}
	}

	log := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := runtime.NewApplication(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialise application")
	}

	if err := application.Run(ctx); err != nil {
		log.WithError(err).Error("server stopped unexpectedly")
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown incomplete")
		os.Exit(1)
	}
	log.Info("server stopped")
}

func applyAddr(cfg *config.Config, addr string) error {
	host, port, err := config.SplitAddr(addr)
	if err != nil {
		return err
	}
	cfg.Server.Host = host
	cfg.Server.Port = port
	return cfg.Validate()
}
