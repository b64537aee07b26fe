package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FirepowerKit/internal/config"
	"FirepowerKit/internal/logging"
	"FirepowerKit/internal/query"

	"github.com/alexflint/go-arg"
	log "github.com/sirupsen/logrus"
)

type args struct {
	Config string `arg:"-c,--config" help:"path to the YAML config" default:"configs/config.yaml"`
	Listen string `arg:"-l,--listen" help:"listen address, overrides api.listen_addr"`
}

func (args) Description() string {
	return "Serves stored flow reports and rule profiles from ClickHouse."
}

func main() {
	var a args
	arg.MustParse(&a)

	cfg, err := config.LoadConfig(a.Config)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logging.Setup(cfg.Log); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	if a.Listen != "" {
		cfg.API.ListenAddr = a.Listen
	}

	querier, err := query.NewClickHouseQuerier(context.Background(), cfg.API.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to create querier: %v", err)
	}

	server := &http.Server{
		Addr:              cfg.API.ListenAddr,
		Handler:           NewRouter(&APIHandler{querier: querier}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("API server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Info("API server exited.")
}
