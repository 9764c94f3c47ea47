package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/db"
	"github.com/facegate/facegate/internal/facegate/recognize"
	"github.com/facegate/facegate/internal/facegate/server"
	"github.com/facegate/facegate/internal/facegate/service"
	"github.com/facegate/facegate/internal/facegate/session"
	"github.com/facegate/facegate/internal/facegate/store/sqlite"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "facegate-server ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			logger.Fatalf("seed dev data: %v", err)
		}
	}

	writer := db.NewWorker(conn)
	defer writer.Close()

	directory := sqlite.NewDirectoryStore(conn, writer)

	machine := session.New(session.Config{
		RequiredConsecutive: cfg.RequiredConsecutive,
		Cooldown:            cfg.Cooldown,
	}, logger)

	// Nop until a model backend is plugged in; the session pipeline is
	// exercised end to end either way.
	svc := service.NewSessionService(
		recognize.Nop{},
		recognize.NewAggregator(cfg.TopK, cfg.ThresholdPercent),
		machine,
		directory,
		logger,
	)

	srv := server.New(server.Dependencies{
		Logger:                 logger,
		BindAddr:               cfg.BindAddr,
		Session:                svc,
		RecvTimeout:            cfg.RecvTimeout,
		MaxConsecutiveTimeouts: cfg.MaxConsecutiveTimeouts,
	})

	if err := srv.Run(ctx); err != nil {
		logger.Printf("server error: %v", err)
		os.Exit(1)
	}
}
