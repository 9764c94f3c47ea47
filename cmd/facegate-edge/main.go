package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/facegate/capture"
	"github.com/facegate/facegate/internal/facegate/edge"
	"github.com/facegate/facegate/internal/facegate/gate"
	"github.com/facegate/facegate/internal/facegate/identity"
	"github.com/facegate/facegate/internal/facegate/transport"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "facegate-edge ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cam, err := capture.OpenWebcam(cfg.Cam)
	if err != nil {
		logger.Fatalf("open webcam %d: %v", cfg.Cam, err)
	}
	defer cam.Close()

	ch, err := transport.Dial(cfg.ServerAddr, logger)
	if err != nil {
		logger.Fatalf("connect %s: %v", cfg.ServerAddr, err)
	}
	defer ch.Close()
	logger.Printf("connected to %s", cfg.ServerAddr)

	var cards identity.Source = identity.NoCardSource{}
	if cfg.Virtual {
		// Card-less debug mode: identities typed on stdin stand in for
		// swipes.
		manual := identity.NewManualSource()
		go manual.ReadLines(ctx, os.Stdin)
		cards = manual
		logger.Printf("virtual mode: type an identity and press enter to claim it")
	}

	gateway := gate.NewGateway(gate.LogActuator{Logger: logger}, cfg.Cooldown, logger)

	cli := edge.New(edge.Dependencies{
		Logger:                 logger,
		Conn:                   ch,
		Capture:                cam,
		Cards:                  cards,
		Gate:                   gateway,
		RecvTimeout:            cfg.RecvTimeout,
		MaxConsecutiveTimeouts: cfg.MaxConsecutiveTimeouts,
		CardMaxAge:             cfg.CardMaxAge,
		MaxInFlightSends:       cfg.MaxInFlightSends,
	})

	if err := cli.Run(ctx); err != nil {
		logger.Printf("session ended: %v", err)
		os.Exit(1)
	}
}
