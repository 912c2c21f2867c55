package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adnfaris/tripdana/internal/auth"
	"github.com/adnfaris/tripdana/internal/config"
	"github.com/adnfaris/tripdana/internal/gateway"
	"github.com/adnfaris/tripdana/internal/realtime"
	"github.com/adnfaris/tripdana/internal/server"
	"github.com/adnfaris/tripdana/internal/service"
	"github.com/adnfaris/tripdana/internal/storage/sqlite"
	"github.com/adnfaris/tripdana/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DB.Path)

	hub := realtime.NewHub()
	gw := gateway.NewMidtrans(cfg.Midtrans.ServerKey, cfg.Midtrans.Production)

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTLHours)*time.Hour)

	srv := server.New(cfg, server.Deps{
		Store: store,
		Authn: auth.NewPasswordAuthenticator(store),
		JWT:   jwtManager,
		Hub:   hub,

		Trips:   service.NewTripService(store, hub),
		Members: service.NewMemberService(store, hub),
		Savings: service.NewSavingsService(store, gw, hub, service.SavingsConfig{
			ServerKey:     cfg.Midtrans.ServerKey,
			OrderPrefix:   cfg.Midtrans.OrderPrefix,
			ExpiryMinutes: cfg.Midtrans.ExpiryMinutes,
		}),
		Withdrawals:  service.NewWithdrawalService(store, hub),
		Expenses:     service.NewExpenseService(store),
		Destinations: service.NewDestinationService(store),
		Audit:        service.NewAuditService(store),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-quit:
		slog.Info("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}
