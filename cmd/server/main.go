package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"nikosoko-backend/internal/app"
	api "nikosoko-backend/internal/api/grpc"
	"nikosoko-backend/internal/api/grpc/interceptor"
	httpapi "nikosoko-backend/internal/api/http"
	"nikosoko-backend/internal/config"
	"nikosoko-backend/internal/logger"
	"nikosoko-backend/internal/security"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	guardToken := flag.String("guard-token", "", "Print a guard device token for the named scanner and exit")
	guardTTL := flag.Duration("guard-token-ttl", 90*24*time.Hour, "Lifetime of the printed guard token")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	if *guardToken != "" {
		tm := security.NewTokenManager(cfg.JWT.Secret, time.Minute, time.Minute)
		token, err := tm.GenerateDeviceToken(*guardToken, []string{security.RoleGuard}, *guardTTL)
		if err != nil {
			log.Fatalf("Failed to issue guard token: %v", err)
		}
		fmt.Println(token)
		return
	}

	logger.Info("Starting Niko Soko Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "grpc_address", cfg.GetServerAddress(), "http_address", cfg.GetHTTPAddress())
	logger.Info("Backends", "storage", cfg.Storage.Type, "lock", cfg.Lock.Type, "nats", cfg.NATS.URL != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()

	// Set up gRPC server
	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	authInterceptor := interceptor.NewAuthInterceptor(a.Tokens)
	s := grpc.NewServer(
		grpc.UnaryInterceptor(authInterceptor.Unary()),
	)

	// Register services
	api.Register(s,
		api.NewAuthHandler(a.Auth),
		api.NewMembershipHandler(a.Organizations, a.Membership),
		api.NewGatePassHandler(a.GatePass, a.Premises),
		api.NewInboxHandler(a.Notifications),
	)

	// Register reflection service for grpcurl
	reflection.Register(s)

	// HTTP listener for gate scanners, health and metrics
	var db httpapi.Pinger
	if a.DB != nil {
		db = a.DB
	}
	httpServer := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           httpapi.NewRouter(httpapi.NewGateHandler(a.GatePass, a.Tokens), a.Metrics.Handler(), db, cfg.HTTP.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown error", "error", err)
		}
		s.GracefulStop()
	}()

	logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
	if err := s.Serve(lis); err != nil {
		logger.Error("Failed to serve gRPC", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
	logger.Info("Server stopped")
}
