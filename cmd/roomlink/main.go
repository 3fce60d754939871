package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/roomlink/realtime/internal/broker"
	"github.com/roomlink/realtime/internal/config"
	"github.com/roomlink/realtime/internal/connection"
	"github.com/roomlink/realtime/internal/credentials"
	"github.com/roomlink/realtime/internal/protocol"
	"github.com/roomlink/realtime/internal/room"
	"github.com/roomlink/realtime/internal/state"
	"github.com/roomlink/realtime/internal/token"
	"github.com/roomlink/realtime/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/client.yaml", "path to config file")
	joinRoom := flag.String("join", "", "room ID to join after connecting")
	userID := flag.String("user", "", "user ID for room operations")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	runID := uuid.NewString()
	logger.Info("starting roomlink client",
		"version", version.Version,
		"commit", version.Commit,
		"run_id", runID,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Credential provider
	var provider credentials.Provider
	if cfg.Auth.JWT {
		jwtProvider, err := credentials.NewJWT(cfg.Auth.Token, cfg.Auth.Leeway)
		if err != nil {
			logger.Error("invalid auth token", "error", err)
			os.Exit(1)
		}
		provider = jwtProvider
	} else {
		provider = credentials.NewStatic(cfg.Auth.Token)
	}

	// State sink: Postgres when configured, in-memory otherwise
	var sink state.Sink
	if cfg.State.Postgres.Host != "" {
		logger.Info("connecting to state store",
			"host", cfg.State.Postgres.Host,
			"database", cfg.State.Postgres.Name,
		)
		pgSink, err := state.NewPostgresSink(ctx, cfg.State.Postgres)
		if err != nil {
			logger.Error("failed to connect to state store", "error", err)
			os.Exit(1)
		}
		defer pgSink.Close()
		sink = pgSink
	} else {
		sink = state.NewMemorySink()
	}

	// Connection manager
	connCfg := connection.Config{
		URL:            cfg.Server.URL,
		ConnectTimeout: cfg.Connection.ConnectTimeout,
		WriteTimeout:   cfg.Connection.WriteTimeout,
		PingTimeout:    cfg.Connection.PingTimeout,
		BufferSize:     cfg.Connection.BufferSize,
		Refresh: token.Config{
			Interval: cfg.Auth.RefreshInterval,
			Policy:   token.Policy(cfg.Auth.OnInvalid),
		},
	}
	mgr := connection.NewManager(connCfg, provider, logger)
	defer mgr.Close()

	// Room coordinator
	rooms := room.NewCoordinator(room.Config{
		OperationTimeout: cfg.Rooms.OperationTimeout,
		LegacyRoomJoined: cfg.Rooms.LegacyRoomJoined,
	}, mgr, logger)
	defer rooms.Close()

	// Chat message printer
	messages := mgr.Broker().Subscribe(broker.CategoryMessage, 64)
	defer messages.Cancel()
	go func() {
		for ev := range messages.C {
			if msg, ok := ev.Payload.(protocol.ChatMessage); ok {
				logger.Info("message",
					"room_id", msg.RoomID,
					"sender", msg.Sender,
					"text", msg.Message,
				)
			}
		}
	}()

	// State reconciler drives the connect
	reconciler := state.NewReconciler(state.Config{
		Key:             cfg.State.Key,
		TrustSinkOnInit: cfg.State.TrustSinkOnInit,
	}, mgr, rooms, sink, logger)
	defer reconciler.Close()

	connected, err := reconciler.Initialize(ctx)
	if err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	logger.Info("session up", "connected", connected)

	if *joinRoom != "" {
		membership, err := rooms.JoinRoom(ctx, *joinRoom, *userID)
		if err != nil {
			logger.Error("failed to join room", "room_id", *joinRoom, "error", err)
			os.Exit(1)
		}
		logger.Info("joined room",
			"room_id", membership.RoomID,
			"current_size", membership.CurrentSize,
			"max_size", membership.MaxSize,
		)
	}

	// Wait for shutdown
	<-ctx.Done()

	stats := mgr.Stats()
	logger.Info("shutting down...",
		"state", stats.State,
		"session_id", stats.SessionID,
		"pending_requests", stats.PendingRequests,
	)
	mgr.Disconnect()
	logger.Info("roomlink client stopped")
}
