package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/Bhogyaan/NRBLOG/internal/fanout"
	"github.com/Bhogyaan/NRBLOG/internal/server/middleware"
	"github.com/Bhogyaan/NRBLOG/internal/store"
	"github.com/Bhogyaan/NRBLOG/pkg/config"
	"github.com/Bhogyaan/NRBLOG/pkg/state"
	"github.com/Bhogyaan/NRBLOG/pkg/state/statemanager"
	"github.com/Bhogyaan/NRBLOG/pkg/transport"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

type App struct {
	logger       *slog.Logger
	stateManager state.Manager
	engine       *fanout.Engine
	wg           sync.WaitGroup
	http         *http.Server
	config       *config.Config

	ctx context.Context
}

func NewApp(logger *slog.Logger, rootCtx context.Context, cfg *config.Config, reader store.Reader) *App {
	stateManager := statemanager.NewInMemoryManager(logger)
	engine := fanout.NewEngine(logger, stateManager, reader)

	app := &App{
		logger:       logger,
		stateManager: stateManager,
		engine:       engine,
		config:       cfg,
		ctx:          rootCtx,
	}

	mux := http.NewServeMux()

	admitted := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h,
			middleware.RequestMetadataMiddleware(),
			middleware.NewRequestLogger(logger),
			middleware.NewAdmissionGate(logger, cfg.Server.Auth.JWTSecret),
		)
	}

	mux.Handle("GET /ws", admitted(app.upgradeHandler))
	app.registerModerationRoutes(mux, admitted)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	app.http = &http.Server{Addr: cfg.Server.Address, Handler: mux, BaseContext: func(l net.Listener) context.Context {
		return app.ctx
	}}

	return app
}

func (a *App) Run() error {
	go func() {
		a.logger.Info("Server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed", slog.Any("error", err))
		}
	}()

	<-a.ctx.Done()
	return a.Shutdown()
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
	connLogger := a.logger.With(
		slog.String("remoteAddr", reqMeta.IP),
		slog.String("userID", reqMeta.UserID),
	)

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		connLogger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		reqMeta.UserID,
		transport.ConnectionConfig{
			ReadTimeout: a.config.Transport.ReadTimeout,
			SendBuffer:  a.config.Transport.SendBuffer,
		},
		a.logger,
	)
	conn.SetOnMessageHandler(a.engine.HandleMessage)
	conn.SetOnCloseHandler(func(id uuid.UUID, err error) {
		connLogger.Info("Deregistering connection due to closure", slog.String("connID", id.String()))
		changed, online := a.stateManager.Unregister(id)
		if changed {
			a.engine.BroadcastOnlineUsers(online)
		}
	})

	// The identity was verified at admission; bind it and announce presence.
	online := a.stateManager.Register(reqMeta.UserID, conn.ID(), conn)
	a.engine.BroadcastOnlineUsers(online)

	connLogger.Info("User connection fully established")
	conn.Run()
	<-conn.Done()
}

// graceful shutdown sequence.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// close all active WebSocket connections.
	a.logger.Info("Closing all active connections...")
	for _, sink := range a.stateManager.AllSinks() {
		if conn, ok := sink.(interface{ Close(error) }); ok {
			conn.Close(errors.New("graceful shutdown"))
		}
	}

	// wait for all connection goroutines to finish their cleanup.
	a.wg.Wait()
	a.logger.Info("Server shut down gracefully.")
	return nil
}
