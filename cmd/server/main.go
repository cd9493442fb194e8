package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/canvasflow/internal/asset"
	"github.com/inamate/canvasflow/internal/auth"
	"github.com/inamate/canvasflow/internal/collab"
	"github.com/inamate/canvasflow/internal/config"
	"github.com/inamate/canvasflow/internal/export"
	mw "github.com/inamate/canvasflow/internal/middleware"
	"github.com/inamate/canvasflow/internal/scenes"
	"github.com/inamate/canvasflow/internal/surface"
)

const playgroundScene = "playground"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fonts, err := surface.NewFonts()
	if err != nil {
		slog.Error("load fonts", "error", err)
		os.Exit(1)
	}
	if cfg.FontsDir != "" {
		n, err := fonts.LoadDir(cfg.FontsDir)
		if err != nil {
			slog.Error("load font dir", "dir", cfg.FontsDir, "error", err)
			os.Exit(1)
		}
		slog.Info("fonts loaded", "dir", cfg.FontsDir, "count", n)
	}

	defaults, err := config.LoadDefaults(cfg.DefaultsFile)
	if err != nil {
		slog.Error("load defaults", "file", cfg.DefaultsFile, "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(cfg.APIKeyHash, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)
	if !authService.Enabled() {
		slog.Warn("API_KEY_HASH not set, API is open")
	}

	sceneService := scenes.NewService(scenes.Options{
		Fonts:    fonts,
		Defaults: defaults,
		Loader:   asset.NewLoader(cfg.AssetDir, cfg.AssetFetchTimeout),
		Width:    cfg.CanvasWidth,
		Height:   cfg.CanvasHeight,
	})
	sceneHandler := scenes.NewHandler(sceneService)

	playground, err := sceneService.CreateSample(ctx, playgroundScene)
	if err != nil {
		slog.Error("create playground scene", "error", err)
		os.Exit(1)
	}

	hub := collab.NewHub(sceneService)
	sceneService.OnFrame(hub.BroadcastFrame)
	sceneService.OnDelete(hub.CloseScene)
	go hub.Run()

	assetHandler := asset.NewHandler(cfg.AssetDir)
	exportHandler := export.NewHandler(sceneService, fonts)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.AllowedOrigins))

	// Preflight requests never reach a route handler
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	r.HandleFunc("/auth/token", authHandler.Token).Methods("POST")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST")
	api.HandleFunc("/assets/{id}", assetHandler.Remove).Methods("DELETE")
	api.HandleFunc("/scenes/{sceneId}/export.png", exportHandler.ExportPNG).Methods("GET")
	sceneHandler.Register(api)

	// WebSocket endpoint
	r.HandleFunc("/ws/scene/{sceneId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, cfg.OriginHosts())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "playground", playground.ID)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, origins []string) {
	sceneID := mux.Vars(r)["sceneId"]

	var userID, displayName string
	if authSvc.Enabled() {
		// Browsers cannot set headers on websocket requests
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		session, err := authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		userID, displayName = session.ID, session.Name
	} else {
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, userID, displayName, sceneID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
