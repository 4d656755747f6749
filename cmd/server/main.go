package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"smart-reader/internal/config"
	"smart-reader/internal/domain"
	"smart-reader/internal/handler"
	"smart-reader/internal/logging"
	"smart-reader/internal/middleware"
	"smart-reader/internal/provider"
	"smart-reader/internal/repository"
	"smart-reader/internal/service"
	"smart-reader/internal/session"
	"smart-reader/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", "err", err)
	}

	logger := logging.New(os.Stderr, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, created, err := repository.ConnectCouchDB(ctx, cfg.Database.URL(), cfg.Database.Name)
	if err != nil {
		logger.Fatal("remote store unavailable", "err", err)
	}
	if created {
		logger.Info("created database", "name", cfg.Database.Name)
	}

	local, err := repository.OpenLocalProjectRepository(cfg.Local.Path)
	if err != nil {
		logger.Fatal("failed to open local store", "path", cfg.Local.Path, "err", err)
	}
	defer local.Close()

	userRepo := repository.NewUserRepository(client, cfg.Database.Name)
	resetRepo := repository.NewPasswordResetRepository(client, cfg.Database.Name)
	remote := repository.NewRemoteProjectRepository(client, cfg.Database.Name, logging.Component(logger, "remote"))

	// WebSocket Manager
	wsManager := websocket.NewManager(websocket.ManagerOptions{
		MaxConnPerKey:  cfg.WebSocket.MaxConnPerUser,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod,
	}, logging.Component(logger, "ws"))
	go wsManager.Run()

	migrationService := service.NewMigrationService(local, remote, wsManager, logging.Component(logger, "migration"))
	sessions := session.NewController(migrationService, wsManager, logging.Component(logger, "session"))

	projectService := service.NewProjectService(local, remote, wsManager, logging.Component(logger, "projects"), service.ProjectServiceOptions{
		GuestLimit: cfg.Guest.MaxProjects,
		LiveRemote: cfg.Sync.LiveUpdates,
	})
	authService := service.NewAuthService(
		userRepo,
		resetRepo,
		service.LogResetDelivery{Logger: logging.Component(logger, "reset")},
		cfg.JWT.Secret,
		cfg.JWT.Expiration,
		cfg.JWT.RefreshTokenExpiration,
	)
	googleService := service.NewGoogleAuthService(cfg.Google, authService)
	userService := service.NewUserService(userRepo)
	preferencesService := service.NewPreferencesService(local, logging.Component(logger, "preferences"))

	translator := provider.NewTranslator(&http.Client{Timeout: cfg.Translation.Timeout}, provider.TranslatorOptions{
		BaseURL:           cfg.Translation.BaseURL,
		SourceLang:        cfg.Translation.SourceLang,
		TargetLang:        cfg.Translation.TargetLang,
		RequestsPerSecond: cfg.Translation.RequestsPerSecond,
	}, logging.Component(logger, "translate"))
	translationService := service.NewTranslationService(translator)
	speechService := service.NewSpeechService(provider.NewSpeech(&http.Client{Timeout: cfg.Speech.Timeout}, cfg.Speech.TTSBaseURL))

	if cfg.Sync.LiveUpdates {
		feed := repository.NewRemoteChangeFeed(client, cfg.Database.Name, logging.Component(logger, "changes"))
		go feed.Run(ctx, func(userID string, event domain.Event) {
			wsManager.Notify(userID, event)
		})
	}

	httpLogger := logging.Component(logger, "http")
	wsMessageHandler := handler.NewWebSocketMessageHandler(sessions, httpLogger)
	wsManager.SetMessageHandler(wsMessageHandler)

	authHandler := handler.NewAuthHandler(authService, googleService, sessions, httpLogger)
	userHandler := handler.NewUserHandler(userService, httpLogger)
	sessionHandler := handler.NewSessionHandler(sessions, wsManager)
	projectHandler := handler.NewProjectHandler(projectService, sessions, wsManager, httpLogger)
	readerHandler := handler.NewReaderHandler(translationService, speechService, httpLogger)
	preferencesHandler := handler.NewPreferencesHandler(preferencesService, httpLogger)
	wsHandler := handler.NewWebSocketHandler(wsManager, cfg.JWT.Secret, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize, logging.Component(logger, "ws"))

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(httpLogger))
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.SessionMiddleware(cfg.JWT.Secret, sessions))

	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/refresh", authHandler.RefreshToken).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/password-reset", authHandler.RequestPasswordReset).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/password-reset/confirm", authHandler.ConfirmPasswordReset).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/google/login", authHandler.GoogleLogin).Methods("GET", "OPTIONS")
	api.HandleFunc("/auth/google/callback", authHandler.GoogleCallback).Methods("GET", "OPTIONS")

	api.HandleFunc("/session", sessionHandler.GetSession).Methods("GET", "OPTIONS")
	api.HandleFunc("/session/new-project", sessionHandler.NewProject).Methods("POST", "OPTIONS")

	api.HandleFunc("/projects", projectHandler.ListProjects).Methods("GET", "OPTIONS")
	api.HandleFunc("/projects", projectHandler.CommitContent).Methods("POST", "OPTIONS")
	api.HandleFunc("/projects/{id}", projectHandler.GetProject).Methods("GET", "OPTIONS")
	api.HandleFunc("/projects/{id}", projectHandler.SaveProject).Methods("PUT", "OPTIONS")
	api.HandleFunc("/projects/{id}", projectHandler.DeleteProject).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/projects/{id}/rename", projectHandler.RenameProject).Methods("POST", "OPTIONS")
	api.HandleFunc("/projects/{id}/pin", projectHandler.TogglePin).Methods("POST", "OPTIONS")
	api.HandleFunc("/projects/{id}/share", projectHandler.ShareProject).Methods("GET", "OPTIONS")
	api.HandleFunc("/projects/{id}/notes", projectHandler.ListNotes).Methods("GET", "OPTIONS")
	api.HandleFunc("/projects/{id}/notes", projectHandler.AddNote).Methods("POST", "OPTIONS")
	api.HandleFunc("/projects/{id}/notes/check", projectHandler.CheckNote).Methods("GET", "OPTIONS")
	api.HandleFunc("/projects/{id}/notes/{ref}", projectHandler.DeleteNote).Methods("DELETE", "OPTIONS")

	api.HandleFunc("/translate", readerHandler.Translate).Methods("GET", "OPTIONS")
	api.HandleFunc("/speech/plan", readerHandler.SpeechPlan).Methods("GET", "OPTIONS")
	api.HandleFunc("/speech/audio", readerHandler.SpeechAudio).Methods("GET", "OPTIONS")

	api.HandleFunc("/preferences", preferencesHandler.GetPreferences).Methods("GET", "OPTIONS")
	api.HandleFunc("/preferences", preferencesHandler.UpdatePreferences).Methods("PUT", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.RequireAuth)
	protected.HandleFunc("/users/me", userHandler.GetMe).Methods("GET", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)

	r.HandleFunc("/health", healthHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("starting smart reader", "addr", addr, "env", cfg.Server.Env, "local", local.Path())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
		return
	}

	logger.Info("server stopped gracefully")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"smart-reader"}`))
}
