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

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Axelpuff/schedassist/internal/application"
	"github.com/Axelpuff/schedassist/internal/calendar"
	"github.com/Axelpuff/schedassist/internal/calendar/ics"
	"github.com/Axelpuff/schedassist/internal/config"
	"github.com/Axelpuff/schedassist/internal/genai"
	httptransport "github.com/Axelpuff/schedassist/internal/http"
	"github.com/Axelpuff/schedassist/internal/persistence/memory"
	"github.com/Axelpuff/schedassist/internal/persistence/sqlite"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "schedassist",
		Short:         "Conversational calendar scheduling assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newVersionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return err
	}

	idGenerator := uuid.NewString
	now := time.Now

	conversations := memory.NewConversationStore()
	var proposals application.ProposalRepository
	var undo application.UndoRepository
	if cfg.SQLiteDSN != "" {
		store, err := sqlite.Open(ctx, cfg.SQLiteDSN)
		if err != nil {
			logger.Error("failed to open storage", "error", err)
			return err
		}
		defer func() {
			if cerr := store.Close(); cerr != nil {
				logger.Error("failed to close storage", "error", cerr)
			}
		}()
		proposals = sqlite.NewProposalRepository(store)
		undo = sqlite.NewUndoRepository(store)
		logger.Info("durable storage enabled", "dsn", cfg.SQLiteDSN)
	} else {
		proposals = memory.NewProposalRepository()
		undo = memory.NewUndoRepository()
	}

	var provider calendar.Provider
	if cfg.CalendarBaseURL != "" {
		provider = calendar.NewRESTProvider(cfg.CalendarBaseURL, nil)
	} else {
		provider = ics.NewFeedProvider(cfg.CalendarICSFeed, nil, 5*time.Minute, now)
		logger.Info("using read-mostly ICS feed provider", "feed", cfg.CalendarICSFeed)
	}

	generator := genai.NewClient(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey, nil)

	conversationService := application.NewConversationService(application.ConversationServiceDeps{
		Conversations:    conversations,
		Proposals:        proposals,
		Provider:         provider,
		Generator:        generator,
		IDGenerator:      idGenerator,
		Now:              now,
		Logger:           logger,
		Defaults:         cfg.Preferences,
		ClarifyThreshold: cfg.ClarifyThreshold,
	})
	syncService := application.NewSyncService(application.SyncServiceDeps{
		Provider:      provider,
		Proposals:     proposals,
		Conversations: conversations,
		Undo:          undo,
		IDGenerator:   idGenerator,
		Now:           now,
		Logger:        logger,
	})

	janitor := application.NewJanitor(application.JanitorDeps{
		Conversations: conversations,
		Undo:          undo,
		Retention:     cfg.Retention,
		Now:           now,
		Logger:        logger,
	})
	if err := janitor.Start(cfg.JanitorSpec); err != nil {
		logger.Error("failed to start janitor", "error", err)
		return err
	}
	defer janitor.Stop()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Health:        httptransport.NewHealthHandler(conversationService, logger),
		Conversations: httptransport.NewConversationHandler(conversationService, logger),
		Sync:          httptransport.NewSyncHandler(syncService, logger),
		APIMiddleware: []func(http.Handler) http.Handler{
			httptransport.RequireCredential(logger),
		},
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("assistant API listening", "addr", server.Addr, "version", version)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return err
	}
	return nil
}
