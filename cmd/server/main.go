package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/digital-diner/backend/internal/auth"
	"github.com/digital-diner/backend/internal/config"
	"github.com/digital-diner/backend/internal/db"
	"github.com/digital-diner/backend/internal/handler"
	"github.com/digital-diner/backend/internal/menu"
	"github.com/digital-diner/backend/internal/order"
	"github.com/digital-diner/backend/internal/transport"
	"github.com/digital-diner/backend/internal/user"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "digital-diner").Logger()

	log.Info().Msg("Digital Diner backend starting...")

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx := context.Background()

	postgres, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer postgres.Close()

	mongoDB, err := db.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		// log.Fatal завершает процесс, минуя defer — пул закрываем здесь
		postgres.Close()
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongoDB.Close(disconnectCtx)
	}()

	tokens := auth.NewManager(cfg.App.JWTSecret)

	orderService := order.NewService(order.NewRepository(postgres.Pool))
	menuService := menu.NewService(menu.NewRepository(mongoDB.Database))
	userService := user.NewService(user.NewRepository(postgres.Pool), tokens)

	router := transport.NewRouter(transport.Handlers{
		Order: handler.NewOrderHandler(orderService),
		Menu:  handler.NewMenuHandler(menuService),
		User:  handler.NewUserHandler(userService),
	}, tokens)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
		return
	}
	log.Info().Msg("Server stopped")
}
