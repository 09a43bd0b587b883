package main

import (
	"context"
	"dm-chat/auth"
	"dm-chat/controllers"
	"dm-chat/infrastructure/storage"
	"dm-chat/repositories"
	"dm-chat/routes"
	"dm-chat/runtime"
	"dm-chat/runtime/workers"
	"dm-chat/services"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every deferred cleanup (database
// close, sequence release) executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories, registry, attachment store
	messageRepository, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return err
	}
	defer func() { _ = messageRepository.Close() }()

	userRepository, err := repositories.NewUserRepository(db, log)
	if err != nil {
		return err
	}
	defer func() { _ = userRepository.Close() }()

	registry := runtime.NewRegistry(log)
	store := storage.NewDiskStore(config.UploadRoot, config.MaxAttachmentSize, log)
	tokens := auth.NewTokenManager(config.AuthSecretKey,
		config.AccessTokenDuration, config.RefreshTokenDuration)

	// 4. Services
	delivery := services.NewDeliveryService(messageRepository, store, registry,
		log, config.MaxContentLength)
	authService := services.NewAuthService(userRepository, tokens, log)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Background workers under supervision
	sup := workers.NewSupervisor(log)
	sup.Add(workers.NewUploadJanitor(config.UploadRoot, messageRepository, log,
		config.JanitorInterval, config.JanitorMinAge))
	go sup.Run(ctx)

	// 7. HTTP server
	router := routes.Router(routes.Deps{
		Messages: controllers.NewMessageController(delivery, log),
		Users:    controllers.NewUserController(authService, log),
		WS: controllers.NewWSController(delivery, registry, tokens, log,
			config.ConnectionBufferSize, config.DeliveryTimeout),
		Tokens:       tokens,
		UploadRoot:   config.UploadRoot,
		AllowOrigins: strings.Split(config.CORSAllowOrigin, ","),
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("Program stopped cleanly")

	return nil
}
