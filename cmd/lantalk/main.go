package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"lantalk/infrastructure/httpapi"
	"lantalk/infrastructure/ws"
	"lantalk/internal"
	"lantalk/repositories"
	"lantalk/services"
	"lantalk/storage"
	"lantalk/workers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanup (database close, graceful
// shutdown) always executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.NewLogger(config.LogLevel)

	// 2. Stores
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	historyRepo, err := repositories.NewHistoryRepository(config.DataFile, log)
	if err != nil {
		return fmt.Errorf("chat history unavailable: %w", err)
	}
	metaRepo := repositories.NewFileMetaRepository(db, log)
	disk, err := storage.NewDisk(config.FilesDir, log)
	if err != nil {
		return fmt.Errorf("files directory unavailable: %w", err)
	}

	// 3. Transfer engine & channel
	chunkStore := services.NewChunkStore(log)
	reassembler := services.NewReassembler(log)
	hub := ws.NewHub(log, historyRepo, ws.Options{
		SendBufferSize:  config.SendBufferSize,
		MaxMessageBytes: config.MaxMessageBytes,
		WriteTimeout:    config.WriteTimeout,
		PingInterval:    config.PingInterval,
	})
	chatService := services.NewChatService(log, chunkStore, reassembler, disk, metaRepo, historyRepo, hub)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Background workers
	sup := workers.NewSupervisor(log)
	sup.Add(workers.NewSweeper(chunkStore, config.SweepInterval, config.TransferTTL, log))
	go sup.Run(ctx)

	// 6. HTTP server
	api := httpapi.NewServer(log, hub, chatService, historyRepo, disk, metaRepo)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: api.Routes()}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting LANTalk relay", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
