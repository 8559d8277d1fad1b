package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"shopdesk/moderation"
	"shopdesk/notify"
	"shopdesk/repositories"
	"shopdesk/resolver"
	"shopdesk/runtime/workers"
	"shopdesk/search"
	"shopdesk/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components and manages the engine lifecycle. This
// pattern is preferred over calling os.Exit or panic directly because:
//  1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
//  2. It improves testability by decoupling the initialization logic from the main entry point.
//  3. It provides a structured way to handle graceful shutdowns for background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Stores (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = blugeWriter.Close()
	}()

	// 3. Repositories & engine components
	conversations := repositories.NewConversationRepository(db, log)
	participants := repositories.NewParticipantRepository(db, log)
	messages := repositories.NewMessageRepository(db, log)
	notifications := repositories.NewNotificationRepository(db, log)

	moderator, err := buildModerator(config, log)
	if err != nil {
		return err
	}

	directory := staticDirectory(config.StaffRoster)
	deskResolver := resolver.New(conversations, participants, directory, log)
	dispatcher := notify.NewDispatcher(notifications, participants, log)
	index := search.NewMessageIndex(blugeWriter, log)

	desk := services.NewDeskService(deskResolver, messages, dispatcher, moderator, index, log)

	// Roster changes land through configuration, so reconcile the
	// materialized staff memberships once at boot.
	if err := desk.SyncStaffParticipants(); err != nil {
		return fmt.Errorf("staff participant sync: %w", err)
	}

	// 4. Supervision
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewIndexerWorker(messages, index, log))
	sup.Add(workers.NewHealthMonitoringWorker(log, config.HealthInterval))

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting shopdesk engine")
	go sup.Run(ctx)

	<-ctx.Done()
	log.Info("Shutting down gracefully...")
	sup.Stop()
	log.Info("Program stopped cleanly")
	return nil
}

// buildModerator is optional wiring: without a word list, message
// bodies pass through untouched.
func buildModerator(config Config, log *slog.Logger) (*moderation.Moderator, error) {
	if config.CensoredWordsFile == "" {
		return nil, nil
	}
	words, err := moderation.WordsFromFile(config.CensoredWordsFile)
	if err != nil {
		return nil, fmt.Errorf("censored words: %w", err)
	}
	replacement, err := characterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	log.Info(fmt.Sprintf("%d censored words loaded", len(words)))
	return moderation.NewModerator(words, replacement, log)
}

// staticDirectory serves the staff roster straight from configuration.
// Deployments embedding the engine plug their own directory in.
type staticDirectory []string

func (d staticDirectory) ActiveStaff() ([]string, error) {
	return d, nil
}
