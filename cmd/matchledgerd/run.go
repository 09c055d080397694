package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/matchledger/matchledger/internal/build"
	"github.com/matchledger/matchledger/internal/chat"
	"github.com/matchledger/matchledger/internal/config"
	"github.com/matchledger/matchledger/internal/db"
	"github.com/matchledger/matchledger/internal/ledger"
	"github.com/matchledger/matchledger/internal/lifecycle"
	"github.com/matchledger/matchledger/internal/policy"
	"github.com/matchledger/matchledger/internal/report"
	"github.com/matchledger/matchledger/internal/store"
)

// run wires the daemon together and blocks until shutdown.
func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	handlerSet, logCleanup, err := build.InitLogging(build.LogConfig{
		Dir:           cfg.Logging.Dir,
		Level:         cfg.Logging.Level,
		MaxFiles:      cfg.Logging.MaxFiles,
		MaxFileSizeMB: cfg.Logging.MaxFileSizeMB,
	})
	if err != nil {
		return err
	}
	defer logCleanup()

	logger := slog.New(handlerSet)
	slog.SetDefault(logger)

	logger.InfoContext(
		ctx, "Match ledger daemon starting",
		"channel", cfg.ChannelName,
		"score_commands", cfg.ScoreCommands,
		"admins", len(cfg.Admins), "big_admins", len(cfg.BigAdmins),
	)

	storeLog := handlerSet.SubLogger("STOR")

	sqliteStore, err := db.NewSqliteStore(&db.SqliteConfig{
		DatabaseFileName: cfg.Database.Path,
	}, storeLog)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer sqliteStore.Close()

	gameStore := store.NewSQLStore(sqliteStore.BaseDB, storeLog)

	ledgerLog := handlerSet.SubLogger("LEDG")

	var publisher ledger.Publisher
	if cfg.Ledger.WebhookURL != "" {
		publisher = ledger.NewWebhookPublisher(
			cfg.Ledger.WebhookURL, cfg.Ledger.Timeout.Std(),
			ledgerLog,
		)
	} else {
		logger.InfoContext(
			ctx, "No ledger webhook configured, logging rows instead",
		)
		publisher = ledger.NewLogPublisher(ledgerLog)
	}

	pol := policy.New(cfg.Admins, cfg.BigAdmins)
	parser := report.NewParser(
		cfg.ScoreCommands, cfg.MinReportFields, pol,
	)

	session := chat.NewConsoleSession(
		os.Stdin, cfg.BotUserID, handlerSet.SubLogger("CHAT"),
	)

	controller := lifecycle.NewController(lifecycle.ControllerConfig{
		ChannelName: cfg.ChannelName,
		Env: &lifecycle.Environment{
			Parser:         parser,
			Policy:         pol,
			VerifyEmoji:    cfg.VerifyEmoji,
			CertifiedEmoji: cfg.CertifiedEmoji,
			ErrorEmoji:     cfg.ErrorEmoji,
		},
		Store:     gameStore,
		Ledger:    publisher,
		Messenger: session,
		Log:       handlerSet.SubLogger("LIFE"),
	})
	session.SetHandler(controller)

	if cfg.NowPlaying != "" {
		if err := session.SetPresence(ctx, cfg.NowPlaying); err != nil {
			logger.WarnContext(
				ctx, "Unable to set presence", "err", err,
			)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sessionErr := make(chan error, 1)
	go func() {
		sessionErr <- session.Run(ctx)
	}()

	select {
	case sig := <-sigCh:
		logger.InfoContext(ctx, "Shutting down", "signal", sig.String())
		cancel()

	case err := <-sessionErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorContext(ctx, "Session ended", "err", err)
			controller.Wait()
			return err
		}
		logger.InfoContext(ctx, "Session ended")
	}

	// Let in-flight event handlers finish before tearing down the store.
	controller.Wait()

	return nil
}
