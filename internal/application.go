package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/eduplay/boardsync-backend/internal/config"
	"github.com/eduplay/boardsync-backend/internal/engine"
	"github.com/eduplay/boardsync-backend/internal/entity"
	"github.com/eduplay/boardsync-backend/internal/evaluation"
	"github.com/eduplay/boardsync-backend/internal/history"
	"github.com/eduplay/boardsync-backend/internal/repository"
	"github.com/eduplay/boardsync-backend/internal/repository/storage"
	"github.com/eduplay/boardsync-backend/internal/store"
	"github.com/eduplay/boardsync-backend/internal/usecase"
	"github.com/eduplay/boardsync-backend/transport/rest"
	"github.com/eduplay/boardsync-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	docStore := store.New(redisStorage.Connection, logger)
	sessionRepo := repository.NewSessionRepository(docStore, logger)
	stateRepo := repository.NewGameStateRepository(docStore, logger)

	var archive *history.Archive
	if conf.SQLiteStoragePath != "" {
		sqliteStorage, sqliteErr := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
		if sqliteErr != nil {
			return fmt.Errorf("could not open sqlite storage: %w", sqliteErr)
		}

		defer func() {
			if err = sqliteStorage.Close(); err != nil {
				log.Error("could not close sqlite storage", "error", err)
			}
		}()

		archive = history.NewArchive(sqliteStorage.Connection, logger)
		if err = archive.Init(ctx); err != nil {
			return fmt.Errorf("could not init history archive: %w", err)
		}
	}

	scorer := evaluation.New(conf.Evaluation.BaseURL, conf.Evaluation.Timeout)
	board := entity.NewBoard(conf.Game.BoardSize)

	engineCfg := engine.Config{
		GuardWindow:      conf.Game.GuardWindow,
		DebounceInterval: conf.Game.DebounceInterval,
		LapBonus:         conf.Game.LapBonus,
		TollAmount:       conf.Game.TollAmount,
		BoostMultiplier:  conf.Game.BoostMultiplier,
	}

	var managerArchive usecase.Archive
	if archive != nil {
		managerArchive = archive
	}

	manager := usecase.NewSessionManager(logger, sessionRepo, stateRepo, scorer, managerArchive, board, engineCfg)
	defer manager.Shutdown()

	var reports rest.ReportSource
	if archive != nil {
		reports = archive
	}

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		restServer := rest.New(logger, reports)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, manager)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
