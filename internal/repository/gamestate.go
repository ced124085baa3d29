package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eduplay/boardsync-backend/internal/apperror"
	"github.com/eduplay/boardsync-backend/internal/entity"
	"github.com/eduplay/boardsync-backend/internal/store"
)

type GameStateRepository interface {
	CreateOrUpdate(ctx context.Context, state *entity.GameState) error
	GetBySessionID(ctx context.Context, sessionID string) (*entity.GameState, error)
	DeleteBySessionID(ctx context.Context, sessionID string) error
	Subscribe(ctx context.Context, sessionID string, onChange func(state *entity.GameState)) (func(), error)
}

type dbGameState struct {
	store  docStore
	logger *slog.Logger
}

func NewGameStateRepository(docs docStore, logger *slog.Logger) GameStateRepository {
	return &dbGameState{
		store:  docs,
		logger: logger.With("component", "gamestate-repository"),
	}
}

func (that *dbGameState) CreateOrUpdate(ctx context.Context, state *entity.GameState) error {
	if err := that.store.Put(ctx, gameStateKey(state.SessionID), state); err != nil {
		return fmt.Errorf("failed to put game state: %w", err)
	}

	return nil
}

func (that *dbGameState) GetBySessionID(ctx context.Context, sessionID string) (*entity.GameState, error) {
	var state entity.GameState

	err := that.store.Get(ctx, gameStateKey(sessionID), &state)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}

	return &state, nil
}

func (that *dbGameState) DeleteBySessionID(ctx context.Context, sessionID string) error {
	if err := that.store.Delete(ctx, gameStateKey(sessionID)); err != nil {
		return fmt.Errorf("failed to delete game state: %w", err)
	}

	return nil
}

func (that *dbGameState) Subscribe(ctx context.Context, sessionID string, onChange func(state *entity.GameState)) (func(), error) {
	log := that.logger.With("method", "Subscribe", "sessionID", sessionID)

	unsubscribe, err := that.store.Subscribe(ctx, gameStateKey(sessionID), func(body []byte) {
		var state entity.GameState
		if err := json.Unmarshal(body, &state); err != nil {
			log.Error("failed to unmarshal game state snapshot", "error", err)
			return
		}

		onChange(&state)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to game state: %w", err)
	}

	return unsubscribe, nil
}

func gameStateKey(sessionID string) string {
	return "gamestate:" + sessionID
}
