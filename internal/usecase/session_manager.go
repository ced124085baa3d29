package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eduplay/boardsync-backend/internal/apperror"
	"github.com/eduplay/boardsync-backend/internal/engine"
	"github.com/eduplay/boardsync-backend/internal/entity"
	"github.com/eduplay/boardsync-backend/internal/evaluation"
	"github.com/eduplay/boardsync-backend/internal/pkg"
	"github.com/eduplay/boardsync-backend/internal/repository"
)

type Evaluator interface {
	Evaluate(ctx context.Context, request evaluation.Request) (*evaluation.Result, error)
}

type Archive interface {
	Append(ctx context.Context, sessionID string, record entity.TurnRecord) error
}

type sessionEngine struct {
	engine *engine.Engine
	cancel context.CancelFunc
	unsubs []func()
}

// SessionManager owns one engine per hosted session and keeps each engine
// fed with the snapshots its store subscriptions deliver.
type SessionManager struct {
	logger    *slog.Logger
	sessions  repository.SessionRepository
	states    repository.GameStateRepository
	evaluator Evaluator
	archive   Archive
	board     *entity.Board
	engineCfg engine.Config

	mu      sync.Mutex
	engines map[string]*sessionEngine
}

func NewSessionManager(
	logger *slog.Logger,
	sessions repository.SessionRepository,
	states repository.GameStateRepository,
	evaluator Evaluator,
	archive Archive,
	board *entity.Board,
	engineCfg engine.Config,
) *SessionManager {
	return &SessionManager{
		logger:    logger.With("component", "session-manager"),
		sessions:  sessions,
		states:    states,
		evaluator: evaluator,
		archive:   archive,
		board:     board,
		engineCfg: engineCfg,
		engines:   make(map[string]*sessionEngine),
	}
}

// CreateSession creates a new session with a fresh game state and a unique
// access code.
func (that *SessionManager) CreateSession(ctx context.Context) (*entity.Session, error) {
	session := entity.NewSession(pkg.GenerateSessionID(), pkg.GenerateAccessCode())

	if err := that.sessions.CreateOrUpdate(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	state := entity.NewGameState(session.ID)
	if err := that.states.CreateOrUpdate(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to create game state: %w", err)
	}

	return session, nil
}

// Engine returns the running engine for a session, starting one and wiring
// its store subscriptions on first use.
func (that *SessionManager) Engine(ctx context.Context, sessionID string) (*engine.Engine, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if existing, ok := that.engines[sessionID]; ok {
		return existing.engine, nil
	}

	session, err := that.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	state, err := that.states.GetBySessionID(ctx, sessionID)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		state = entity.NewGameState(sessionID)
		err = nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}

	eng := engine.New(that.logger, that.board, that.engineCfg, session, state,
		that.sessions, that.states, that.evaluator, that.archive)

	subCtx, cancel := context.WithCancel(context.Background())

	unsubState, err := that.states.Subscribe(subCtx, sessionID, func(snapshot *entity.GameState) {
		eng.ApplyRemoteState(snapshot)
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to game state: %w", err)
	}

	unsubSession, err := that.sessions.Subscribe(subCtx, sessionID, func(snapshot *entity.Session) {
		eng.ApplyRemoteSession(snapshot)
	})
	if err != nil {
		unsubState()
		cancel()
		return nil, fmt.Errorf("failed to subscribe to session: %w", err)
	}

	that.engines[sessionID] = &sessionEngine{
		engine: eng,
		cancel: cancel,
		unsubs: []func(){unsubState, unsubSession},
	}

	return eng, nil
}

// JoinByAccessCode resolves an access code to its session engine.
func (that *SessionManager) JoinByAccessCode(ctx context.Context, accessCode string) (*engine.Engine, error) {
	session, err := that.sessions.GetByAccessCode(ctx, accessCode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve access code: %w", err)
	}

	return that.Engine(ctx, session.ID)
}

// EndSession marks a session ended and releases its engine.
func (that *SessionManager) EndSession(ctx context.Context, sessionID string) error {
	eng, err := that.Engine(ctx, sessionID)
	if err != nil {
		return err
	}

	if err = eng.EndGame(ctx); err != nil {
		return fmt.Errorf("failed to end game: %w", err)
	}

	that.Release(sessionID)

	return nil
}

// Release stops the engine of a session and drops its subscriptions.
func (that *SessionManager) Release(sessionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.releaseLocked(sessionID)
}

// Shutdown releases every running engine.
func (that *SessionManager) Shutdown() {
	that.mu.Lock()
	defer that.mu.Unlock()

	for sessionID := range that.engines {
		that.releaseLocked(sessionID)
	}
}

func (that *SessionManager) releaseLocked(sessionID string) {
	running, ok := that.engines[sessionID]
	if !ok {
		return
	}

	for _, unsub := range running.unsubs {
		unsub()
	}

	running.cancel()
	running.engine.Close()
	delete(that.engines, sessionID)
}
