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

// docStore is the replicated document store surface the repositories need.
type docStore interface {
	Put(ctx context.Context, key string, doc any) error
	Get(ctx context.Context, key string, into any) error
	Delete(ctx context.Context, key string) error
	Subscribe(ctx context.Context, key string, onChange func(body []byte)) (func(), error)
}

type SessionRepository interface {
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	GetByAccessCode(ctx context.Context, accessCode string) (*entity.Session, error)
	DeleteByID(ctx context.Context, id string) error
	Subscribe(ctx context.Context, id string, onChange func(session *entity.Session)) (func(), error)
}

type dbSession struct {
	store  docStore
	logger *slog.Logger
}

func NewSessionRepository(docs docStore, logger *slog.Logger) SessionRepository {
	return &dbSession{
		store:  docs,
		logger: logger.With("component", "session-repository"),
	}
}

func (that *dbSession) CreateOrUpdate(ctx context.Context, session *entity.Session) error {
	if err := that.store.Put(ctx, sessionKey(session.ID), session); err != nil {
		return fmt.Errorf("failed to put session: %w", err)
	}

	// The access code is immutable, so rewriting the index is harmless.
	if err := that.store.Put(ctx, accessCodeKey(session.AccessCode), session.ID); err != nil {
		return fmt.Errorf("failed to put access code index: %w", err)
	}

	return nil
}

func (that *dbSession) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	var session entity.Session

	err := that.store.Get(ctx, sessionKey(id), &session)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

func (that *dbSession) GetByAccessCode(ctx context.Context, accessCode string) (*entity.Session, error) {
	var id string

	err := that.store.Get(ctx, accessCodeKey(accessCode), &id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get access code index: %w", err)
	}

	return that.GetByID(ctx, id)
}

func (that *dbSession) DeleteByID(ctx context.Context, id string) error {
	if err := that.store.Delete(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (that *dbSession) Subscribe(ctx context.Context, id string, onChange func(session *entity.Session)) (func(), error) {
	log := that.logger.With("method", "Subscribe", "sessionID", id)

	unsubscribe, err := that.store.Subscribe(ctx, sessionKey(id), func(body []byte) {
		var session entity.Session
		if err := json.Unmarshal(body, &session); err != nil {
			log.Error("failed to unmarshal session snapshot", "error", err)
			return
		}

		onChange(&session)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to session: %w", err)
	}

	return unsubscribe, nil
}

func sessionKey(id string) string {
	return "session:" + id
}

func accessCodeKey(code string) string {
	return "code:" + code
}
