package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduplay/boardsync-backend/internal/apperror"
	"github.com/eduplay/boardsync-backend/internal/entity"
	"github.com/eduplay/boardsync-backend/testing/suite"
)

func TestSessionRepository(t *testing.T) {
	ctx, s := suite.New(t)

	repo := NewSessionRepository(s.Docs, s.Logger)

	t.Run("Round-trips a session with its roster", func(t *testing.T) {
		// Given: a session with a team and a member
		session := entity.NewSession("sess-roundtrip", "QWE234")
		session.Teams = append(session.Teams, &entity.Team{
			ID:      "team-1",
			Name:    "Red",
			Color:   "#ff0000",
			Members: []entity.Member{{ID: "member-1", Name: "Sam"}},
		})
		session.LastUpdated = entity.Stamp{Counter: 3, Wall: 1500}

		// When: it is written and read back
		require.NoError(t, repo.CreateOrUpdate(ctx, session))

		loaded, err := repo.GetByID(ctx, "sess-roundtrip")

		// Then: the document survives intact
		require.NoError(t, err)
		assert.Equal(t, "QWE234", loaded.AccessCode)
		assert.Equal(t, entity.Stamp{Counter: 3, Wall: 1500}, loaded.LastUpdated)
		require.Len(t, loaded.Teams, 1)
		assert.Equal(t, "Sam", loaded.Teams[0].Members[0].Name)
	})

	t.Run("An unknown session is not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")

		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})

	t.Run("Resolves an access code to its session", func(t *testing.T) {
		session := entity.NewSession("sess-code", "ZXC789")
		require.NoError(t, repo.CreateOrUpdate(ctx, session))

		loaded, err := repo.GetByAccessCode(ctx, "ZXC789")

		require.NoError(t, err)
		assert.Equal(t, "sess-code", loaded.ID)
	})

	t.Run("An unknown access code is not found", func(t *testing.T) {
		_, err := repo.GetByAccessCode(ctx, "NOPE11")

		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})

	t.Run("A deleted session is gone", func(t *testing.T) {
		session := entity.NewSession("sess-delete", "DEL234")
		require.NoError(t, repo.CreateOrUpdate(ctx, session))

		require.NoError(t, repo.DeleteByID(ctx, "sess-delete"))

		_, err := repo.GetByID(ctx, "sess-delete")
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})

	t.Run("Subscribers receive every roster write", func(t *testing.T) {
		// Given: a subscription on the session document
		received := make(chan *entity.Session, 4)

		unsubscribe, err := repo.Subscribe(ctx, "sess-sub", func(session *entity.Session) {
			received <- session
		})
		require.NoError(t, err)
		defer unsubscribe()

		// When: another client writes the document
		session := entity.NewSession("sess-sub", "SUB234")
		session.LastUpdated = entity.Stamp{Counter: 7}
		require.NoError(t, repo.CreateOrUpdate(ctx, session))

		// Then: the snapshot is delivered
		select {
		case snapshot := <-received:
			assert.Equal(t, "sess-sub", snapshot.ID)
			assert.Equal(t, uint64(7), snapshot.LastUpdated.Counter)
		case <-time.After(5 * time.Second):
			t.Fatal("no snapshot delivered")
		}
	})
}
