package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduplay/boardsync-backend/internal/store"
	"github.com/eduplay/boardsync-backend/testing/suite"
)

type testDoc struct {
	Name    string `json:"name"`
	Counter int    `json:"counter"`
}

func TestStore(t *testing.T) {
	ctx, s := suite.New(t)

	t.Run("Put overwrites and Get reads the latest document", func(t *testing.T) {
		require.NoError(t, s.Docs.Put(ctx, "doc:1", testDoc{Name: "first", Counter: 1}))
		require.NoError(t, s.Docs.Put(ctx, "doc:1", testDoc{Name: "second", Counter: 2}))

		var loaded testDoc
		require.NoError(t, s.Docs.Get(ctx, "doc:1", &loaded))

		assert.Equal(t, testDoc{Name: "second", Counter: 2}, loaded)
	})

	t.Run("A missing document is reported as not found", func(t *testing.T) {
		var loaded testDoc
		err := s.Docs.Get(ctx, "doc:missing", &loaded)

		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Delete removes the document", func(t *testing.T) {
		require.NoError(t, s.Docs.Put(ctx, "doc:2", testDoc{Name: "ephemeral"}))
		require.NoError(t, s.Docs.Delete(ctx, "doc:2"))

		var loaded testDoc
		require.ErrorIs(t, s.Docs.Get(ctx, "doc:2", &loaded), store.ErrNotFound)
	})

	t.Run("Subscribers see the body of every put", func(t *testing.T) {
		received := make(chan []byte, 4)

		unsubscribe, err := s.Docs.Subscribe(ctx, "doc:3", func(body []byte) {
			received <- body
		})
		require.NoError(t, err)

		require.NoError(t, s.Docs.Put(ctx, "doc:3", testDoc{Name: "published", Counter: 7}))

		select {
		case body := <-received:
			assert.JSONEq(t, `{"name":"published","counter":7}`, string(body))
		case <-time.After(5 * time.Second):
			t.Fatal("no change delivered")
		}

		// Changes to other keys are not delivered here.
		require.NoError(t, s.Docs.Put(ctx, "doc:4", testDoc{Name: "elsewhere"}))

		select {
		case body := <-received:
			t.Fatalf("unexpected delivery: %s", body)
		case <-time.After(300 * time.Millisecond):
		}

		unsubscribe()
	})
}
