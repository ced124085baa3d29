package evaluation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Evaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("Sends the decision and decodes the verdict", func(t *testing.T) {
		var received Request

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/evaluate", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

			_ = json.NewEncoder(w).Encode(Result{
				Feedback: "a reasonable trade-off",
				Deltas:   map[string]int{"budget": 3, "trust": -2},
			})
		}))
		defer server.Close()

		client := New(server.URL, time.Second)

		result, err := client.Evaluate(ctx, Request{
			Situation: "The budget was cut by 30%.",
			Choice:    "Cut scope",
			Reasoning: "keep the core deliverable",
			Category:  "finance",
		})

		require.NoError(t, err)
		assert.Equal(t, "a reasonable trade-off", result.Feedback)
		assert.Equal(t, map[string]int{"budget": 3, "trust": -2}, result.Deltas)

		assert.Equal(t, "Cut scope", received.Choice)
		assert.Equal(t, "finance", received.Category)
	})

	t.Run("Clamps out-of-range deltas", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(Result{
				Feedback: "wildly enthusiastic",
				Deltas:   map[string]int{"budget": 40, "trust": -12, "morale": 4},
			})
		}))
		defer server.Close()

		client := New(server.URL, time.Second)

		result, err := client.Evaluate(ctx, Request{Situation: "s", Choice: "c"})

		require.NoError(t, err)
		assert.Equal(t, 5, result.Deltas["budget"])
		assert.Equal(t, -5, result.Deltas["trust"])
		assert.Equal(t, 4, result.Deltas["morale"])
	})

	t.Run("A non-200 response is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := New(server.URL, time.Second)

		_, err := client.Evaluate(ctx, Request{Situation: "s", Choice: "c"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
	})

	t.Run("An unreachable service is an error, not a hang", func(t *testing.T) {
		client := New("http://127.0.0.1:1", 200*time.Millisecond)

		_, err := client.Evaluate(ctx, Request{Situation: "s", Choice: "c"})

		require.Error(t, err)
	})
}
