package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduplay/boardsync-backend/internal/apperror"
	"github.com/eduplay/boardsync-backend/internal/entity"
	"github.com/eduplay/boardsync-backend/internal/evaluation"
)

var errStoreDown = errors.New("store down")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fakeSessionRepo struct {
	mu   sync.Mutex
	last *entity.Session
	puts int
}

func (that *fakeSessionRepo) CreateOrUpdate(_ context.Context, session *entity.Session) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.last = copySession(session)
	that.puts++

	return nil
}

type fakeStateRepo struct {
	mu      sync.Mutex
	last    *entity.GameState
	puts    int
	failing bool
}

func (that *fakeStateRepo) CreateOrUpdate(_ context.Context, state *entity.GameState) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.failing {
		return errStoreDown
	}

	that.last = copyState(state)
	that.puts++

	return nil
}

func (that *fakeStateRepo) lastPut() *entity.GameState {
	that.mu.Lock()
	defer that.mu.Unlock()

	return copyState(that.last)
}

type fakeScorer struct {
	result *evaluation.Result
	err    error
	calls  int
}

func (that *fakeScorer) Evaluate(_ context.Context, _ evaluation.Request) (*evaluation.Result, error) {
	that.calls++

	if that.err != nil {
		return nil, that.err
	}

	return that.result, nil
}

func testSession(teamCount int) *entity.Session {
	session := entity.NewSession("sess-1", "ABC234")
	names := []string{"Red", "Blue", "Green", "Yellow"}

	for i := 0; i < teamCount; i++ {
		session.Teams = append(session.Teams, &entity.Team{
			ID:   names[i%len(names)] + "-id",
			Name: names[i%len(names)],
		})
	}

	return session
}

func newTestEngine(t *testing.T, teamCount int) (*Engine, *fakeSessionRepo, *fakeStateRepo, *fakeScorer) {
	t.Helper()

	sessions := &fakeSessionRepo{}
	states := &fakeStateRepo{}
	scorer := &fakeScorer{result: &evaluation.Result{
		Feedback: "solid reasoning",
		Deltas:   map[string]int{"budget": 2, "trust": -1},
	}}

	session := testSession(teamCount)
	state := entity.NewGameState(session.ID)

	eng := New(discardLogger(), entity.NewBoard(32), Config{}, session, state,
		sessions, states, scorer, nil)

	return eng, sessions, states, scorer
}

func startedEngine(t *testing.T, teamCount int) (*Engine, *fakeSessionRepo, *fakeStateRepo, *fakeScorer) {
	t.Helper()

	eng, sessions, states, scorer := newTestEngine(t, teamCount)
	require.NoError(t, eng.StartGame(context.Background()))

	return eng, sessions, states, scorer
}

// toDecision drives the first team onto a question cell.
func toDecision(t *testing.T, eng *Engine, steps int) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, eng.RollDice(ctx, steps))
	require.NoError(t, eng.LandOnCell(ctx, "", -1))

	_, state := eng.Snapshot()
	require.Equal(t, entity.PhaseDecision, state.Phase)
}

func TestEngine_StartGame(t *testing.T) {
	t.Run("Starts into Idle with the first team and version one", func(t *testing.T) {
		eng, _, states, _ := newTestEngine(t, 2)

		// When: the controller starts the game
		require.NoError(t, eng.StartGame(context.Background()))

		// Then: the written state is Idle, team 0, turn version 1
		written := states.lastPut()
		assert.Equal(t, entity.PhaseIdle, written.Phase)
		assert.Equal(t, 0, written.CurrentTeamIndex)
		assert.Equal(t, uint64(1), written.TurnVersion)
	})

	t.Run("Refuses to start without teams", func(t *testing.T) {
		eng, _, _, _ := newTestEngine(t, 0)

		err := eng.StartGame(context.Background())

		require.ErrorIs(t, err, apperror.ErrNoTeams)
	})

	t.Run("Rolling before the game starts is rejected", func(t *testing.T) {
		eng, _, _, _ := newTestEngine(t, 2)

		err := eng.RollDice(context.Background(), 6)

		require.ErrorIs(t, err, apperror.ErrGameNotStarted)
	})

	t.Run("Refuses a second start", func(t *testing.T) {
		eng, _, _, _ := startedEngine(t, 2)

		err := eng.StartGame(context.Background())

		require.ErrorIs(t, err, apperror.ErrWrongPhase)
	})
}

func TestEngine_PauseResume(t *testing.T) {
	eng, _, _, _ := startedEngine(t, 2)
	ctx := context.Background()

	// Given: a running game
	require.NoError(t, eng.PauseGame(ctx))

	_, state := eng.Snapshot()
	assert.Equal(t, entity.PhasePaused, state.Phase)
	assert.Equal(t, entity.PhaseIdle, state.PausedPhase)

	// When: the controller resumes
	require.NoError(t, eng.ResumeGame(ctx))

	// Then: the remembered phase is restored
	_, state = eng.Snapshot()
	assert.Equal(t, entity.PhaseIdle, state.Phase)
	assert.Empty(t, state.PausedPhase)
}

func TestEngine_TurnCycle(t *testing.T) {
	t.Run("Advancing from the last team wraps to the first", func(t *testing.T) {
		eng, _, _, _ := startedEngine(t, 4)

		// Given: the fourth team is up at a known version
		eng.mu.Lock()
		eng.state.CurrentTeamIndex = 3
		eng.mu.Unlock()
		before := eng.TurnVersion()

		// When: the turn is skipped
		require.NoError(t, eng.AdvanceTurn(context.Background()))

		// Then: ownership wraps and the version moves by exactly one
		_, state := eng.Snapshot()
		assert.Equal(t, 0, state.CurrentTeamIndex)
		assert.Equal(t, before+1, state.TurnVersion)
	})

	t.Run("Landing on a rest cell advances the turn internally", func(t *testing.T) {
		eng, _, _, _ := startedEngine(t, 2)
		ctx := context.Background()
		before := eng.TurnVersion()

		// Given: team 0 at the start, rolling a manual 8 onto a rest cell
		require.NoError(t, eng.RollDice(ctx, 8))
		require.NoError(t, eng.LandOnCell(ctx, "", -1))

		// Then: no decision opens and the next team is up
		_, state := eng.Snapshot()
		assert.Equal(t, entity.PhaseIdle, state.Phase)
		assert.Equal(t, 1, state.CurrentTeamIndex)
		assert.Equal(t, before+1, state.TurnVersion)
	})
}

func TestEngine_LapBonus(t *testing.T) {
	t.Run("Crossing the start boundary pays the bonus exactly once", func(t *testing.T) {
		eng, _, _, _ := startedEngine(t, 2)
		ctx := context.Background()

		// Given: the acting team at position 20
		eng.mu.Lock()
		eng.session.Teams[0].Position = 20
		eng.mu.Unlock()

		// When: it moves 40 steps on a 32-cell board
		require.NoError(t, eng.RollDice(ctx, 40))
		require.NoError(t, eng.LandOnCell(ctx, "", -1))

		// Then: it lands on 28 with exactly one lap bonus applied
		session, _ := eng.Snapshot()
		team := session.Teams[0]
		assert.Equal(t, 28, team.Position)
		assert.Equal(t, 1, team.LapCount)
		assert.Equal(t, defaultLapBonus, team.Score)
	})

	t.Run("A mismatched landing cell is rejected", func(t *testing.T) {
		eng, _, _, _ := startedEngine(t, 2)
		ctx := context.Background()

		require.NoError(t, eng.RollDice(ctx, 3))

		err := eng.LandOnCell(ctx, "", 7)

		require.ErrorIs(t, err, apperror.ErrCellMismatch)
	})
}

func TestEngine_Decision(t *testing.T) {
	ctx := context.Background()

	t.Run("Submitting out of turn is rejected", func(t *testing.T) {
		eng, _, _, _ := startedEngine(t, 2)
		toDecision(t, eng, 1)

		err := eng.SubmitResponse(ctx, "Blue-id", "Cut scope", "seems safest")

		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("A second submission is rejected", func(t *testing.T) {
		eng, _, _, _ := startedEngine(t, 2)
		toDecision(t, eng, 1)

		require.NoError(t, eng.SubmitResponse(ctx, "Red-id", "Cut scope", "seems safest"))

		err := eng.SubmitResponse(ctx, "Red-id", "Negotiate more funding", "changed my mind")
		require.ErrorIs(t, err, apperror.ErrAlreadySubmitted)
	})

	t.Run("Evaluation failure holds the Decision phase for retry", func(t *testing.T) {
		eng, _, _, scorer := startedEngine(t, 2)
		scorer.err = errors.New("oracle unreachable")

		toDecision(t, eng, 1)
		require.NoError(t, eng.SubmitResponse(ctx, "", "Cut scope", "cash is king"))

		// When: the oracle call fails
		err := eng.Evaluate(ctx, false)

		// Then: the failure surfaces, no score is applied, the phase holds
		require.ErrorIs(t, err, apperror.ErrEvaluationFailed)

		_, state := eng.Snapshot()
		assert.Equal(t, entity.PhaseDecision, state.Phase)
		assert.False(t, state.IsAIProcessing)
		assert.Nil(t, state.AIResult)

		// And: a retry with a recovered oracle succeeds
		scorer.err = nil
		require.NoError(t, eng.Evaluate(ctx, false))

		_, state = eng.Snapshot()
		require.NotNil(t, state.AIResult)
		assert.Equal(t, "solid reasoning", state.AIResult.Feedback)
	})
}

func TestEngine_ApplyScoringResult(t *testing.T) {
	ctx := context.Background()

	t.Run("Applies deltas once and advances the turn", func(t *testing.T) {
		eng, _, _, _ := startedEngine(t, 2)

		toDecision(t, eng, 1)
		require.NoError(t, eng.SubmitResponse(ctx, "", "Cut scope", "cash is king"))
		require.NoError(t, eng.Evaluate(ctx, false))

		before := eng.TurnVersion()

		// When: the controller applies the finalized result
		require.NoError(t, eng.ApplyScoringResult(ctx))

		// Then: deltas land on the acting team, the decision clears, the turn advances
		session, state := eng.Snapshot()
		team := session.Teams[0]
		assert.Equal(t, 2, team.Resources["budget"])
		assert.Equal(t, -1, team.Resources["trust"])
		assert.Equal(t, 1, team.Score)
		assert.Len(t, team.History, 1)

		assert.Equal(t, entity.PhaseIdle, state.Phase)
		assert.Equal(t, 1, state.CurrentTeamIndex)
		assert.Equal(t, before+1, state.TurnVersion)
		assert.Nil(t, state.CurrentCard)
		assert.False(t, state.IsSubmitted)
	})

	t.Run("A doubled trigger cannot double-apply", func(t *testing.T) {
		eng, _, _, _ := startedEngine(t, 2)

		toDecision(t, eng, 1)
		require.NoError(t, eng.SubmitResponse(ctx, "", "Cut scope", "cash is king"))
		require.NoError(t, eng.Evaluate(ctx, false))

		require.NoError(t, eng.ApplyScoringResult(ctx))

		// When: the same trigger fires again
		err := eng.ApplyScoringResult(ctx)

		// Then: it fails and the deltas stay applied exactly once
		require.ErrorIs(t, err, apperror.ErrWrongPhase)

		session, _ := eng.Snapshot()
		assert.Equal(t, 2, session.Teams[0].Resources["budget"])
		assert.Len(t, session.Teams[0].History, 1)
	})

	t.Run("A boosted cell multiplies the deltas", func(t *testing.T) {
		eng, _, _, _ := startedEngine(t, 2)

		// Cell 5 is a boosted question cell.
		toDecision(t, eng, 5)
		require.NoError(t, eng.SubmitResponse(ctx, "", "Expand now", "the window is open"))
		require.NoError(t, eng.Evaluate(ctx, false))
		require.NoError(t, eng.ApplyScoringResult(ctx))

		session, _ := eng.Snapshot()
		assert.Equal(t, 4, session.Teams[0].Resources["budget"])
		assert.Equal(t, -2, session.Teams[0].Resources["trust"])
	})

	t.Run("Shared-effect mode scores every team uniformly", func(t *testing.T) {
		eng, _, _, _ := startedEngine(t, 3)

		toDecision(t, eng, 1)
		require.NoError(t, eng.SubmitResponse(ctx, "", "Report it", "integrity first"))
		require.NoError(t, eng.Evaluate(ctx, true))
		require.NoError(t, eng.ApplyScoringResult(ctx))

		session, _ := eng.Snapshot()
		for _, team := range session.Teams {
			assert.Equal(t, 2, team.Resources["budget"], "team %s", team.Name)
		}
	})

	t.Run("The landed cell is assigned to the top-ranked team", func(t *testing.T) {
		eng, _, _, _ := startedEngine(t, 2)

		toDecision(t, eng, 1)
		require.NoError(t, eng.SubmitResponse(ctx, "", "Cut scope", "cash is king"))
		require.NoError(t, eng.Evaluate(ctx, false))
		require.NoError(t, eng.ApplyScoringResult(ctx))

		_, state := eng.Snapshot()
		territory, ok := state.Territories[1]
		require.True(t, ok)
		assert.Equal(t, "Red-id", territory.OwnerTeamID)
	})
}

func TestEngine_Toll(t *testing.T) {
	eng, _, _, _ := startedEngine(t, 2)
	ctx := context.Background()

	// Given: cell 3 (a question cell) owned by the second team
	eng.mu.Lock()
	eng.state.Territories[3] = entity.Territory{OwnerTeamID: "Blue-id", AcquiredAt: entity.Stamp{Counter: 1}}
	eng.mu.Unlock()

	before := eng.TurnVersion()

	// When: the first team lands on it
	require.NoError(t, eng.RollDice(ctx, 3))
	require.NoError(t, eng.LandOnCell(ctx, "", -1))

	// Then: the toll transfers, the popup overlays the opened decision
	session, state := eng.Snapshot()
	assert.Equal(t, -defaultTollAmount, session.Teams[0].Score)
	assert.Equal(t, defaultTollAmount, session.Teams[1].Score)
	assert.True(t, state.ShowingScore)
	assert.Equal(t, entity.PhaseDecision, state.Phase)
	assert.Equal(t, before, state.TurnVersion)

	// When: the popup is dismissed mid-decision
	require.NoError(t, eng.DismissScorePopup(ctx))

	// Then: only the overlay closes; the decision and the turn stay open
	_, state = eng.Snapshot()
	assert.False(t, state.ShowingScore)
	assert.Equal(t, entity.PhaseDecision, state.Phase)
	assert.Equal(t, before, state.TurnVersion)
	assert.Equal(t, 0, state.CurrentTeamIndex)
	require.NotNil(t, state.CurrentCard)

	// And: a second dismissal has nothing to close
	require.ErrorIs(t, eng.DismissScorePopup(ctx), apperror.ErrNoScorePopup)

	// And: the turn completes through the decision flow, advancing once
	require.NoError(t, eng.SubmitResponse(ctx, "", "Cut scope", "cash is king"))
	require.NoError(t, eng.Evaluate(ctx, false))
	require.NoError(t, eng.ApplyScoringResult(ctx))

	_, state = eng.Snapshot()
	assert.Equal(t, before+1, state.TurnVersion)
	assert.Equal(t, 1, state.CurrentTeamIndex)
	assert.Nil(t, state.CurrentCard)
}

func TestEngine_ResetGame(t *testing.T) {
	eng, _, _, _ := startedEngine(t, 2)
	ctx := context.Background()

	toDecision(t, eng, 1)
	require.NoError(t, eng.SubmitResponse(ctx, "", "Cut scope", "cash is king"))
	require.NoError(t, eng.Evaluate(ctx, false))
	require.NoError(t, eng.ApplyScoringResult(ctx))

	// When: the controller resets the game
	require.NoError(t, eng.ResetGame(ctx))

	// Then: the state is fresh but members and history survive
	session, state := eng.Snapshot()
	assert.Equal(t, entity.PhaseWaitingToStart, state.Phase)
	assert.Equal(t, uint64(0), state.TurnVersion)
	assert.Empty(t, state.Territories)

	team := session.Teams[0]
	assert.Zero(t, team.Position)
	assert.Zero(t, team.Score)
	assert.Len(t, team.History, 1)

	// And: the game can start again
	require.NoError(t, eng.StartGame(ctx))
	assert.Equal(t, uint64(1), eng.TurnVersion())
}

func TestEngine_StoreWriteFailure(t *testing.T) {
	eng, _, states, _ := newTestEngine(t, 2)
	ctx := context.Background()

	// Given: a store that refuses writes
	states.mu.Lock()
	states.failing = true
	states.mu.Unlock()

	// When: the game starts anyway
	require.NoError(t, eng.StartGame(ctx))

	// Then: local state advanced optimistically
	_, state := eng.Snapshot()
	assert.Equal(t, entity.PhaseIdle, state.Phase)
	assert.Equal(t, uint64(1), state.TurnVersion)

	// And: the next successful write carries the authoritative value
	states.mu.Lock()
	states.failing = false
	states.mu.Unlock()

	require.NoError(t, eng.RollDice(ctx, 3))
	written := states.lastPut()
	assert.Equal(t, uint64(1), written.TurnVersion)
	assert.Equal(t, entity.PhaseMoving, written.Phase)
}
