package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/eduplay/boardsync-backend/internal/apperror"
	"github.com/eduplay/boardsync-backend/internal/entity"
	"github.com/eduplay/boardsync-backend/internal/evaluation"
)

// StartGame moves the session from WaitingToStart to Idle with the first
// team up and the turn version at one.
func (that *Engine) StartGame(ctx context.Context) error {
	return that.runGuarded(func() error {
		if that.session.IsEnded() {
			return apperror.ErrSessionEnded
		}

		if len(that.session.Teams) == 0 {
			return apperror.ErrNoTeams
		}

		if that.state.Phase != entity.PhaseWaitingToStart {
			return apperror.ErrWrongPhase
		}

		that.version.Set(1)
		that.state.Phase = entity.PhaseIdle
		that.state.CurrentTeamIndex = 0
		that.session.Status = entity.StatusActive

		that.pushSessionLocked(ctx)
		that.pushStateLocked(ctx)

		return nil
	})
}

// PauseGame suspends the game, remembering the phase to resume into.
func (that *Engine) PauseGame(ctx context.Context) error {
	return that.runGuarded(func() error {
		if that.state.Phase != entity.PhaseIdle && that.state.Phase != entity.PhaseDecision {
			return apperror.ErrWrongPhase
		}

		that.state.PausedPhase = that.state.Phase
		that.state.Phase = entity.PhasePaused
		that.session.Status = entity.StatusPaused

		that.pushSessionLocked(ctx)
		that.pushStateLocked(ctx)

		return nil
	})
}

func (that *Engine) ResumeGame(ctx context.Context) error {
	return that.runGuarded(func() error {
		if that.state.Phase != entity.PhasePaused {
			return apperror.ErrWrongPhase
		}

		resumed := that.state.PausedPhase
		if resumed == "" {
			resumed = entity.PhaseIdle
		}

		that.state.Phase = resumed
		that.state.PausedPhase = ""
		that.session.Status = entity.StatusActive

		that.pushSessionLocked(ctx)
		that.pushStateLocked(ctx)

		return nil
	})
}

// RollDice announces the roll, then finalizes the dice value and enters the
// Moving phase. A non-positive total rolls two random dice; a positive one
// is taken as a manually entered total. The rolling intent is written first
// so other clients can show the animation; losing that write is non-fatal.
func (that *Engine) RollDice(ctx context.Context, total int) error {
	return that.runGuarded(func() error {
		if that.state.Phase == entity.PhaseWaitingToStart {
			return apperror.ErrGameNotStarted
		}

		if that.state.Phase != entity.PhaseIdle {
			return apperror.ErrWrongPhase
		}

		that.state.Phase = entity.PhaseRolling
		that.pushStateLocked(ctx)

		var dice entity.Dice
		if total <= 0 {
			a, b := that.rollDice()
			dice = entity.Dice{A: a, B: b}
		} else {
			dice = entity.Dice{A: total}
		}

		that.state.DiceValue = dice
		that.state.Phase = entity.PhaseMoving
		that.pushStateLocked(ctx)

		return nil
	})
}

// LandOnCell commits the move for the acting team: final position and lap
// crossings are computed from the dice total in one step, independent of how
// the move is rendered. A cell index of -1 accepts the computed destination;
// anything else must match it.
func (that *Engine) LandOnCell(ctx context.Context, teamID string, cellIndex int) error {
	return that.runGuarded(func() error {
		if that.state.Phase != entity.PhaseMoving {
			return apperror.ErrWrongPhase
		}

		team, err := that.actingTeamLocked(teamID)
		if err != nil {
			return err
		}

		newPosition, laps := that.board.Advance(team.Position, that.state.DiceValue.Total())
		if cellIndex >= 0 && cellIndex != newPosition {
			return fmt.Errorf("%w: got %d, expected %d", apperror.ErrCellMismatch, cellIndex, newPosition)
		}

		team.Position = newPosition
		for i := 0; i < laps; i++ {
			team.LapCount++
			team.Score += that.cfg.LapBonus
		}

		that.applyTollLocked(team)

		// Territories sit on question cells only, so a toll landing always
		// opens a decision; the popup overlays it and the turn completes
		// through the normal decision flow.
		cell := that.board.Cell(newPosition)
		if cell.RequiresResponse() {
			that.state.CurrentCard = that.drawCardLocked(newPosition)
			that.state.Phase = entity.PhaseDecision
		} else {
			that.advanceTurnLocked()
		}

		that.pushSessionLocked(ctx)
		that.pushStateLocked(ctx)

		return nil
	})
}

// SubmitResponse records the acting team's choice and reasoning.
func (that *Engine) SubmitResponse(ctx context.Context, teamID, choice, reasoning string) error {
	return that.runGuarded(func() error {
		if that.state.Phase != entity.PhaseDecision {
			return apperror.ErrWrongPhase
		}

		if _, err := that.actingTeamLocked(teamID); err != nil {
			return err
		}

		if that.state.IsSubmitted {
			return apperror.ErrAlreadySubmitted
		}

		that.state.SelectedChoice = choice
		that.state.Reasoning = reasoning
		that.state.IsSubmitted = true

		that.pushStateLocked(ctx)

		return nil
	})
}

// RevealResponses shows the submitted decision to every client.
func (that *Engine) RevealResponses(ctx context.Context) error {
	return that.runGuarded(func() error {
		if that.state.Phase != entity.PhaseDecision {
			return apperror.ErrWrongPhase
		}

		that.state.IsRevealed = true
		that.pushStateLocked(ctx)

		return nil
	})
}

// Evaluate sends the in-progress decision to the scoring oracle. The remote
// call runs outside the guard so a hung request cannot leave the session
// unsynchronizable; a failure clears the processing flag and holds the
// Decision phase for a manual retry.
func (that *Engine) Evaluate(ctx context.Context, shared bool) error {
	request, err := that.beginEvaluation(ctx)
	if err != nil {
		return err
	}

	result, evalErr := that.evaluator.Evaluate(ctx, request)

	return that.finishEvaluation(ctx, result, shared, evalErr)
}

func (that *Engine) beginEvaluation(ctx context.Context) (evaluation.Request, error) {
	var request evaluation.Request

	err := that.runGuarded(func() error {
		if that.state.Phase != entity.PhaseDecision {
			return apperror.ErrWrongPhase
		}

		if !that.state.IsSubmitted || that.state.CurrentCard == nil {
			return apperror.ErrNoResult
		}

		request = evaluation.Request{
			Situation: that.state.CurrentCard.Situation,
			Choice:    that.state.SelectedChoice,
			Reasoning: that.state.Reasoning,
			Category:  that.state.CurrentCard.Category,
		}

		that.state.IsAIProcessing = true
		that.pushStateLocked(ctx)

		return nil
	})

	return request, err
}

func (that *Engine) finishEvaluation(ctx context.Context, result *evaluation.Result, shared bool, evalErr error) error {
	return that.runGuarded(func() error {
		that.state.IsAIProcessing = false

		if evalErr != nil {
			// No partial score is ever applied; the phase stays at
			// Decision so the controller can retry.
			that.pushStateLocked(ctx)
			return fmt.Errorf("%w: %s", apperror.ErrEvaluationFailed, evalErr)
		}

		that.state.AIResult = &entity.ScoreResult{
			Feedback: result.Feedback,
			Deltas:   result.Deltas,
			Shared:   shared,
		}
		that.pushStateLocked(ctx)

		return nil
	})
}

// ApplyScoringResult finalizes the decision: deltas are applied exactly once
// to the acting team (or to every team in shared-effect mode), one turn
// record is appended, territory ownership is assigned, and the turn
// advances. Everything commits in one guarded operation; calling it again
// finds no result and fails, so a doubled trigger cannot double-apply.
func (that *Engine) ApplyScoringResult(ctx context.Context) error {
	return that.runGuarded(func() error {
		if that.state.Phase != entity.PhaseDecision {
			return apperror.ErrWrongPhase
		}

		result := that.state.AIResult
		if result == nil {
			return apperror.ErrNoResult
		}

		team, err := that.actingTeamLocked("")
		if err != nil {
			return err
		}

		cell := that.board.Cell(team.Position)

		multiplier := 1
		if cell.Boosted {
			multiplier = that.cfg.BoostMultiplier
		}

		if result.Shared {
			for _, member := range that.session.Teams {
				applyDeltas(member, result.Deltas, multiplier)
			}
		} else {
			applyDeltas(team, result.Deltas, multiplier)
		}

		record := entity.TurnRecord{
			TeamID:      team.ID,
			Cell:        team.Position,
			CardID:      that.state.CurrentCard.ID,
			Choice:      that.state.SelectedChoice,
			Reasoning:   that.state.Reasoning,
			Feedback:    result.Feedback,
			Deltas:      result.Deltas,
			TurnVersion: that.version.Current(),
			RecordedAt:  time.Now().UnixMilli(),
		}
		team.History = append(team.History, record)

		if that.archive != nil {
			if err = that.archive.Append(ctx, that.session.ID, record); err != nil {
				that.logger.Error("failed to archive turn record", "error", err)
			}
		}

		if cell.RequiresResponse() {
			top := topRankedTeam(that.session)
			that.state.Territories[team.Position] = entity.Territory{
				OwnerTeamID: top.ID,
				AcquiredAt:  that.clock.Next(),
			}
		}

		that.state.LastOutcome = result.Feedback
		that.state.ClearDecision()
		that.advanceTurnLocked()

		that.pushSessionLocked(ctx)
		that.pushStateLocked(ctx)

		return nil
	})
}

// AdvanceTurn skips the current team's turn.
func (that *Engine) AdvanceTurn(ctx context.Context) error {
	return that.runGuarded(func() error {
		if that.state.Phase != entity.PhaseIdle && that.state.Phase != entity.PhaseDecision {
			return apperror.ErrWrongPhase
		}

		that.state.ClearDecision()
		that.advanceTurnLocked()

		that.pushStateLocked(ctx)

		return nil
	})
}

// DismissScorePopup closes the toll popup. It only clears the overlay; the
// turn it belongs to still completes through its own transition, so a
// dismissal can never skip an open decision.
func (that *Engine) DismissScorePopup(ctx context.Context) error {
	return that.runGuarded(func() error {
		if !that.state.ShowingScore {
			return apperror.ErrNoScorePopup
		}

		that.state.ShowingScore = false
		that.pushStateLocked(ctx)

		return nil
	})
}

// ResetGame replaces the game state with a fresh document and zeroes every
// team's board standing. Members and history are kept; history is an
// append-only audit trail.
func (that *Engine) ResetGame(ctx context.Context) error {
	return that.runGuarded(func() error {
		fresh := entity.NewGameState(that.session.ID)

		that.version.Set(0)
		that.gate.Reset(that.stateStream())
		that.state = fresh

		for _, team := range that.session.Teams {
			team.Position = 0
			team.Score = 0
			team.LapCount = 0
			team.Resources = nil
		}

		that.session.Status = entity.StatusActive

		that.pushSessionLocked(ctx)
		that.pushStateLocked(ctx)

		return nil
	})
}

// EndGame marks the session ended. The documents stay readable for reports.
func (that *Engine) EndGame(ctx context.Context) error {
	return that.runGuarded(func() error {
		that.session.Status = entity.StatusEnded
		that.pushSessionLocked(ctx)

		return nil
	})
}

// advanceTurnLocked completes one turn transition: the version counter moves
// by exactly one and ownership cycles to the next team.
func (that *Engine) advanceTurnLocked() {
	that.version.Advance()

	if count := len(that.session.Teams); count > 0 {
		that.state.CurrentTeamIndex = (that.state.CurrentTeamIndex + 1) % count
	}

	that.state.Phase = entity.PhaseIdle
	that.state.ShowingScore = false
}

// actingTeamLocked resolves the team whose turn it is. An empty teamID is
// the controller acting on the team's behalf.
func (that *Engine) actingTeamLocked(teamID string) (*entity.Team, error) {
	if len(that.session.Teams) == 0 {
		return nil, apperror.ErrNoTeams
	}

	idx := that.state.CurrentTeamIndex
	if idx < 0 || idx >= len(that.session.Teams) {
		return nil, apperror.ErrTeamNotFound
	}

	team := that.session.Teams[idx]
	if teamID != "" && teamID != team.ID {
		return nil, apperror.ErrNotYourTurn
	}

	return team, nil
}

// applyTollLocked charges the acting team when it lands on a cell owned by
// another team, crediting the owner.
func (that *Engine) applyTollLocked(team *entity.Team) {
	territory, ok := that.state.Territories[team.Position]
	if !ok || territory.OwnerTeamID == team.ID {
		return
	}

	owner, ok := that.session.TeamByID(territory.OwnerTeamID)
	if !ok {
		return
	}

	team.Score -= that.cfg.TollAmount
	owner.Score += that.cfg.TollAmount

	that.state.LastOutcome = fmt.Sprintf("%s paid a toll of %d to %s", team.Name, that.cfg.TollAmount, owner.Name)
	that.state.ShowingScore = true
}

func applyDeltas(team *entity.Team, deltas map[string]int, multiplier int) {
	if team.Resources == nil {
		team.Resources = make(map[string]int)
	}

	for resource, delta := range deltas {
		team.Resources[resource] += delta * multiplier
		team.Score += delta * multiplier
	}
}

// topRankedTeam returns the highest-scoring team; ties resolve to the
// earlier position in the turn cycle.
func topRankedTeam(session *entity.Session) *entity.Team {
	top := session.Teams[0]
	for _, team := range session.Teams[1:] {
		if team.Score > top.Score {
			top = team
		}
	}

	return top
}

func rollPair() (int, int) {
	return rand.Intn(6) + 1, rand.Intn(6) + 1 //nolint: gosec // game dice, not secrets
}
