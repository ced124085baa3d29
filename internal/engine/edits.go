package engine

import (
	"context"

	"github.com/eduplay/boardsync-backend/internal/apperror"
	"github.com/eduplay/boardsync-backend/internal/entity"
)

// UpdateReasoning applies an in-progress reasoning edit locally and queues a
// debounced write. These edits are best-effort and last-writer-wins; a
// concurrent editor can overwrite them without detection.
func (that *Engine) UpdateReasoning(teamID, text string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state.Phase != entity.PhaseDecision {
		return apperror.ErrWrongPhase
	}

	if _, err := that.actingTeamLocked(teamID); err != nil {
		return err
	}

	that.state.Reasoning = text
	that.debounce.Enqueue(that.pushDebounced)
	that.notifyLocked()

	return nil
}

// UpdateSelection applies an in-progress choice change before submission.
func (that *Engine) UpdateSelection(teamID, choice string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state.Phase != entity.PhaseDecision {
		return apperror.ErrWrongPhase
	}

	if that.state.IsSubmitted {
		return apperror.ErrAlreadySubmitted
	}

	if _, err := that.actingTeamLocked(teamID); err != nil {
		return err
	}

	that.state.SelectedChoice = choice
	that.debounce.Enqueue(that.pushDebounced)
	that.notifyLocked()

	return nil
}

// pushDebounced writes the coalesced edit. It skips entirely while a guarded
// operation is in flight, since the operation's own write carries the latest
// text, and once the decision phase is over.
func (that *Engine) pushDebounced() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.guard.InFlight() {
		return
	}

	if that.state.Phase != entity.PhaseDecision {
		return
	}

	that.state.LastUpdated = that.clock.Next()

	if err := that.states.CreateOrUpdate(context.Background(), that.state); err != nil {
		that.logger.Error("failed to push debounced edit", "error", err)
	}

	that.gate.Accept(that.stateStream(), that.state.LastUpdated)
}
