package apperror

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionEnded     = errors.New("session is already ended")
	ErrTeamNotFound     = errors.New("team not found")
	ErrNoTeams          = errors.New("session has no teams")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrWrongPhase       = errors.New("action is not allowed in the current phase")
	ErrGameNotStarted   = errors.New("game is not started")
	ErrAlreadySubmitted = errors.New("response is already submitted")
	ErrNoResult         = errors.New("no finalized result to apply")
	ErrNoScorePopup     = errors.New("no score popup to dismiss")
	ErrCellMismatch     = errors.New("cell does not match the computed destination")
	ErrEvaluationFailed = errors.New("evaluation service call failed")
)
