package entity

type Phase string

const (
	PhaseWaitingToStart Phase = "waiting_to_start"
	PhaseIdle           Phase = "idle"
	PhaseRolling        Phase = "rolling"
	PhaseMoving         Phase = "moving"
	PhaseDecision       Phase = "decision"
	PhasePaused         Phase = "paused"
)

// Card is the situation a team has to respond to after landing on a
// question cell.
type Card struct {
	ID        string   `json:"id"`
	Category  string   `json:"category,omitempty"`
	Situation string   `json:"situation"`
	Options   []string `json:"options,omitempty"`
}

// ScoreResult is a finalized evaluation outcome. Deltas are opaque signed
// integers per resource. Shared means the deltas apply to every team
// uniformly instead of only the acting one.
type ScoreResult struct {
	Feedback string         `json:"feedback,omitempty"`
	Deltas   map[string]int `json:"deltas,omitempty"`
	Shared   bool           `json:"shared,omitempty"`
}

// Territory records ownership of a board cell. Reassigning an owned cell
// simply overwrites it; the newest AcquiredAt stamp wins.
type Territory struct {
	OwnerTeamID string `json:"owner_team_id"`
	AcquiredAt  Stamp  `json:"acquired_at"`
}

// Dice is the last rolled pair. A manually entered total is stored in A
// with B left at zero.
type Dice struct {
	A int `json:"a"`
	B int `json:"b"`
}

func (that Dice) Total() int {
	return that.A + that.B
}

// GameState is the shared mutable turn-state document of a session. It is
// replicated whole through the document store; every field a transition
// depends on is committed in the same write.
type GameState struct {
	SessionID        string            `json:"session_id"`
	Phase            Phase             `json:"phase"`
	CurrentTeamIndex int               `json:"current_team_index"`
	TurnVersion      uint64            `json:"turn_version"`
	DiceValue        Dice              `json:"dice_value"`
	CurrentCard      *Card             `json:"current_card,omitempty"`
	SelectedChoice   string            `json:"selected_choice,omitempty"`
	Reasoning        string            `json:"reasoning,omitempty"`
	AIResult         *ScoreResult      `json:"ai_result,omitempty"`
	IsSubmitted      bool              `json:"is_submitted,omitempty"`
	IsRevealed       bool              `json:"is_revealed,omitempty"`
	IsAIProcessing   bool              `json:"is_ai_processing,omitempty"`
	ShowingScore     bool              `json:"showing_score,omitempty"`
	LastOutcome      string            `json:"last_outcome,omitempty"`
	Territories      map[int]Territory `json:"territories,omitempty"`
	PausedPhase      Phase             `json:"paused_phase,omitempty"`
	LastUpdated      Stamp             `json:"last_updated"`
}

func NewGameState(sessionID string) *GameState {
	return &GameState{
		SessionID:   sessionID,
		Phase:       PhaseWaitingToStart,
		Territories: make(map[int]Territory),
	}
}

// ClearDecision drops the in-progress decision payload. It is valid only
// while the phase is Decision, so every turn transition out of it clears.
func (that *GameState) ClearDecision() {
	that.CurrentCard = nil
	that.SelectedChoice = ""
	that.Reasoning = ""
	that.AIResult = nil
	that.IsSubmitted = false
	that.IsRevealed = false
	that.IsAIProcessing = false
}

func (that *GameState) IsPaused() bool {
	return that.Phase == PhasePaused
}
