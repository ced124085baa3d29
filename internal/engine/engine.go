package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/eduplay/boardsync-backend/internal/entity"
	"github.com/eduplay/boardsync-backend/internal/evaluation"
	"github.com/eduplay/boardsync-backend/internal/turnsync"
)

const (
	defaultGuardWindow      = 5 * time.Second
	defaultDebounceInterval = 400 * time.Millisecond
	defaultLapBonus         = 10
	defaultTollAmount       = 5
	defaultBoostMultiplier  = 2
)

type sessionRepo interface {
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
}

type stateRepo interface {
	CreateOrUpdate(ctx context.Context, state *entity.GameState) error
}

type evaluator interface {
	Evaluate(ctx context.Context, request evaluation.Request) (*evaluation.Result, error)
}

type turnArchive interface {
	Append(ctx context.Context, sessionID string, record entity.TurnRecord) error
}

type Config struct {
	GuardWindow      time.Duration
	DebounceInterval time.Duration
	LapBonus         int
	TollAmount       int
	BoostMultiplier  int
}

func (that *Config) withDefaults() {
	if that.GuardWindow <= 0 {
		that.GuardWindow = defaultGuardWindow
	}
	if that.DebounceInterval <= 0 {
		that.DebounceInterval = defaultDebounceInterval
	}
	if that.LapBonus == 0 {
		that.LapBonus = defaultLapBonus
	}
	if that.TollAmount == 0 {
		that.TollAmount = defaultTollAmount
	}
	if that.BoostMultiplier == 0 {
		that.BoostMultiplier = defaultBoostMultiplier
	}
}

// Engine keeps one session's turn state consistent across every connected
// client. All mutations run as guarded read-modify-write sequences; all
// incoming snapshots pass the timestamp gate, the mutation guard and the
// turn version counter before any field is applied.
type Engine struct {
	logger *slog.Logger
	board  *entity.Board
	deck   []entity.Card
	cfg    Config

	mu      sync.Mutex
	session *entity.Session
	state   *entity.GameState

	clock    *turnsync.Clock
	gate     *turnsync.Gate
	guard    *turnsync.Guard
	version  *turnsync.VersionCounter
	debounce *turnsync.Debouncer

	sessions  sessionRepo
	states    stateRepo
	evaluator evaluator
	archive   turnArchive

	rollDice func() (int, int)
	onApply  func(session *entity.Session, state *entity.GameState)
}

func New(
	logger *slog.Logger,
	board *entity.Board,
	cfg Config,
	session *entity.Session,
	state *entity.GameState,
	sessions sessionRepo,
	states stateRepo,
	scorer evaluator,
	archive turnArchive,
) *Engine {
	cfg.withDefaults()

	clock := turnsync.NewClock()

	eng := &Engine{
		logger:    logger.With("component", "engine", "sessionID", session.ID),
		board:     board,
		deck:      defaultDeck(),
		cfg:       cfg,
		session:   session,
		state:     state,
		clock:     clock,
		gate:      turnsync.NewGate(),
		guard:     turnsync.NewGuard(clock, cfg.GuardWindow),
		version:   turnsync.NewVersionCounter(),
		debounce:  turnsync.NewDebouncer(cfg.DebounceInterval),
		sessions:  sessions,
		states:    states,
		evaluator: scorer,
		archive:   archive,
		rollDice:  rollPair,
	}

	if state.Territories == nil {
		state.Territories = make(map[int]entity.Territory)
	}

	eng.version.Set(state.TurnVersion)
	eng.clock.Observe(state.LastUpdated)
	eng.clock.Observe(session.LastUpdated)
	eng.gate.Accept(eng.stateStream(), state.LastUpdated)
	eng.gate.Accept(eng.sessionStream(), session.LastUpdated)

	return eng
}

// SetOnApply registers the broadcast hook. It is invoked synchronously with
// the engine lock held, after every local mutation and every accepted remote
// snapshot; the callback must not call back into the engine.
func (that *Engine) SetOnApply(fn func(session *entity.Session, state *entity.GameState)) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.onApply = fn
}

func (that *Engine) SessionID() string {
	return that.session.ID
}

// Snapshot returns deep copies of the current session and game state.
func (that *Engine) Snapshot() (*entity.Session, *entity.GameState) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return copySession(that.session), copyState(that.state)
}

func (that *Engine) TurnVersion() uint64 {
	return that.version.Current()
}

// ApplyRemoteState runs an incoming game-state snapshot through the gate,
// the guard and the version counter, and reports whether anything was
// applied. Rejections are silent: a stale snapshot is not an error.
func (that *Engine) ApplyRemoteState(remote *entity.GameState) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.gate.Accept(that.stateStream(), remote.LastUpdated) {
		return false
	}

	if that.guard.ShouldDrop(remote.LastUpdated) {
		return false
	}

	that.clock.Observe(remote.LastUpdated)

	if remote.Territories == nil {
		remote.Territories = make(map[int]entity.Territory)
	}

	// A fresh document is a peer's game reset: adopt it wholesale and
	// restart the local version counter, mirroring the local reset path.
	if remote.TurnVersion == 0 && remote.Phase == entity.PhaseWaitingToStart {
		that.version.Set(0)
		that.state = remote
		that.notifyLocked()

		return true
	}

	if that.version.TryAdvanceTurn(remote.TurnVersion) {
		// The remote writer completed a turn we have not seen; adopt the
		// whole snapshot.
		that.state = remote
		that.notifyLocked()

		return true
	}

	that.mergeSameTurnLocked(remote)
	that.notifyLocked()

	return true
}

// mergeSameTurnLocked applies the non-turn-pointer fields of a snapshot that
// did not win the version check. Sub-phase and decision fields only merge
// when the snapshot belongs to the current turn; territories merge per cell
// with the newest stamp winning.
func (that *Engine) mergeSameTurnLocked(remote *entity.GameState) {
	if remote.TurnVersion == that.version.Current() {
		that.state.Phase = remote.Phase
		that.state.PausedPhase = remote.PausedPhase
		that.state.DiceValue = remote.DiceValue
		that.state.CurrentCard = remote.CurrentCard
		that.state.SelectedChoice = remote.SelectedChoice
		that.state.Reasoning = remote.Reasoning
		that.state.AIResult = remote.AIResult
		that.state.IsSubmitted = remote.IsSubmitted
		that.state.IsRevealed = remote.IsRevealed
		that.state.IsAIProcessing = remote.IsAIProcessing
		that.state.ShowingScore = remote.ShowingScore
		that.state.LastOutcome = remote.LastOutcome
	}

	for cell, territory := range remote.Territories {
		current, ok := that.state.Territories[cell]
		if !ok || territory.AcquiredAt.After(current.AcquiredAt) {
			that.state.Territories[cell] = territory
		}
	}
}

// ApplyRemoteSession applies an incoming session snapshot. The controller is
// the only writer of the roster structure, so an accepted snapshot replaces
// the document wholesale.
func (that *Engine) ApplyRemoteSession(remote *entity.Session) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.gate.Accept(that.sessionStream(), remote.LastUpdated) {
		return false
	}

	if that.guard.ShouldDrop(remote.LastUpdated) {
		return false
	}

	that.clock.Observe(remote.LastUpdated)
	that.session = remote
	that.notifyLocked()

	return true
}

// Close stops the debounced writer.
func (that *Engine) Close() {
	that.debounce.Stop()
}

func (that *Engine) stateStream() string {
	return "gamestate:" + that.session.ID
}

func (that *Engine) sessionStream() string {
	return "session:" + that.session.ID
}

// pushStateLocked stamps and writes the game state. A failed write is
// logged and local state keeps advancing; the next successful write carries
// the authoritative value.
func (that *Engine) pushStateLocked(ctx context.Context) {
	that.debounce.Stop()

	that.state.TurnVersion = that.version.Current()
	that.state.LastUpdated = that.clock.Next()

	if err := that.states.CreateOrUpdate(ctx, that.state); err != nil {
		that.logger.Error("failed to push game state, keeping local state", "error", err)
	}

	// Our own write is the freshest view; move the watermark so the echo
	// is discarded unread.
	that.gate.Accept(that.stateStream(), that.state.LastUpdated)
}

func (that *Engine) pushSessionLocked(ctx context.Context) {
	that.session.LastUpdated = that.clock.Next()

	if err := that.sessions.CreateOrUpdate(ctx, that.session); err != nil {
		that.logger.Error("failed to push session, keeping local state", "error", err)
	}

	that.gate.Accept(that.sessionStream(), that.session.LastUpdated)
}

func (that *Engine) notifyLocked() {
	if that.onApply != nil {
		that.onApply(that.session, that.state)
	}
}

// runGuarded executes fn under the engine lock and the mutation guard, then
// notifies the broadcast hook.
func (that *Engine) runGuarded(fn func() error) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	err := that.guard.Run(fn)

	that.notifyLocked()

	return err
}

func copySession(session *entity.Session) *entity.Session {
	body, err := json.Marshal(session)
	if err != nil {
		return session
	}

	var clone entity.Session
	if err = json.Unmarshal(body, &clone); err != nil {
		return session
	}

	return &clone
}

func copyState(state *entity.GameState) *entity.GameState {
	body, err := json.Marshal(state)
	if err != nil {
		return state
	}

	var clone entity.GameState
	if err = json.Unmarshal(body, &clone); err != nil {
		return state
	}

	if clone.Territories == nil {
		clone.Territories = make(map[int]entity.Territory)
	}

	return &clone
}
