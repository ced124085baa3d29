package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eduplay/boardsync-backend/internal/engine"
)

func (that *Server) handleCreateSession(ctx context.Context, cl *client, msg *Message) error {
	log := that.logger.With("method", "handleCreateSession")

	session, err := that.manager.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	eng, err := that.manager.Engine(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	that.joinRoom(cl, session.ID, eng)

	snapshotSession, snapshotState := eng.Snapshot()
	that.send(cl, Response{Action: msg.Action, Session: snapshotSession, State: snapshotState})

	log.Info("session created", "sessionID", session.ID, "accessCode", session.AccessCode)

	return nil
}

func (that *Server) handleJoinSession(ctx context.Context, cl *client, msg *Message) error {
	log := that.logger.With("method", "handleJoinSession")

	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}

	var eng *engine.Engine
	if payload.AccessCode != "" {
		eng, err = that.manager.JoinByAccessCode(ctx, payload.AccessCode)
	} else {
		eng, err = that.manager.Engine(ctx, payload.SessionID)
	}

	if err != nil {
		return fmt.Errorf("failed to join session: %w", err)
	}

	cl.teamID = payload.TeamID
	that.joinRoom(cl, eng.SessionID(), eng)

	session, state := eng.Snapshot()
	that.send(cl, Response{Action: msg.Action, Session: session, State: state})

	log.Info("client joined session", "sessionID", eng.SessionID(), "teamID", payload.TeamID)

	return nil
}

func (that *Server) handleAddTeam(ctx context.Context, cl *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}

	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	team, err := eng.AddTeam(ctx, payload.Name, payload.Color)
	if err != nil {
		return fmt.Errorf("failed to add team: %w", err)
	}

	that.send(cl, Response{Action: msg.Action, Team: team})

	return nil
}

func (that *Server) handleAddMember(ctx context.Context, cl *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}

	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	if _, err = eng.AddMember(ctx, payload.TeamID, payload.Name); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

func (that *Server) handleRotateMember(ctx context.Context, cl *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}

	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	if err = eng.RotateActingMember(ctx, payload.TeamID); err != nil {
		return fmt.Errorf("failed to rotate acting member: %w", err)
	}

	return nil
}

func (that *Server) handleStartGame(ctx context.Context, cl *client, _ *Message) error {
	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	return eng.StartGame(ctx)
}

func (that *Server) handlePauseGame(ctx context.Context, cl *client, _ *Message) error {
	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	return eng.PauseGame(ctx)
}

func (that *Server) handleResumeGame(ctx context.Context, cl *client, _ *Message) error {
	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	return eng.ResumeGame(ctx)
}

func (that *Server) handleRollDice(ctx context.Context, cl *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}

	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	return eng.RollDice(ctx, payload.Total)
}

func (that *Server) handleLandOnCell(ctx context.Context, cl *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}

	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	cell := -1
	if payload.Cell != nil {
		cell = *payload.Cell
	}

	return eng.LandOnCell(ctx, payload.TeamID, cell)
}

func (that *Server) handleSelection(ctx context.Context, cl *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}

	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	return eng.UpdateSelection(payload.TeamID, payload.Choice)
}

func (that *Server) handleReasoning(ctx context.Context, cl *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}

	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	return eng.UpdateReasoning(payload.TeamID, payload.Text)
}

func (that *Server) handleSubmitResponse(ctx context.Context, cl *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}

	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	return eng.SubmitResponse(ctx, payload.TeamID, payload.Choice, payload.Reasoning)
}

func (that *Server) handleRevealResponses(ctx context.Context, cl *client, _ *Message) error {
	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	return eng.RevealResponses(ctx)
}

func (that *Server) handleEvaluate(ctx context.Context, cl *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}

	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	return eng.Evaluate(ctx, payload.Shared)
}

func (that *Server) handleApplyScoringResult(ctx context.Context, cl *client, _ *Message) error {
	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	return eng.ApplyScoringResult(ctx)
}

func (that *Server) handleAdvanceTurn(ctx context.Context, cl *client, _ *Message) error {
	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	return eng.AdvanceTurn(ctx)
}

func (that *Server) handleDismissScorePopup(ctx context.Context, cl *client, _ *Message) error {
	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	return eng.DismissScorePopup(ctx)
}

func (that *Server) handleResetGame(ctx context.Context, cl *client, _ *Message) error {
	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	return eng.ResetGame(ctx)
}

func (that *Server) handleEndGame(ctx context.Context, cl *client, _ *Message) error {
	eng, err := that.sessionEngine(ctx, cl)
	if err != nil {
		return err
	}

	if err = that.manager.EndSession(ctx, eng.SessionID()); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	return nil
}

// sessionEngine resolves the engine of the session the connection joined.
func (that *Server) sessionEngine(ctx context.Context, cl *client) (*engine.Engine, error) {
	if cl.sessionID == "" {
		return nil, fmt.Errorf("connection has not joined a session")
	}

	eng, err := that.manager.Engine(ctx, cl.sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get engine: %w", err)
	}

	return eng, nil
}

func decodePayload(msg *Message) (*Payload, error) {
	var payload Payload

	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	return &payload, nil
}
