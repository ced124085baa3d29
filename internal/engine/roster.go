package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/eduplay/boardsync-backend/internal/apperror"
	"github.com/eduplay/boardsync-backend/internal/entity"
)

// AddTeam appends a team to the turn cycle. The roster structure is frozen
// once the game starts; only the controller calls this.
func (that *Engine) AddTeam(ctx context.Context, name, color string) (*entity.Team, error) {
	var team *entity.Team

	err := that.runGuarded(func() error {
		if that.session.IsEnded() {
			return apperror.ErrSessionEnded
		}

		if that.state.Phase != entity.PhaseWaitingToStart {
			return apperror.ErrWrongPhase
		}

		team = &entity.Team{
			ID:    uuid.New().String(),
			Name:  name,
			Color: color,
		}
		that.session.Teams = append(that.session.Teams, team)

		that.pushSessionLocked(ctx)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return team, nil
}

// AddMember appends a member to a team. The members list is append-only.
func (that *Engine) AddMember(ctx context.Context, teamID, name string) (*entity.Member, error) {
	var member *entity.Member

	err := that.runGuarded(func() error {
		team, ok := that.session.TeamByID(teamID)
		if !ok {
			return apperror.ErrTeamNotFound
		}

		member = &entity.Member{
			ID:   uuid.New().String(),
			Name: name,
		}
		team.Members = append(team.Members, *member)

		that.pushSessionLocked(ctx)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return member, nil
}

// RotateActingMember moves a team's acting slot to its next member.
func (that *Engine) RotateActingMember(ctx context.Context, teamID string) error {
	return that.runGuarded(func() error {
		team, ok := that.session.TeamByID(teamID)
		if !ok {
			return apperror.ErrTeamNotFound
		}

		team.RotateActingMember()

		that.pushSessionLocked(ctx)

		return nil
	})
}
