package entity

const (
	StatusActive = "active"
	StatusPaused = "paused"
	StatusEnded  = "ended"
)

// Member is one person on a team. The members list is append-only.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TurnRecord is an immutable audit entry appended to a team's history when
// a decision is finalized. It is used for reporting only and is never read
// back by the synchronization logic.
type TurnRecord struct {
	TeamID      string         `json:"team_id"`
	Cell        int            `json:"cell"`
	CardID      string         `json:"card_id,omitempty"`
	Choice      string         `json:"choice,omitempty"`
	Reasoning   string         `json:"reasoning,omitempty"`
	Feedback    string         `json:"feedback,omitempty"`
	Deltas      map[string]int `json:"deltas,omitempty"`
	TurnVersion uint64         `json:"turn_version"`
	RecordedAt  int64          `json:"recorded_at"`
}

type Team struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Color              string         `json:"color,omitempty"`
	Position           int            `json:"position"`
	Score              int            `json:"score"`
	Resources          map[string]int `json:"resources,omitempty"`
	LapCount           int            `json:"lap_count"`
	Members            []Member       `json:"members,omitempty"`
	CurrentMemberIndex int            `json:"current_member_index"`
	History            []TurnRecord   `json:"history,omitempty"`
}

// ActingMember returns the member whose turn it is to act for the team.
func (that *Team) ActingMember() (Member, bool) {
	if len(that.Members) == 0 {
		return Member{}, false
	}

	idx := that.CurrentMemberIndex % len(that.Members)

	return that.Members[idx], true
}

// RotateActingMember moves the acting slot to the next member.
func (that *Team) RotateActingMember() {
	if len(that.Members) == 0 {
		return
	}

	that.CurrentMemberIndex = (that.CurrentMemberIndex + 1) % len(that.Members)
}

// Session is one game instance. The teams order defines the turn cycle.
type Session struct {
	ID          string  `json:"id"`
	AccessCode  string  `json:"access_code"`
	Teams       []*Team `json:"teams,omitempty"`
	Status      string  `json:"status"`
	LastUpdated Stamp   `json:"last_updated"`
}

func NewSession(id, accessCode string) *Session {
	return &Session{
		ID:         id,
		AccessCode: accessCode,
		Status:     StatusActive,
	}
}

func (that *Session) TeamByID(id string) (*Team, bool) {
	for _, team := range that.Teams {
		if team.ID == id {
			return team, true
		}
	}

	return nil, false
}

func (that *Session) IsEnded() bool {
	return that.Status == StatusEnded
}
