package engine

import "github.com/eduplay/boardsync-backend/internal/entity"

// defaultDeck is the built-in set of situation cards. Card content is
// intentionally small here; the deck cycles deterministically so every
// client that replays the same turn draws the same card.
func defaultDeck() []entity.Card {
	return []entity.Card{
		{
			ID:        "budget-cut",
			Category:  "finance",
			Situation: "Your project budget was cut by a third mid-quarter. What do you do?",
			Options:   []string{"Cut scope", "Negotiate more funding", "Stretch the team"},
		},
		{
			ID:        "whistle",
			Category:  "ethics",
			Situation: "A teammate inflated the results in the progress report. How do you react?",
			Options:   []string{"Report it", "Talk to them first", "Let it slide"},
		},
		{
			ID:        "rush-order",
			Category:  "operations",
			Situation: "A key client demands delivery two weeks early. What is your call?",
			Options:   []string{"Accept and reprioritize", "Decline", "Offer a partial delivery"},
		},
		{
			ID:        "new-market",
			Category:  "strategy",
			Situation: "A competitor just left a neighboring market. Do you expand?",
			Options:   []string{"Expand now", "Wait a quarter", "Partner locally"},
		},
		{
			ID:        "burnout",
			Category:  "people",
			Situation: "Your best performer is showing signs of burnout before a deadline.",
			Options:   []string{"Reduce their load", "Push through the deadline", "Bring in help"},
		},
		{
			ID:        "data-leak",
			Category:  "ethics",
			Situation: "You discover a minor customer-data leak nobody else noticed.",
			Options:   []string{"Disclose immediately", "Fix quietly", "Escalate internally first"},
		},
	}
}

// drawCardLocked picks the card for a landing deterministically from the
// cell and the turn version.
func (that *Engine) drawCardLocked(cellIndex int) *entity.Card {
	idx := (cellIndex + int(that.version.Current())) % len(that.deck)
	card := that.deck[idx]

	return &card
}
