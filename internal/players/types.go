// Package players is the directory of people who take the assessment.
package players

import "time"

// Player is a person who can be assessed. Position doubles as the role hint
// passed to scenario generation.
type Player struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Position  string    `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}
