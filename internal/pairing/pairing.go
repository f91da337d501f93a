// Package pairing generates the games of a tournament round.
//
// Two policies are provided: Swiss (pair players on similar scores without rematches)
// and RoundRobin (the circle method). Both are pure functions over IDs and standings;
// persisting the result is the caller's job. Every player appears in exactly one
// Pairing per round, and at most one Pairing per round is a bye.
package pairing

import "github.com/google/uuid"

// Pairing is one board of a round. Black is nil when White has the bye.
type Pairing struct {
	Board int        // 1-based; the bye, if any, is always the last board
	White uuid.UUID  // Also the player who sits out when Black is nil
	Black *uuid.UUID // nil for a bye
}

// IsBye reports whether the pairing has no opponent.
func (p Pairing) IsBye() bool {
	return p.Black == nil
}

// Entrant is a player's standing going into a Swiss round.
type Entrant struct {
	ID        uuid.UUID
	Rating    int     // rating in the tournament's format; breaks score ties
	Score     float64 // points so far: 1 per win or bye, 0.5 per draw
	Whites    int     // games played with white so far
	Blacks    int     // games played with black so far
	HadBye    bool    // a second bye is only given when everyone has had one
	// Opponents holds everyone this entrant has already played.
	Opponents map[uuid.UUID]bool
}

// played reports whether e has already met other. A nil map means no games yet.
func (e Entrant) played(other uuid.UUID) bool {
	return e.Opponents != nil && e.Opponents[other]
}

// colourBalance is positive when the entrant has had white more often than black.
func (e Entrant) colourBalance() int {
	return e.Whites - e.Blacks
}

// number assigns board numbers in order, byes last.
func number(games []Pairing) []Pairing {
	out := make([]Pairing, 0, len(games))
	var bye *Pairing
	for i := range games {
		if games[i].IsBye() {
			g := games[i]
			bye = &g
			continue
		}
		out = append(out, games[i])
	}
	if bye != nil {
		out = append(out, *bye)
	}
	for i := range out {
		out[i].Board = i + 1
	}
	return out
}
