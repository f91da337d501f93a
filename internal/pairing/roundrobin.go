package pairing

import (
	"sort"

	"github.com/google/uuid"
)

// RoundRobin returns the pairings of round (1-based) for a round-robin between ids,
// using the circle method: the first player stays put while the others rotate one
// seat per round. An odd field gets a phantom seat and whoever faces it has the bye.
// With n seats a full cycle is n-1 rounds; later rounds replay the cycle with colours
// reversed.
func RoundRobin(ids []uuid.UUID, round int) []Pairing {
	if len(ids) == 0 || round < 1 {
		return nil
	}

	seats := make([]uuid.UUID, len(ids))
	copy(seats, ids)
	sort.Slice(seats, func(i, j int) bool { return seats[i].String() < seats[j].String() })
	if len(seats)%2 == 1 {
		seats = append(seats, uuid.Nil)
	}
	n := len(seats)
	// A single player: the only game is a bye.
	if n == 2 && seats[1] == uuid.Nil {
		return number([]Pairing{{White: seats[0]}})
	}

	cycle := n - 1                       // rounds until everyone has met everyone once
	r := (round - 1) % cycle             // position within the current cycle
	reversed := ((round-1)/cycle)%2 == 1 // every second cycle swaps colours

	// Rotate every seat except the first by r places.
	arranged := make([]uuid.UUID, n)
	arranged[0] = seats[0]
	for k := 1; k < n; k++ {
		arranged[1+(k-1+r)%cycle] = seats[k]
	}

	// Seat i plays seat n-1-i: first against last, second against second to last, and so on.
	games := make([]Pairing, 0, n/2)
	for i := 0; i < n/2; i++ {
		a, b := arranged[i], arranged[n-1-i]
		// Whoever faces the phantom seat sits out.
		if a == uuid.Nil || b == uuid.Nil {
			player := a
			if player == uuid.Nil {
				player = b
			}
			games = append(games, Pairing{White: player})
			continue
		}
		// Alternate colours by board and round so nobody keeps the same colour.
		if (i+r)%2 == 1 {
			a, b = b, a
		}
		if reversed {
			a, b = b, a
		}
		black := b
		games = append(games, Pairing{White: a, Black: &black})
	}
	return number(games)
}
