package pairing

import "sort"

// searchBudget caps the backtracking search. Past it, Swiss falls back to pairing
// neighbours in ranking order even if that repeats a game.
const searchBudget = 200_000

// Swiss pairs one round. Entrants are ranked by score, then rating, then ID; with an
// odd count the lowest-ranked entrant who has not had a bye sits out. The rest are
// paired top-down, each with the highest-ranked remaining entrant they have not met,
// backtracking when that leaves someone without a legal opponent.
func Swiss(entrants []Entrant) []Pairing {
	ranked := make([]Entrant, len(entrants))
	copy(ranked, entrants)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ID.String() < b.ID.String()
	})

	// --- Step 1: with an odd field, take one entrant out for the bye ---
	var games []Pairing
	if len(ranked)%2 == 1 {
		idx := byeCandidate(ranked)
		games = append(games, Pairing{White: ranked[idx].ID})
		// The full slice expression forces append to copy instead of writing over
		// ranked[idx+1:] in place.
		ranked = append(ranked[:idx:idx], ranked[idx+1:]...)
	}

	// --- Step 2: pair everyone else, avoiding rematches when possible ---
	pairs, ok := pairWithoutRepeats(ranked)
	if !ok {
		pairs = pairNeighbours(ranked)
	}

	// --- Step 3: decide colours and number the boards ---
	for _, p := range pairs {
		games = append(games, colour(p[0], p[1]))
	}
	return number(games)
}

// byeCandidate returns the index of the lowest-ranked entrant without a previous bye,
// or the lowest-ranked entrant when everyone has had one.
func byeCandidate(ranked []Entrant) int {
	for i := len(ranked) - 1; i >= 0; i-- {
		if !ranked[i].HadBye {
			return i
		}
	}
	return len(ranked) - 1
}

// pairWithoutRepeats searches for a complete pairing in which nobody meets a previous
// opponent. Higher-ranked entrants get the first choice of partner.
func pairWithoutRepeats(ranked []Entrant) ([][2]Entrant, bool) {
	used := make([]bool, len(ranked))
	pairs := make([][2]Entrant, 0, len(ranked)/2)
	steps := 0

	// solve is a depth-first search. Each call pairs the highest-ranked unused entrant
	// with the first legal partner below them and recurses; when the rest cannot be
	// completed it undoes that choice and tries the next partner.
	var solve func() bool
	solve = func() bool {
		first := -1
		for i := range ranked {
			if !used[i] {
				first = i
				break
			}
		}
		if first == -1 {
			return true // everyone is paired
		}
		used[first] = true
		for j := first + 1; j < len(ranked); j++ {
			if used[j] || ranked[first].played(ranked[j].ID) || ranked[j].played(ranked[first].ID) {
				continue
			}
			steps++
			if steps > searchBudget {
				break // give up; Swiss falls back to pairNeighbours
			}
			used[j] = true
			pairs = append(pairs, [2]Entrant{ranked[first], ranked[j]})
			if solve() {
				return true
			}
			pairs = pairs[:len(pairs)-1]
			used[j] = false
		}
		used[first] = false
		return false
	}

	if !solve() {
		return nil, false
	}
	return pairs, true
}

// pairNeighbours pairs 1v2, 3v4, ... in ranking order.
func pairNeighbours(ranked []Entrant) [][2]Entrant {
	pairs := make([][2]Entrant, 0, len(ranked)/2)
	for i := 0; i+1 < len(ranked); i += 2 {
		pairs = append(pairs, [2]Entrant{ranked[i], ranked[i+1]})
	}
	return pairs
}

// colour gives white to whoever has had it less often; the higher-ranked entrant
// (a) wins ties.
func colour(a, b Entrant) Pairing {
	white, black := a, b
	if b.colourBalance() < a.colourBalance() {
		white, black = b, a
	}
	blackID := black.ID
	return Pairing{White: white.ID, Black: &blackID}
}
