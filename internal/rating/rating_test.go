package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpected(t *testing.T) {
	assert.InDelta(t, 0.5, Expected(1500, 1500), 1e-9)
	assert.InDelta(t, 0.2403, Expected(1400, 1600), 1e-4)
	assert.InDelta(t, 0.7597, Expected(1600, 1400), 1e-4)
	// Expected scores of the two sides always sum to one.
	assert.InDelta(t, 1.0, Expected(1234, 1876)+Expected(1876, 1234), 1e-9)
}

func TestKFactor(t *testing.T) {
	e := NewEngine(DefaultConfig())

	assert.Equal(t, 32.0, e.KFactor(Standing{GamesPlayed: 0}))
	assert.Equal(t, 32.0, e.KFactor(Standing{GamesPlayed: 29}))
	assert.Equal(t, 16.0, e.KFactor(Standing{GamesPlayed: 30}))
	assert.Equal(t, 16.0, e.KFactor(Standing{GamesPlayed: 3, Established: true}))
}

func TestApplyUpsetByEstablishedPlayers(t *testing.T) {
	e := NewEngine(DefaultConfig())

	a := Standing{Rating: 1400, GamesPlayed: 50, Established: true, BonusApplied: true}
	b := Standing{Rating: 1600, GamesPlayed: 50, Established: true, BonusApplied: true}

	wa, wb := e.Apply(a, b, Win)

	assert.Equal(t, 12, wa.Delta)
	assert.Equal(t, 1412, wa.NewRating)
	assert.Equal(t, 51, wa.GamesPlayed)
	assert.Equal(t, -12, wb.Delta)
	assert.Equal(t, 1588, wb.NewRating)
}

func TestApplyDrawBetweenEqualsIsNeutral(t *testing.T) {
	e := NewEngine(DefaultConfig())
	s := Standing{Rating: 1200}

	w, b := e.Apply(s, s, Draw)

	assert.Equal(t, 0, w.Delta)
	assert.Equal(t, 0, b.Delta)
	assert.Equal(t, 1200, w.NewRating)
	assert.Equal(t, 1, w.GamesPlayed)
	assert.Equal(t, 1, b.GamesPlayed)
}

func TestApplyProvisionalUsesHigherK(t *testing.T) {
	e := NewEngine(DefaultConfig())
	newcomer := Standing{Rating: 1200, GamesPlayed: 0}
	veteran := Standing{Rating: 1200, GamesPlayed: 40, Established: true, BonusApplied: true}

	w, b := e.Apply(newcomer, veteran, Loss)

	assert.Equal(t, -16, w.Delta) // 32 * (0 - 0.5)
	assert.Equal(t, 8, b.Delta)   // 16 * (1 - 0.5)
	assert.False(t, w.Established)
}

func TestApplyEstablishesAtThresholdAndPaysBonusOnce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EstablishmentBonus = 25
	e := NewEngine(cfg)

	almost := Standing{Rating: 1300, GamesPlayed: 29}
	opp := Standing{Rating: 1300, GamesPlayed: 29}

	w, _ := e.Apply(almost, opp, Draw)
	assert.True(t, w.Established)
	assert.True(t, w.BonusApplied)
	assert.Equal(t, 30, w.GamesPlayed)
	assert.Equal(t, 1325, w.NewRating)
	assert.Equal(t, 25, w.Delta)

	next := Standing{Rating: w.NewRating, GamesPlayed: w.GamesPlayed, Established: w.Established, BonusApplied: w.BonusApplied}
	w2, _ := e.Apply(next, Standing{Rating: 1325, GamesPlayed: 30, Established: true, BonusApplied: true}, Draw)
	assert.Equal(t, 0, w2.Delta)
	assert.Equal(t, 1325, w2.NewRating)
}

func TestApplyDecisiveSigns(t *testing.T) {
	e := NewEngine(DefaultConfig())
	pairs := [][2]int{{1200, 1200}, {1800, 1200}, {1200, 1800}, {2100, 2095}, {2400, 1200}}

	for _, p := range pairs {
		for _, games := range []int{10, 50} {
			est := games >= DefaultProvisionalGames
			white := Standing{Rating: p[0], GamesPlayed: games, Established: est, BonusApplied: est}
			black := Standing{Rating: p[1], GamesPlayed: games, Established: est, BonusApplied: est}

			w, b := e.Apply(white, black, Win)
			assert.Greater(t, w.Delta, 0, "white wins %v after %d games", p, games)
			assert.Less(t, b.Delta, 0, "black loses %v after %d games", p, games)

			w, b = e.Apply(white, black, Loss)
			assert.Less(t, w.Delta, 0, "white loses %v after %d games", p, games)
			assert.Greater(t, b.Delta, 0, "black wins %v after %d games", p, games)
		}
	}
}

func TestApplyLopsidedEstablishedGameMovesByOne(t *testing.T) {
	e := NewEngine(DefaultConfig())
	strong := Standing{Rating: 1800, GamesPlayed: 50, Established: true, BonusApplied: true}
	weak := Standing{Rating: 1200, GamesPlayed: 50, Established: true, BonusApplied: true}

	w, b := e.Apply(strong, weak, Win)
	assert.Equal(t, 1, w.Delta)
	assert.Equal(t, 1801, w.NewRating)
	assert.Equal(t, -1, b.Delta)
	assert.Equal(t, 1199, b.NewRating)
}
