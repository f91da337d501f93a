// Package rating implements the Elo-style paired-comparison update used for every
// rated game. It is pure: callers load the two players' standings, ask the Engine for
// the updates, and persist them (see service.TournamentService.RecordResult).
package rating

import "math"

// Default constants. The Config type lets deployments override them.
const (
	// DefaultRating is the starting rating a player receives in every format.
	DefaultRating = 1200
	// DefaultProvisionalGames is the number of rated games after which a rating is established.
	DefaultProvisionalGames = 30
	// DefaultKProvisional is the K-factor for players below DefaultProvisionalGames.
	DefaultKProvisional = 32.0
	// DefaultKEstablished is the K-factor for established players.
	DefaultKEstablished = 16.0
	// DefaultEstablishmentBonus is added once, the moment a player becomes established.
	DefaultEstablishmentBonus = 0

	// scale is the rating difference at which the stronger player is expected to score 10:1.
	scale = 400.0
)

// Actual scores.
const (
	Win  = 1.0
	Draw = 0.5
	Loss = 0.0
)

// Config holds the tunable constants.
type Config struct {
	DefaultRating      int
	ProvisionalGames   int
	KProvisional       float64
	KEstablished       float64
	EstablishmentBonus int
}

// DefaultConfig returns the documented default constants.
func DefaultConfig() Config {
	return Config{
		DefaultRating:      DefaultRating,
		ProvisionalGames:   DefaultProvisionalGames,
		KProvisional:       DefaultKProvisional,
		KEstablished:       DefaultKEstablished,
		EstablishmentBonus: DefaultEstablishmentBonus,
	}
}

// Standing is a player's rating state in one format before a game.
type Standing struct {
	Rating       int
	GamesPlayed  int
	Established  bool
	BonusApplied bool
}

// Update is a player's rating state after a game.
type Update struct {
	OldRating    int
	NewRating    int
	Delta        int // NewRating - OldRating, bonus included
	GamesPlayed  int
	Established  bool
	BonusApplied bool
}

// Engine applies rating updates with a fixed Config.
type Engine struct {
	cfg Config
}

// NewEngine returns an Engine using cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's constants.
func (e *Engine) Config() Config {
	return e.cfg
}

// Expected returns the expected score of a player rated r against an opponent rated opp.
func Expected(r, opp int) float64 {
	return 1 / (1 + math.Pow(10, float64(opp-r)/scale))
}

// KFactor returns the K-factor for a player with the given history.
func (e *Engine) KFactor(s Standing) float64 {
	if s.Established || s.GamesPlayed >= e.cfg.ProvisionalGames {
		return e.cfg.KEstablished
	}
	return e.cfg.KProvisional
}

// Apply computes both players' updates for one game. scoreWhite is Win, Draw or Loss
// from white's point of view; black scores the complement. Each side uses its own
// K-factor, so deltas are only mirror images when both K-factors match.
func (e *Engine) Apply(white, black Standing, scoreWhite float64) (Update, Update) {
	w := e.update(white, black.Rating, scoreWhite)
	b := e.update(black, white.Rating, 1-scoreWhite)
	return w, b
}

func (e *Engine) update(s Standing, opponent int, actual float64) Update {
	k := e.KFactor(s)
	delta := int(math.Round(k * (actual - Expected(s.Rating, opponent))))

	// A decisive game always moves both ratings, however lopsided the pairing.
	switch {
	case actual == Win && delta < 1:
		delta = 1
	case actual == Loss && delta > -1:
		delta = -1
	}

	u := Update{
		OldRating:    s.Rating,
		NewRating:    s.Rating + delta,
		GamesPlayed:  s.GamesPlayed + 1,
		Established:  s.Established,
		BonusApplied: s.BonusApplied,
	}

	if !u.Established && u.GamesPlayed >= e.cfg.ProvisionalGames {
		u.Established = true
	}
	if u.Established && !u.BonusApplied {
		u.NewRating += e.cfg.EstablishmentBonus
		u.BonusApplied = true
	}

	u.Delta = u.NewRating - u.OldRating
	return u
}
