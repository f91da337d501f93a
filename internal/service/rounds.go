package service

// rounds.go: the running part of a tournament. GenerateRound pairs and stores the next
// round; RecordResult stores a game's outcome, updates both players' ratings and closes
// the round (and the tournament) once every game has a result.
//
// Everything that changes ratings happens inside a single db.Transaction, so a failure
// half way through leaves no partial rating update behind.

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trentd187/chess-ratings/internal/access"
	"github.com/trentd187/chess-ratings/internal/apperr"
	"github.com/trentd187/chess-ratings/internal/models"
	"github.com/trentd187/chess-ratings/internal/pairing"
	"github.com/trentd187/chess-ratings/internal/rating"
)

// ResultOutcome is what recording a result changed.
type ResultOutcome struct {
	Match            models.Match            `json:"match"`             // The match with its new result
	RatingChanges    []models.RatingHistory  `json:"rating_changes"`    // One row per player; empty for a bye
	TournamentStatus models.TournamentStatus `json:"tournament_status"` // COMPLETED if this was the last game
}

// GenerateRound pairs the next round of a tournament and stores it with its matches.
//
// Rounds are generated strictly in order: roundNumber must be one past the last round
// and within the tournament's planned round count, and every game of the previous
// round must have a result. Generating round 1 starts the tournament.
func (s *TournamentService) GenerateRound(ctx context.Context, caller access.Caller, tournamentID uuid.UUID, roundNumber int) (models.Round, error) {
	// --- Step 1: checks that need no lock ---
	t, err := s.load(ctx, tournamentID)
	if err != nil {
		return models.Round{}, err
	}
	// Organizers may only run their own tournaments; officers and admins any.
	if err := access.CanManageTournament(caller, t.OrganizerID); err != nil {
		return models.Round{}, err
	}
	if t.Status != models.TournamentStatusApproved && t.Status != models.TournamentStatusInProgress {
		return models.Round{}, apperr.InvalidState("rounds cannot be generated while the tournament is %s", t.Status)
	}
	if roundNumber < 1 {
		return models.Round{}, apperr.Validation("round_number must be at least 1")
	}

	var round models.Round
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Inside the transaction every query goes through tx. SQLite runs with a single
		// connection, so reaching for s.db here would wait on ourselves.

		// --- Step 2: is roundNumber the next round? ---
		var last int
		err := tx.Model(&models.Round{}).
			Where("tournament_id = ?", t.ID).
			Select("COALESCE(MAX(round_number), 0)").
			Scan(&last).Error
		if err != nil {
			return dbError(err, "rounds")
		}
		if roundNumber != last+1 {
			return apperr.Validation("the next round of this tournament is round %d", last+1)
		}
		if roundNumber > t.Rounds {
			return apperr.Validation("this tournament has only %d rounds", t.Rounds)
		}

		// --- Step 3: the previous round must be finished ---
		if last > 0 {
			pending, err := pendingMatches(tx, t.ID, last)
			if err != nil {
				return err
			}
			if pending > 0 {
				return apperr.InvalidState("round %d still has %d games without a result", last, pending)
			}
		}

		// --- Step 4: pair the registered players ---
		// Pluck reads one column into a slice; registration order keeps the input to
		// the pairing functions stable between calls.
		var ids []uuid.UUID
		err = tx.Model(&models.TournamentPlayer{}).
			Where("tournament_id = ?", t.ID).
			Order("created_at, id").
			Pluck("player_id", &ids).Error
		if err != nil {
			return dbError(err, "registrations")
		}
		if len(ids) < 2 {
			return apperr.InvalidState("at least two registered players are needed to pair a round")
		}

		pairings, err := s.pair(tx, t, ids, roundNumber)
		if err != nil {
			return err
		}

		// --- Step 5: store the round and its matches ---
		now := time.Now().UTC()
		// Omit(clause.Associations) stops GORM from also inserting round.Matches here;
		// the matches are created one by one below.
		round = models.Round{TournamentID: t.ID, RoundNumber: roundNumber, StartTime: &now}
		if err := tx.Omit(clause.Associations).Create(&round).Error; err != nil {
			return dbError(err, "round")
		}

		round.Matches = make([]models.Match, 0, len(pairings))
		for _, p := range pairings {
			m := models.Match{
				RoundID:       round.ID,
				WhitePlayerID: p.White,
				BlackPlayerID: p.Black,
				Board:         p.Board,
				Result:        models.ResultPending,
			}
			if p.IsBye() {
				// A bye is scored on creation and never rated.
				m.Result = models.ResultBye
				m.RatingProcessed = true
			}
			if err := tx.Create(&m).Error; err != nil {
				return dbError(err, "match")
			}
			round.Matches = append(round.Matches, m)
		}

		// --- Step 6: the first round starts the tournament ---
		if t.Status == models.TournamentStatusApproved {
			res := tx.Model(&models.Tournament{}).
				Where("id = ? AND status = ?", t.ID, models.TournamentStatusApproved).
				Update("status", models.TournamentStatusInProgress)
			if res.Error != nil {
				return dbError(res.Error, "tournament")
			}
		}
		return nil
	})
	if err != nil {
		return models.Round{}, err
	}

	// Spectators hear about the round only once it has committed.
	s.log.Info().
		Str("tournament_id", t.ID.String()).
		Int("round", round.RoundNumber).
		Int("games", len(round.Matches)).
		Msg("round generated")
	s.publish(EventRoundGenerated, t.ID, round)
	return round, nil
}

// pair runs the tournament's pairing system over the registered players.
func (s *TournamentService) pair(tx *gorm.DB, t models.Tournament, ids []uuid.UUID, roundNumber int) ([]pairing.Pairing, error) {
	if t.PairingSystem == models.PairingRoundRobin {
		return pairing.RoundRobin(ids, roundNumber), nil
	}
	entrants, err := s.standings(tx, t, ids)
	if err != nil {
		return nil, err
	}
	return pairing.Swiss(entrants), nil
}

// standings rebuilds every player's score, colour history, byes and opponents from
// the matches played so far, together with their rating in the tournament's format.
func (s *TournamentService) standings(tx *gorm.DB, t models.Tournament, ids []uuid.UUID) ([]pairing.Entrant, error) {
	byID := make(map[uuid.UUID]*pairing.Entrant, len(ids))
	entrants := make([]pairing.Entrant, len(ids))
	for i, id := range ids {
		entrants[i] = pairing.Entrant{ID: id, Rating: s.engine.Config().DefaultRating, Opponents: map[uuid.UUID]bool{}}
		byID[id] = &entrants[i]
	}

	var ratings []models.Rating
	if err := tx.Where("player_id IN ? AND format = ?", ids, t.Format).Find(&ratings).Error; err != nil {
		return nil, dbError(err, "ratings")
	}
	for _, r := range ratings {
		if e := byID[r.PlayerID]; e != nil {
			e.Rating = r.Rating
		}
	}

	// Every match of the tournament so far. The subquery renders as
	// round_id IN (SELECT id FROM rounds WHERE tournament_id = ?).
	var matches []models.Match
	rounds := tx.Model(&models.Round{}).Select("id").Where("tournament_id = ?", t.ID)
	if err := tx.Where("round_id IN (?)", rounds).Find(&matches).Error; err != nil {
		return nil, dbError(err, "matches")
	}
	for _, m := range matches {
		white := byID[m.WhitePlayerID]
		// A bye: white sat out and scores a full point.
		if m.BlackPlayerID == nil {
			if white != nil {
				white.HadBye = true
				white.Score += rating.Win
			}
			continue
		}
		black := byID[*m.BlackPlayerID]
		if white == nil || black == nil {
			continue
		}
		white.Whites++
		black.Blacks++
		white.Opponents[black.ID] = true
		black.Opponents[white.ID] = true
		// Pending games count for colours and opponents but not for score.
		if score, ok := whiteScore(m.Result); ok {
			white.Score += score
			black.Score += 1 - score
		}
	}
	return entrants, nil
}

// RecordResult stores the outcome of a game and applies the rating change.
//
// The match update, both rating updates, their history rows and the completion check
// commit together. The update only matches a PENDING row, so a result submitted twice
// (or by two people at once) is applied exactly once; the loser gets Conflict.
func (s *TournamentService) RecordResult(ctx context.Context, caller access.Caller, matchID uuid.UUID, result models.MatchResult) (ResultOutcome, error) {
	// --- Step 1: validate the request against the stored match ---
	if !result.Terminal() {
		return ResultOutcome{}, apperr.Validation("result must be one of WHITE_WIN, BLACK_WIN, DRAW or BYE")
	}

	var m models.Match
	if err := s.db.WithContext(ctx).First(&m, "id = ?", matchID).Error; err != nil {
		return ResultOutcome{}, dbError(err, "match")
	}
	var round models.Round
	if err := s.db.WithContext(ctx).First(&round, "id = ?", m.RoundID).Error; err != nil {
		return ResultOutcome{}, dbError(err, "round")
	}
	t, err := s.load(ctx, round.TournamentID)
	if err != nil {
		return ResultOutcome{}, err
	}
	if err := access.CanManageTournament(caller, t.OrganizerID); err != nil {
		return ResultOutcome{}, err
	}
	if t.Status != models.TournamentStatusInProgress {
		return ResultOutcome{}, apperr.InvalidState("results can only be recorded while the tournament is IN_PROGRESS")
	}
	if m.Result.Terminal() {
		return ResultOutcome{}, apperr.Conflict("a result has already been recorded for this match")
	}
	if m.BlackPlayerID == nil && result != models.ResultBye {
		return ResultOutcome{}, apperr.Validation("a match without a black player can only be a BYE")
	}
	if m.BlackPlayerID != nil && result == models.ResultBye {
		return ResultOutcome{}, apperr.Validation("BYE is only valid for a match without a black player")
	}

	outcome := ResultOutcome{TournamentStatus: t.Status, RatingChanges: make([]models.RatingHistory, 0, 2)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// --- Step 2: claim the match ---
		// The WHERE clause only matches a PENDING row. If another request got there
		// first, RowsAffected is 0 and nothing else in this transaction runs.
		res := tx.Model(&models.Match{}).
			Where("id = ? AND result = ?", m.ID, models.ResultPending).
			Updates(map[string]any{"result": result, "rating_processed": true})
		if res.Error != nil {
			return dbError(res.Error, "match")
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("a result has already been recorded for this match")
		}
		m.Result = result
		m.RatingProcessed = true

		// --- Step 3: rate the game (byes are unrated) ---
		if score, ok := whiteScore(result); ok {
			changes, err := s.applyRatings(tx, t, m, score)
			if err != nil {
				return err
			}
			outcome.RatingChanges = changes
		}

		// --- Step 4: close the round, and the tournament after its final round ---
		pending, err := pendingMatches(tx, t.ID, round.RoundNumber)
		if err != nil {
			return err
		}
		if pending > 0 {
			return nil
		}
		if err := tx.Model(&round).Update("end_time", time.Now().UTC()).Error; err != nil {
			return dbError(err, "round")
		}
		if round.RoundNumber >= t.Rounds {
			res := tx.Model(&models.Tournament{}).
				Where("id = ? AND status = ?", t.ID, models.TournamentStatusInProgress).
				Update("status", models.TournamentStatusCompleted)
			if res.Error != nil {
				return dbError(res.Error, "tournament")
			}
			outcome.TournamentStatus = models.TournamentStatusCompleted
		}
		return nil
	})
	if err != nil {
		return ResultOutcome{}, err
	}

	outcome.Match = m
	s.log.Info().
		Str("match_id", m.ID.String()).
		Str("result", string(result)).
		Str("tournament_status", string(outcome.TournamentStatus)).
		Msg("result recorded")
	s.publish(EventResultRecorded, t.ID, outcome)
	return outcome, nil
}

// applyRatings runs the rating engine for both players of m and appends one history
// row each.
func (s *TournamentService) applyRatings(tx *gorm.DB, t models.Tournament, m models.Match, scoreWhite float64) ([]models.RatingHistory, error) {
	white, err := s.ratingFor(tx, m.WhitePlayerID, t.Format)
	if err != nil {
		return nil, err
	}
	black, err := s.ratingFor(tx, *m.BlackPlayerID, t.Format)
	if err != nil {
		return nil, err
	}

	wu, bu := s.engine.Apply(standing(white), standing(black), scoreWhite)

	// Write the new state of each side, then its history row. The history row is unique
	// per (match, player), so a second write for the same game fails the transaction.
	changes := make([]models.RatingHistory, 0, 2)
	for _, side := range []struct {
		row    models.Rating
		update rating.Update
	}{{white, wu}, {black, bu}} {
		err := tx.Model(&models.Rating{}).Where("id = ?", side.row.ID).Updates(map[string]any{
			"rating":         side.update.NewRating,
			"games_played":   side.update.GamesPlayed,
			"is_established": side.update.Established,
			"bonus_applied":  side.update.BonusApplied,
		}).Error
		if err != nil {
			return nil, dbError(err, "rating")
		}

		h := models.RatingHistory{
			PlayerID:     side.row.PlayerID,
			Format:       t.Format,
			TournamentID: &t.ID,
			MatchID:      &m.ID,
			OldRating:    side.update.OldRating,
			NewRating:    side.update.NewRating,
			Delta:        side.update.Delta,
		}
		if err := tx.Create(&h).Error; err != nil {
			return nil, dbError(err, "rating change for this match")
		}
		changes = append(changes, h)
	}
	return changes, nil
}

// ratingFor loads (and locks, on Postgres) a player's rating in format, opening it at
// the default rating if the player somehow has none.
func (s *TournamentService) ratingFor(tx *gorm.DB, playerID uuid.UUID, format models.Format) (models.Rating, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var r models.Rating
	err := q.Where(models.Rating{PlayerID: playerID, Format: format}).
		Attrs(models.Rating{Rating: s.engine.Config().DefaultRating}).
		FirstOrCreate(&r).Error
	if err != nil {
		return models.Rating{}, dbError(err, "rating")
	}
	return r, nil
}

// standing converts a stored rating row into the engine's input.
func standing(r models.Rating) rating.Standing {
	return rating.Standing{
		Rating:       r.Rating,
		GamesPlayed:  r.GamesPlayed,
		Established:  r.IsEstablished,
		BonusApplied: r.BonusApplied,
	}
}

// whiteScore is white's score for a rated result. ok is false for PENDING and BYE.
func whiteScore(r models.MatchResult) (score float64, ok bool) {
	switch r {
	case models.ResultWhiteWin:
		return rating.Win, true
	case models.ResultBlackWin:
		return rating.Loss, true
	case models.ResultDraw:
		return rating.Draw, true
	}
	return 0, false
}

// pendingMatches counts the games of one round that have no result yet.
func pendingMatches(tx *gorm.DB, tournamentID uuid.UUID, roundNumber int) (int64, error) {
	round := tx.Model(&models.Round{}).Select("id").
		Where("tournament_id = ? AND round_number = ?", tournamentID, roundNumber)
	var n int64
	err := tx.Model(&models.Match{}).
		Where("round_id IN (?) AND result = ?", round, models.ResultPending).
		Count(&n).Error
	if err != nil {
		return 0, dbError(err, "matches")
	}
	return n, nil
}
