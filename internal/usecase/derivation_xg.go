package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmorneau/rinkstats/internal/domain/analytics"
	"github.com/jmorneau/rinkstats/internal/domain/event"
	"github.com/jmorneau/rinkstats/internal/domain/ingestrun"
	"github.com/jmorneau/rinkstats/internal/domain/player"
)

// deriveExpectedGoals routes a season through the measured model when its
// shots carry coordinates and through the estimation model otherwise. Both
// paths replace the season's rows, so a season that gains or loses coverage
// on re-ingest flips provenance cleanly instead of mixing rows.
func (s *DerivationService) deriveExpectedGoals(ctx context.Context, ds *seasonDataset, summary *DerivationSummary) error {
	seasonID := ds.seasonID

	if ds.hasCoordinates() {
		shotRows, playerRows, goalieRows := s.measuredXG(ds)
		if err := s.analyticsRepo.ReplaceShotXG(ctx, seasonID, shotRows); err != nil {
			return fmt.Errorf("replace shot xg season_id=%d: %w", seasonID, err)
		}
		if err := s.analyticsRepo.ReplacePlayerXG(ctx, seasonID, playerRows); err != nil {
			return fmt.Errorf("replace player xg season_id=%d: %w", seasonID, err)
		}
		if err := s.analyticsRepo.ReplaceGoalieGSAx(ctx, seasonID, goalieRows); err != nil {
			return fmt.Errorf("replace goalie gsax season_id=%d: %w", seasonID, err)
		}
		summary.ShotXGRows = len(shotRows)
		summary.PlayerXGRows = len(playerRows)
		summary.GoalieGSAxRows = len(goalieRows)
		return nil
	}

	measuredSeasons, err := s.eventRepo.SeasonsWithShotCoordinates(ctx)
	if err != nil {
		return fmt.Errorf("list measured seasons for estimation season_id=%d: %w", seasonID, err)
	}

	rates, err := s.measuredShootingRates(ctx, measuredSeasons, ds.players)
	if err != nil {
		return err
	}
	playerRows := s.estimatedPlayerXG(ds, rates)
	goalieRows, err := s.estimatedGoalieGSAx(ctx, ds, measuredSeasons)
	if err != nil {
		return err
	}

	if len(ds.skaters) == 0 && len(ds.goalies) == 0 && len(ds.finalGames) > 0 {
		summary.Anomalies = append(summary.Anomalies, ingestrun.Anomaly{
			Kind:      ingestrun.AnomalyDerivationIncomplete,
			SeasonID:  &seasonID,
			EntityKey: fmt.Sprintf("season:%d", seasonID),
			Reason:    "no shot coordinates and no aggregate stat lines, expected goals skipped",
		})
	}

	// No coordinates means no per-shot rows; clearing the table drops any
	// stale measured rows from before the coverage changed.
	if err := s.analyticsRepo.ReplaceShotXG(ctx, seasonID, nil); err != nil {
		return fmt.Errorf("clear shot xg season_id=%d: %w", seasonID, err)
	}
	if err := s.analyticsRepo.ReplacePlayerXG(ctx, seasonID, playerRows); err != nil {
		return fmt.Errorf("replace estimated player xg season_id=%d: %w", seasonID, err)
	}
	if err := s.analyticsRepo.ReplaceGoalieGSAx(ctx, seasonID, goalieRows); err != nil {
		return fmt.Errorf("replace estimated goalie gsax season_id=%d: %w", seasonID, err)
	}
	summary.PlayerXGRows = len(playerRows)
	summary.GoalieGSAxRows = len(goalieRows)

	return nil
}

// measuredXG scores each located shot and rolls the results up per shooter
// and per goalie. Shots without a recorded goalie count for the shooter but
// are excluded from GSAx rather than guessed onto a netminder.
func (s *DerivationService) measuredXG(ds *seasonDataset) ([]analytics.ShotXG, []analytics.PlayerXG, []analytics.GoalieGSAx) {
	clocks := buildStrengthClocks(ds.penalties)

	type playerKey struct{ playerID, teamID int64 }
	type goalieKey struct{ goalieID, teamID int64 }
	shotRows := make([]analytics.ShotXG, 0, len(ds.shots))
	playerAgg := make(map[playerKey]*analytics.PlayerXG)
	goalieAgg := make(map[goalieKey]*analytics.GoalieGSAx)

	for _, shot := range ds.shots {
		strength := analytics.StrengthEven
		if clock, ok := clocks[shot.GameID]; ok {
			strength = clock.strengthFor(shot.TeamID, shot.OpponentTeamID, event.AbsoluteSeconds(shot.Period, shot.GameSeconds))
		}
		xg := s.shotXG(shot, strength)
		isGoal := shot.IsGoal()

		shotRows = append(shotRows, analytics.ShotXG{
			ShotID:       shot.ID,
			GameID:       shot.GameID,
			SeasonID:     shot.SeasonID,
			PlayerID:     shot.PlayerID,
			TeamID:       shot.TeamID,
			GoalieID:     shot.GoalieID,
			XG:           xg,
			Strength:     strength,
			IsGoal:       isGoal,
			ModelVersion: s.params.Version,
		})

		pk := playerKey{shot.PlayerID, shot.TeamID}
		pa, ok := playerAgg[pk]
		if !ok {
			pa = &analytics.PlayerXG{
				PlayerID:     shot.PlayerID,
				TeamID:       shot.TeamID,
				SeasonID:     ds.seasonID,
				Provenance:   analytics.ProvenanceMeasured,
				ModelVersion: s.params.Version,
			}
			playerAgg[pk] = pa
		}
		pa.Shots++
		pa.XG += xg
		if isGoal {
			pa.Goals++
		}

		if shot.GoalieID != nil {
			gk := goalieKey{*shot.GoalieID, shot.OpponentTeamID}
			ga, ok := goalieAgg[gk]
			if !ok {
				ga = &analytics.GoalieGSAx{
					GoalieID:     *shot.GoalieID,
					TeamID:       shot.OpponentTeamID,
					SeasonID:     ds.seasonID,
					Provenance:   analytics.ProvenanceMeasured,
					ModelVersion: s.params.Version,
				}
				goalieAgg[gk] = ga
			}
			ga.ShotsFaced++
			ga.ExpectedGoals += xg
			if isGoal {
				ga.GoalsAgainst++
			}
		}
	}

	playerRows := make([]analytics.PlayerXG, 0, len(playerAgg))
	for _, pa := range playerAgg {
		pa.GoalsAboveExpected = float64(pa.Goals) - pa.XG
		playerRows = append(playerRows, *pa)
	}
	sort.Slice(playerRows, func(i, j int) bool {
		if playerRows[i].PlayerID != playerRows[j].PlayerID {
			return playerRows[i].PlayerID < playerRows[j].PlayerID
		}
		return playerRows[i].TeamID < playerRows[j].TeamID
	})

	goalieRows := make([]analytics.GoalieGSAx, 0, len(goalieAgg))
	for _, ga := range goalieAgg {
		ga.GSAx = ga.ExpectedGoals - float64(ga.GoalsAgainst)
		goalieRows = append(goalieRows, *ga)
	}
	sort.Slice(goalieRows, func(i, j int) bool {
		if goalieRows[i].GoalieID != goalieRows[j].GoalieID {
			return goalieRows[i].GoalieID < goalieRows[j].GoalieID
		}
		return goalieRows[i].TeamID < goalieRows[j].TeamID
	})

	return shotRows, playerRows, goalieRows
}

// shotXG is the measured model: a location base scaled by shot type, chance
// quality and strength state, capped so one shot never dominates a rollup.
func (s *DerivationService) shotXG(shot event.Shot, strength string) float64 {
	base := s.params.OuterBase
	if shot.Y != nil && *shot.Y >= s.params.SlotYMin && *shot.Y <= s.params.SlotYMax {
		base = s.params.SlotBase
	}

	multiplier := 1.0
	if shot.ShotType != nil {
		if m, ok := s.params.ShotTypeMultipliers[*shot.ShotType]; ok {
			multiplier *= m
		}
	}
	if shot.Quality != nil {
		if m, ok := s.params.QualityMultipliers[*shot.Quality]; ok {
			multiplier *= m
		}
	}
	switch strength {
	case analytics.StrengthPowerPlay:
		multiplier *= s.params.PowerPlayMultiplier
	case analytics.StrengthShortHanded:
		multiplier *= s.params.ShortHandedMultiplier
	}

	xg := base * multiplier
	if xg < 0 {
		xg = 0
	}
	if xg > s.params.XGCap {
		xg = s.params.XGCap
	}

	return xg
}

// shootingRates carries the league-wide goals-per-shot averages estimation
// blends: one rate per position class and one per season shot-volume bucket,
// both computed from seasons with real coordinates.
type shootingRates struct {
	position map[player.PositionClass]float64
	bucket   []float64
}

func (s *DerivationService) measuredShootingRates(ctx context.Context, measuredSeasons map[int64]bool, players map[int64]player.Player) (shootingRates, error) {
	type acc struct {
		sum float64
		n   int
	}
	posAcc := make(map[player.PositionClass]*acc)
	bucketAcc := make([]acc, len(s.params.VolumeBuckets))

	for seasonID, measured := range measuredSeasons {
		if !measured {
			continue
		}
		lines, err := s.skaterStatsRepo.ListBySeason(ctx, seasonID)
		if err != nil {
			return shootingRates{}, fmt.Errorf("list skater stats for shooting rates season_id=%d: %w", seasonID, err)
		}
		for _, line := range lines {
			if line.Shots <= 0 {
				continue
			}
			ratio := float64(line.Goals) / float64(line.Shots)

			class := player.ClassForward
			if p, ok := players[line.PlayerID]; ok && p.PositionClass != "" {
				class = p.PositionClass
			}
			pa, ok := posAcc[class]
			if !ok {
				pa = &acc{}
				posAcc[class] = pa
			}
			pa.sum += ratio
			pa.n++

			idx := s.volumeBucketIndex(line.Shots)
			bucketAcc[idx].sum += ratio
			bucketAcc[idx].n++
		}
	}

	rates := shootingRates{
		position: make(map[player.PositionClass]float64, len(posAcc)),
		bucket:   make([]float64, len(bucketAcc)),
	}
	for class, pa := range posAcc {
		rates.position[class] = pa.sum / float64(pa.n)
	}
	for idx, ba := range bucketAcc {
		if ba.n > 0 {
			rates.bucket[idx] = ba.sum / float64(ba.n)
		} else {
			rates.bucket[idx] = s.params.DefaultShootingRate
		}
	}

	return rates, nil
}

func (r shootingRates) positionRate(class player.PositionClass, fallback float64) float64 {
	if rate, ok := r.position[class]; ok {
		return rate
	}
	return fallback
}

func (s *DerivationService) volumeBucketIndex(shots int) int {
	last := len(s.params.VolumeBuckets) - 1
	for idx, bucket := range s.params.VolumeBuckets[:last] {
		if shots < bucket.Limit {
			return idx
		}
	}
	return last
}

// estimatedPlayerXG approximates xG for a coordinate-less season from each
// skater's aggregate line: a blended league rate regressed by shot volume,
// anchored to actual goals as volume grows.
func (s *DerivationService) estimatedPlayerXG(ds *seasonDataset, rates shootingRates) []analytics.PlayerXG {
	rows := make([]analytics.PlayerXG, 0, len(ds.skaters))
	for _, line := range ds.skaters {
		idx := s.volumeBucketIndex(line.Shots)
		rate := s.params.PositionRateWeight*rates.positionRate(ds.positionClass(line.PlayerID), s.params.DefaultShootingRate) +
			s.params.VolumeRateWeight*rates.bucket[idx]
		regression := s.params.VolumeBuckets[idx].Regression

		xg := float64(line.Shots)*rate*regression + float64(line.Goals)*(1-regression)
		if xg < 0 {
			xg = 0
		}

		rows = append(rows, analytics.PlayerXG{
			PlayerID:           line.PlayerID,
			TeamID:             line.TeamID,
			SeasonID:           ds.seasonID,
			Shots:              line.Shots,
			Goals:              line.Goals,
			XG:                 xg,
			GoalsAboveExpected: float64(line.Goals) - xg,
			Provenance:         analytics.ProvenanceEstimated,
			ModelVersion:       s.params.Version,
		})
	}

	return rows
}

// estimatedGoalieGSAx scores a coordinate-less season against the league
// save percentage observed in measured seasons (minimum games applied so a
// two-game cameo doesn't move the league line).
func (s *DerivationService) estimatedGoalieGSAx(ctx context.Context, ds *seasonDataset, measuredSeasons map[int64]bool) ([]analytics.GoalieGSAx, error) {
	all, err := s.goalieStatsRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goalie stats for league save pct: %w", err)
	}

	var saves, shots int
	for _, line := range all {
		if !measuredSeasons[line.SeasonID] {
			continue
		}
		if line.GamesPlayed < s.params.MinGoalieGamesForLeagueAvg || line.ShotsAgainst <= 0 {
			continue
		}
		saves += line.Saves
		shots += line.ShotsAgainst
	}
	savePct := s.params.DefaultSavePct
	if shots > 0 {
		savePct = float64(saves) / float64(shots)
	}

	rows := make([]analytics.GoalieGSAx, 0, len(ds.goalies))
	for _, line := range ds.goalies {
		expected := float64(line.ShotsAgainst) * (1 - savePct)
		rows = append(rows, analytics.GoalieGSAx{
			GoalieID:      line.PlayerID,
			TeamID:        line.TeamID,
			SeasonID:      ds.seasonID,
			ShotsFaced:    line.ShotsAgainst,
			GoalsAgainst:  line.GoalsAgainst,
			ExpectedGoals: expected,
			GSAx:          expected - float64(line.GoalsAgainst),
			Provenance:    analytics.ProvenanceEstimated,
			ModelVersion:  s.params.Version,
		})
	}

	return rows, nil
}

type penaltyWindow struct {
	start int
	end   int
}

// strengthClock holds one game's penalty box windows keyed by the penalized
// team.
type strengthClock struct {
	byTeam map[int64][]penaltyWindow
}

func buildStrengthClocks(penalties []event.Penalty) map[int64]*strengthClock {
	out := make(map[int64]*strengthClock)
	for _, p := range penalties {
		start, end, ok := p.Window()
		if !ok {
			continue
		}
		clock, exists := out[p.GameID]
		if !exists {
			clock = &strengthClock{byTeam: make(map[int64][]penaltyWindow)}
			out[p.GameID] = clock
		}
		clock.byTeam[p.TeamID] = append(clock.byTeam[p.TeamID], penaltyWindow{start: start, end: end})
	}

	return out
}

// strengthFor classifies the shooting team's state at an absolute game
// second: more boxed opponents than own skaters means power play.
func (c *strengthClock) strengthFor(shootingTeamID, opponentTeamID int64, at int) string {
	own := activePenaltyWindows(c.byTeam[shootingTeamID], at)
	opponent := activePenaltyWindows(c.byTeam[opponentTeamID], at)
	switch {
	case opponent > own:
		return analytics.StrengthPowerPlay
	case own > opponent:
		return analytics.StrengthShortHanded
	default:
		return analytics.StrengthEven
	}
}

func activePenaltyWindows(windows []penaltyWindow, at int) int {
	active := 0
	for _, w := range windows {
		if at >= w.start && at < w.end {
			active++
		}
	}

	return active
}
