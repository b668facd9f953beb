package leaguestat

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmorneau/rinkstats/internal/usecase"
)

// The feed encodes nearly everything as strings: ids, counts, dates and
// booleans ("1"/"0") alike. Every getter below tolerates the string form,
// the native JSON form, and absence.

func parseSeasons(rows []map[string]any) []usecase.ExternalSeason {
	out := make([]usecase.ExternalSeason, 0, len(rows))
	for _, row := range rows {
		id := getInt64(row, "season_id")
		if id <= 0 {
			continue
		}
		out = append(out, usecase.ExternalSeason{
			ID:        id,
			Name:      getString(row, "season_name"),
			Career:    getBool(row, "career"),
			Playoff:   getBool(row, "playoff"),
			StartDate: parseFeedDate(getString(row, "start_date")),
			EndDate:   parseFeedDate(getString(row, "end_date")),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func parseTeams(rows []map[string]any) []usecase.ExternalTeam {
	out := make([]usecase.ExternalTeam, 0, len(rows))
	for _, row := range rows {
		id := getInt64(row, "id", "team_id")
		if id <= 0 {
			continue
		}
		team := usecase.ExternalTeam{
			ID:           id,
			Name:         getString(row, "name", "team_name"),
			City:         getString(row, "city", "team_city"),
			Code:         getString(row, "code", "team_code"),
			Nickname:     getString(row, "nickname", "team_nickname"),
			DivisionName: getString(row, "division_name"),
		}
		if divisionID := getInt64(row, "division_id"); divisionID > 0 {
			team.DivisionID = &divisionID
		}
		out = append(out, team)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func parseRoster(rows []map[string]any) []usecase.ExternalRosterPlayer {
	out := make([]usecase.ExternalRosterPlayer, 0, len(rows))
	for _, row := range rows {
		id := getInt64(row, "player_id", "id")
		if id <= 0 {
			continue
		}
		player := usecase.ExternalRosterPlayer{
			PlayerID:     id,
			FirstName:    getString(row, "first_name"),
			LastName:     getString(row, "last_name"),
			Position:     getString(row, "position"),
			Shoots:       getString(row, "shoots"),
			Catches:      getString(row, "catches"),
			Height:       getString(row, "height"),
			BirthDate:    parseFeedDate(getString(row, "birthdate", "birth_date")),
			Hometown:     getString(row, "hometown", "home_town"),
			HomeProvince: getString(row, "homeprov", "home_province"),
			BirthCountry: getString(row, "birthcntry", "birth_country"),
			Rookie:       getBool(row, "rookie"),
			Veteran:      getBool(row, "veteran_status", "veteran"),
			ImageURL:     getString(row, "player_image", "image_url"),
			Status:       getString(row, "status"),
		}
		if weight := getInt(row, "weight"); weight > 0 {
			player.Weight = &weight
		}
		if jersey, ok := lookupInt(row, "tp_jersey_number", "jersey_number"); ok {
			player.JerseyNumber = &jersey
		}
		out = append(out, player)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

func parseSchedule(rows []map[string]any, seasonID int64) []usecase.ExternalGame {
	out := make([]usecase.ExternalGame, 0, len(rows))
	for _, row := range rows {
		id := getInt64(row, "game_id", "id")
		if id <= 0 {
			continue
		}
		game := usecase.ExternalGame{
			ID:               id,
			SeasonID:         seasonID,
			HomeTeamID:       getInt64(row, "home_team"),
			VisitingTeamID:   getInt64(row, "visiting_team"),
			HomeTeamName:     getString(row, "home_team_name", "home_team_city"),
			VisitingTeamName: getString(row, "visiting_team_name", "visiting_team_city"),
			HomeTeamCode:     getString(row, "home_team_code"),
			VisitingTeamCode: getString(row, "visiting_team_code"),
			StatusLabel:      getString(row, "game_status", "status"),
			Overtime:         getBool(row, "overtime"),
			Shootout:         getBool(row, "shootout"),
			VenueName:        getString(row, "venue_name", "venue"),
			VenueLocation:    getString(row, "venue_location"),
			ScheduledAt:      parseFeedDateTime(getString(row, "GameDateISO8601"), getString(row, "date_time_played", "date_played")),
		}
		if score, ok := lookupInt(row, "home_goal_count"); ok {
			game.HomeScore = &score
		}
		if score, ok := lookupInt(row, "visiting_goal_count"); ok {
			game.VisitingScore = &score
		}
		if attendance, ok := lookupInt(row, "attendance"); ok && attendance > 0 {
			game.Attendance = &attendance
		}
		out = append(out, game)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func parseSkaters(rows []map[string]any) []usecase.ExternalSkaterLine {
	out := make([]usecase.ExternalSkaterLine, 0, len(rows))
	for _, row := range rows {
		id := getInt64(row, "player_id")
		if id <= 0 {
			continue
		}
		line := usecase.ExternalSkaterLine{
			PlayerID:         id,
			TeamID:           getInt64(row, "team_id"),
			FirstName:        getString(row, "first_name"),
			LastName:         getString(row, "last_name"),
			Position:         getString(row, "position"),
			Rookie:           getBool(row, "rookie"),
			GamesPlayed:      getInt(row, "games_played"),
			Goals:            getInt(row, "goals"),
			Assists:          getInt(row, "assists"),
			Points:           getInt(row, "points"),
			PlusMinus:        getInt(row, "plus_minus"),
			PenaltyMinutes:   getFloat(row, "penalty_minutes"),
			Shots:            getInt(row, "shots"),
			PPGoals:          getInt(row, "power_play_goals"),
			PPAssists:        getInt(row, "power_play_assists"),
			SHGoals:          getInt(row, "short_handed_goals"),
			SHAssists:        getInt(row, "short_handed_assists"),
			GameWinningGoals: getInt(row, "game_winning_goals"),
			FirstGoals:       getInt(row, "first_goals"),
			InsuranceGoals:   getInt(row, "insurance_goals"),
			EmptyNetGoals:    getInt(row, "empty_net_goals"),
			OvertimeGoals:    getInt(row, "overtime_goals"),
			ShootoutGoals:    getInt(row, "shootout_goals"),
			ShootoutAttempts: getInt(row, "shootout_attempts"),
			FaceoffAttempts:  getInt(row, "faceoff_attempts"),
			FaceoffWins:      getInt(row, "faceoff_wins"),
			Hits:             getInt(row, "hits"),
		}
		if pct, ok := lookupFloat(row, "faceoff_pct"); ok {
			line.FaceoffPct = &pct
		}
		if seconds, ok := lookupIceTimeSeconds(row, "ice_time", "ice_time_seconds"); ok {
			line.IceTimeSeconds = &seconds
		}
		out = append(out, line)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

func parseGoalies(rows []map[string]any) []usecase.ExternalGoalieLine {
	out := make([]usecase.ExternalGoalieLine, 0, len(rows))
	for _, row := range rows {
		id := getInt64(row, "player_id")
		if id <= 0 {
			continue
		}
		line := usecase.ExternalGoalieLine{
			PlayerID:       id,
			TeamID:         getInt64(row, "team_id"),
			FirstName:      getString(row, "first_name"),
			LastName:       getString(row, "last_name"),
			GamesPlayed:    getInt(row, "games_played"),
			Wins:           getInt(row, "wins"),
			Losses:         getInt(row, "losses"),
			OTLosses:       getInt(row, "ot_losses", "overtime_losses"),
			ShootoutLosses: getInt(row, "shootout_losses"),
			ShotsAgainst:   getInt(row, "shots", "shots_against"),
			Saves:          getInt(row, "saves"),
			GoalsAgainst:   getInt(row, "goals_against"),
			Shutouts:       getInt(row, "shutouts"),
		}
		if seconds, ok := lookupIceTimeSeconds(row, "seconds_played", "minutes_played"); ok {
			line.SecondsPlayed = seconds
		}
		if gaa, ok := lookupFloat(row, "goals_against_average", "gaa"); ok {
			line.GAA = &gaa
		}
		if savePct, ok := lookupFloat(row, "save_percentage", "savepct"); ok {
			line.SavePct = &savePct
		}
		out = append(out, line)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

func parseStandings(rows []map[string]any) []usecase.ExternalStandingsRow {
	out := make([]usecase.ExternalStandingsRow, 0, len(rows))
	for _, row := range rows {
		id := getInt64(row, "team_id", "id")
		if id <= 0 {
			continue
		}
		standing := usecase.ExternalStandingsRow{
			TeamID:               id,
			TeamName:             getString(row, "team_name", "name"),
			GamesPlayed:          getInt(row, "games_played"),
			Wins:                 getInt(row, "wins"),
			Losses:               getInt(row, "losses"),
			OTLosses:             getInt(row, "ot_losses", "overtime_losses"),
			ShootoutWins:         getInt(row, "shootout_wins"),
			RegulationWins:       getInt(row, "regulation_wins"),
			RegulationPlusOTWins: getInt(row, "row"),
			Points:               getInt(row, "points"),
			GoalsFor:             getInt(row, "goals_for"),
			GoalsAgainst:         getInt(row, "goals_against"),
			HomeRecord:           getString(row, "home_record"),
			VisitingRecord:       getString(row, "visiting_record", "away_record"),
			PastTen:              getString(row, "past_10", "last_ten"),
			Streak:               getString(row, "streak"),
			ClinchedPlayoffs:     getBool(row, "clinched_playoff_spot", "clinched"),
		}
		if pct, ok := lookupFloat(row, "percentage", "win_pct"); ok {
			standing.WinPct = &pct
		}
		if pct, ok := lookupFloat(row, "power_play_pct"); ok {
			standing.PowerPlayPct = &pct
		}
		if pct, ok := lookupFloat(row, "penalty_kill_pct"); ok {
			standing.PenaltyKillPct = &pct
		}
		if pct, ok := lookupFloat(row, "shootout_pct"); ok {
			standing.ShootoutPct = &pct
		}
		if rank, ok := lookupInt(row, "rank", "divisional_rank"); ok && rank > 0 {
			standing.Rank = &rank
		}
		out = append(out, standing)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out
}

func getString(row map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		switch typed := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(typed); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatFloat(typed, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(typed)
		}
	}
	return ""
}

func getInt(row map[string]any, keys ...string) int {
	value, _ := lookupInt(row, keys...)
	return value
}

func getInt64(row map[string]any, keys ...string) int64 {
	for _, key := range keys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		if parsed, ok := asFloat64(value); ok {
			return int64(parsed)
		}
	}
	return 0
}

func getFloat(row map[string]any, keys ...string) float64 {
	value, _ := lookupFloat(row, keys...)
	return value
}

func getBool(row map[string]any, keys ...string) bool {
	for _, key := range keys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		switch typed := value.(type) {
		case bool:
			return typed
		case float64:
			return typed != 0
		case string:
			lowered := strings.ToLower(strings.TrimSpace(typed))
			return lowered == "1" || lowered == "true" || lowered == "yes"
		}
	}
	return false
}

func lookupInt(row map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		if parsed, ok := asFloat64(value); ok {
			return int(parsed), true
		}
	}
	return 0, false
}

func lookupFloat(row map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		if parsed, ok := asFloat64(value); ok {
			return parsed, true
		}
	}
	return 0, false
}

// lookupIceTimeSeconds accepts plain second counts and mm:ss / hh:mm:ss
// strings; the feed has shipped both across seasons.
func lookupIceTimeSeconds(row map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		switch typed := value.(type) {
		case float64:
			return int(typed), true
		case string:
			trimmed := strings.TrimSpace(typed)
			if trimmed == "" {
				continue
			}
			if !strings.Contains(trimmed, ":") {
				if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
					return int(parsed), true
				}
				continue
			}
			parts := strings.Split(trimmed, ":")
			total := 0
			valid := true
			for _, part := range parts {
				unit, err := strconv.Atoi(strings.TrimSpace(part))
				if err != nil {
					valid = false
					break
				}
				total = total*60 + unit
			}
			if valid {
				return total, true
			}
		}
	}
	return 0, false
}

func asFloat64(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func parseFeedDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" || value == "0000-00-00" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &parsed
}

// parseFeedDateTime prefers the ISO8601 field when the feed carries it and
// falls back to the legacy "2006-01-02 15:04:05" form.
func parseFeedDateTime(isoValue, legacyValue string) *time.Time {
	if isoValue = strings.TrimSpace(isoValue); isoValue != "" {
		if parsed, err := time.Parse(time.RFC3339, isoValue); err == nil {
			return &parsed
		}
	}
	legacyValue = strings.TrimSpace(legacyValue)
	if legacyValue == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, legacyValue); err == nil {
			return &parsed
		}
	}
	return nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
