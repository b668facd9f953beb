package pbparchive

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmorneau/rinkstats/internal/usecase"
)

// Row structs keep every column as a string. The archive CSVs are written by
// a pandas pipeline, so integer columns with gaps arrive float-formatted
// ("150.0") and typed decode would reject whole files. The mappers below
// parse tolerantly instead.

type playerRow struct {
	PlayerID     string `csv:"player_id"`
	FirstName    string `csv:"first_name"`
	LastName     string `csv:"last_name"`
	Position     string `csv:"position"`
	Shoots       string `csv:"shoots"`
	Catches      string `csv:"catches"`
	Height       string `csv:"height"`
	Weight       string `csv:"weight"`
	BirthDate    string `csv:"birthdate"`
	Hometown     string `csv:"hometown"`
	Nationality  string `csv:"nationality"`
	JerseyNumber string `csv:"jersey_number"`
	TeamID       string `csv:"team_id"`
	SeasonID     string `csv:"season_id"`
	Rookie       string `csv:"rookie"`
	ImageURL     string `csv:"image_url"`
}

type shotRow struct {
	ID                  string `csv:"id"`
	GameID              string `csv:"game_id"`
	SeasonID            string `csv:"season_id"`
	PlayerID            string `csv:"player_id"`
	GoalieID            string `csv:"goalie_id"`
	TeamID              string `csv:"team_id"`
	OpponentTeamID      string `csv:"opponent_team_id"`
	Home                string `csv:"home"`
	Period              string `csv:"period"`
	TimeFormatted       string `csv:"time_formatted"`
	Seconds             string `csv:"seconds"`
	XLocation           string `csv:"x_location"`
	YLocation           string `csv:"y_location"`
	ShotType            string `csv:"shot_type"`
	ShotTypeDescription string `csv:"shot_type_description"`
	Quality             string `csv:"quality"`
	QualityDescription  string `csv:"shot_quality_description"`
	GameGoalID          string `csv:"game_goal_id"`
}

type goalRow struct {
	ID              string `csv:"id"`
	GameID          string `csv:"game_id"`
	SeasonID        string `csv:"season_id"`
	TeamID          string `csv:"team_id"`
	OpponentTeamID  string `csv:"opponent_team_id"`
	Home            string `csv:"home"`
	Period          string `csv:"period"`
	TimeFormatted   string `csv:"time_formatted"`
	Seconds         string `csv:"seconds"`
	XLocation       string `csv:"x_location"`
	YLocation       string `csv:"y_location"`
	GoalPlayerID    string `csv:"goal_player_id"`
	Assist1PlayerID string `csv:"assist1_player_id"`
	Assist2PlayerID string `csv:"assist2_player_id"`
	GoalType        string `csv:"goal_type"`
	PowerPlay       string `csv:"power_play"`
	ShortHanded     string `csv:"short_handed"`
	EmptyNet        string `csv:"empty_net"`
	PenaltyShot     string `csv:"penalty_shot"`
	InsuranceGoal   string `csv:"insurance_goal"`
	GameWinning     string `csv:"game_winning"`
	GameTieing      string `csv:"game_tieing"`
}

type penaltyRow struct {
	ID               string `csv:"id"`
	GameID           string `csv:"game_id"`
	SeasonID         string `csv:"season_id"`
	PlayerID         string `csv:"player_id"`
	TeamID           string `csv:"team_id"`
	OpponentTeamID   string `csv:"opponent_team_id"`
	Home             string `csv:"home"`
	Period           string `csv:"period"`
	TimeOffFormatted string `csv:"time_off_formatted"`
	Seconds          string `csv:"seconds"`
	Minutes          string `csv:"minutes"`
	PenaltyClass     string `csv:"penalty_class"`
	Description      string `csv:"lang_penalty_description"`
	Offence          string `csv:"offence"`
	Bench            string `csv:"bench"`
	PenaltyShot      string `csv:"penalty_shot"`
	PowerPlay        string `csv:"pp"`
}

type faceoffRow struct {
	ID              string `csv:"id"`
	GameID          string `csv:"game_id"`
	SeasonID        string `csv:"season_id"`
	HomePlayerID    string `csv:"home_player_id"`
	VisitorPlayerID string `csv:"visitor_player_id"`
	HomeTeamID      string `csv:"home_team_id"`
	VisitorTeamID   string `csv:"visitor_team_id"`
	Period          string `csv:"period"`
	TimeFormatted   string `csv:"time_formatted"`
	Seconds         string `csv:"seconds"`
	LocationID      string `csv:"location_id"`
	HomeWin         string `csv:"home_win"`
	WinTeamID       string `csv:"win_team_id"`
}

type hitRow struct {
	ID             string `csv:"id"`
	GameID         string `csv:"game_id"`
	SeasonID       string `csv:"season_id"`
	PlayerID       string `csv:"player_id"`
	TeamID         string `csv:"team_id"`
	OpponentTeamID string `csv:"opponent_team_id"`
	Home           string `csv:"home"`
	Period         string `csv:"period"`
	TimeFormatted  string `csv:"time_formatted"`
	Seconds        string `csv:"seconds"`
	HitType        string `csv:"hit_type"`
}

type blockedShotRow struct {
	ID              string `csv:"id"`
	GameID          string `csv:"game_id"`
	SeasonID        string `csv:"season_id"`
	PlayerID        string `csv:"player_id"`
	TeamID          string `csv:"team_id"`
	BlockerPlayerID string `csv:"blocker_player_id"`
	BlockerTeamID   string `csv:"blocker_team_id"`
	Home            string `csv:"home"`
	Period          string `csv:"period"`
	TimeFormatted   string `csv:"time_formatted"`
	Seconds         string `csv:"seconds"`
}

func mapPlayers(rows []playerRow) []usecase.ArchivePlayer {
	out := make([]usecase.ArchivePlayer, 0, len(rows))
	for _, row := range rows {
		id := parseID(row.PlayerID)
		if id <= 0 {
			continue
		}
		out = append(out, usecase.ArchivePlayer{
			ExternalID:   id,
			FirstName:    strings.TrimSpace(row.FirstName),
			LastName:     strings.TrimSpace(row.LastName),
			Position:     strings.TrimSpace(row.Position),
			Shoots:       strings.TrimSpace(row.Shoots),
			Catches:      strings.TrimSpace(row.Catches),
			Height:       strings.TrimSpace(row.Height),
			Weight:       parseIntPtr(row.Weight),
			BirthDate:    parseArchiveDate(row.BirthDate),
			Hometown:     strings.TrimSpace(row.Hometown),
			Nationality:  strings.TrimSpace(row.Nationality),
			JerseyNumber: parseIntPtr(row.JerseyNumber),
			TeamID:       parseIDPtr(row.TeamID),
			SeasonID:     parseIDPtr(row.SeasonID),
			Rookie:       parseFlag(row.Rookie),
			ImageURL:     strings.TrimSpace(row.ImageURL),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out
}

func mapShots(rows []shotRow) []usecase.ArchiveShot {
	out := make([]usecase.ArchiveShot, 0, len(rows))
	for _, row := range rows {
		id, gameID := parseID(row.ID), parseID(row.GameID)
		if id <= 0 || gameID <= 0 {
			continue
		}
		out = append(out, usecase.ArchiveShot{
			ID:                  id,
			GameID:              gameID,
			SeasonID:            parseID(row.SeasonID),
			PlayerID:            parseID(row.PlayerID),
			GoalieID:            parseIDPtr(row.GoalieID),
			TeamID:              parseID(row.TeamID),
			OpponentTeamID:      parseID(row.OpponentTeamID),
			Home:                parseFlag(row.Home),
			Period:              parsePeriod(row.Period),
			ClockTime:           strings.TrimSpace(row.TimeFormatted),
			Seconds:             parseInt(row.Seconds),
			X:                   parseFloatPtr(row.XLocation),
			Y:                   parseFloatPtr(row.YLocation),
			ShotType:            parseIntPtr(row.ShotType),
			ShotTypeDescription: strings.TrimSpace(row.ShotTypeDescription),
			Quality:             parseIntPtr(row.Quality),
			QualityDescription:  strings.TrimSpace(row.QualityDescription),
			GameGoalID:          parseIDPtr(row.GameGoalID),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func mapGoals(rows []goalRow) []usecase.ArchiveGoal {
	out := make([]usecase.ArchiveGoal, 0, len(rows))
	for _, row := range rows {
		id, gameID := parseID(row.ID), parseID(row.GameID)
		if id <= 0 || gameID <= 0 {
			continue
		}
		out = append(out, usecase.ArchiveGoal{
			ID:             id,
			GameID:         gameID,
			SeasonID:       parseID(row.SeasonID),
			TeamID:         parseID(row.TeamID),
			OpponentTeamID: parseID(row.OpponentTeamID),
			Home:           parseFlag(row.Home),
			Period:         parsePeriod(row.Period),
			ClockTime:      strings.TrimSpace(row.TimeFormatted),
			Seconds:        parseInt(row.Seconds),
			X:              parseFloatPtr(row.XLocation),
			Y:              parseFloatPtr(row.YLocation),
			ScorerID:       parseID(row.GoalPlayerID),
			Assist1ID:      parseIDPtr(row.Assist1PlayerID),
			Assist2ID:      parseIDPtr(row.Assist2PlayerID),
			GoalType:       strings.TrimSpace(row.GoalType),
			PowerPlay:      parseFlag(row.PowerPlay),
			ShortHanded:    parseFlag(row.ShortHanded),
			EmptyNet:       parseFlag(row.EmptyNet),
			PenaltyShot:    parseFlag(row.PenaltyShot),
			Insurance:      parseFlag(row.InsuranceGoal),
			GameWinning:    parseFlag(row.GameWinning),
			GameTieing:     parseFlag(row.GameTieing),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func mapPenalties(rows []penaltyRow) []usecase.ArchivePenalty {
	out := make([]usecase.ArchivePenalty, 0, len(rows))
	for _, row := range rows {
		id, gameID := parseID(row.ID), parseID(row.GameID)
		if id <= 0 || gameID <= 0 {
			continue
		}
		out = append(out, usecase.ArchivePenalty{
			ID:             id,
			GameID:         gameID,
			SeasonID:       parseID(row.SeasonID),
			PlayerID:       parseIDPtr(row.PlayerID),
			TeamID:         parseID(row.TeamID),
			OpponentTeamID: parseID(row.OpponentTeamID),
			Home:           parseFlag(row.Home),
			Period:         parsePeriod(row.Period),
			ClockTime:      strings.TrimSpace(row.TimeOffFormatted),
			Seconds:        parseInt(row.Seconds),
			Minutes:        parseFloat(row.Minutes),
			Class:          strings.TrimSpace(row.PenaltyClass),
			Description:    strings.TrimSpace(row.Description),
			Offence:        strings.TrimSpace(row.Offence),
			Bench:          parseFlag(row.Bench),
			PenaltyShot:    parseFlag(row.PenaltyShot),
			PowerPlay:      parseFlag(row.PowerPlay),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func mapFaceoffs(rows []faceoffRow) []usecase.ArchiveFaceoff {
	out := make([]usecase.ArchiveFaceoff, 0, len(rows))
	for _, row := range rows {
		id, gameID := parseID(row.ID), parseID(row.GameID)
		if id <= 0 || gameID <= 0 {
			continue
		}
		out = append(out, usecase.ArchiveFaceoff{
			ID:              id,
			GameID:          gameID,
			SeasonID:        parseID(row.SeasonID),
			HomePlayerID:    parseID(row.HomePlayerID),
			VisitorPlayerID: parseID(row.VisitorPlayerID),
			HomeTeamID:      parseID(row.HomeTeamID),
			VisitorTeamID:   parseID(row.VisitorTeamID),
			Period:          parsePeriod(row.Period),
			ClockTime:       strings.TrimSpace(row.TimeFormatted),
			Seconds:         parseInt(row.Seconds),
			LocationID:      parseIntPtr(row.LocationID),
			HomeWin:         parseFlag(row.HomeWin),
			WinTeamID:       parseID(row.WinTeamID),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func mapHits(rows []hitRow) []usecase.ArchiveHit {
	out := make([]usecase.ArchiveHit, 0, len(rows))
	for _, row := range rows {
		id, gameID := parseID(row.ID), parseID(row.GameID)
		if id <= 0 || gameID <= 0 {
			continue
		}
		out = append(out, usecase.ArchiveHit{
			ID:             id,
			GameID:         gameID,
			SeasonID:       parseID(row.SeasonID),
			PlayerID:       parseID(row.PlayerID),
			TeamID:         parseID(row.TeamID),
			OpponentTeamID: parseID(row.OpponentTeamID),
			Home:           parseFlag(row.Home),
			Period:         parsePeriod(row.Period),
			ClockTime:      strings.TrimSpace(row.TimeFormatted),
			Seconds:        parseInt(row.Seconds),
			HitType:        parseIntPtr(row.HitType),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func mapBlockedShots(rows []blockedShotRow) []usecase.ArchiveBlockedShot {
	out := make([]usecase.ArchiveBlockedShot, 0, len(rows))
	for _, row := range rows {
		id, gameID := parseID(row.ID), parseID(row.GameID)
		if id <= 0 || gameID <= 0 {
			continue
		}
		out = append(out, usecase.ArchiveBlockedShot{
			ID:            id,
			GameID:        gameID,
			SeasonID:      parseID(row.SeasonID),
			ShooterID:     parseID(row.PlayerID),
			ShooterTeamID: parseID(row.TeamID),
			BlockerID:     parseID(row.BlockerPlayerID),
			BlockerTeamID: parseID(row.BlockerTeamID),
			Home:          parseFlag(row.Home),
			Period:        parsePeriod(row.Period),
			ClockTime:     strings.TrimSpace(row.TimeFormatted),
			Seconds:       parseInt(row.Seconds),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func parseID(value string) int64 {
	parsed, ok := parseNumeric(value)
	if !ok {
		return 0
	}
	return int64(parsed)
}

func parseIDPtr(value string) *int64 {
	parsed, ok := parseNumeric(value)
	if !ok {
		return nil
	}
	id := int64(parsed)
	if id <= 0 {
		return nil
	}
	return &id
}

func parseInt(value string) int {
	parsed, ok := parseNumeric(value)
	if !ok {
		return 0
	}
	return int(parsed)
}

func parseIntPtr(value string) *int {
	parsed, ok := parseNumeric(value)
	if !ok {
		return nil
	}
	out := int(parsed)
	return &out
}

func parseFloat(value string) float64 {
	parsed, ok := parseNumeric(value)
	if !ok {
		return 0
	}
	return parsed
}

func parseFloatPtr(value string) *float64 {
	parsed, ok := parseNumeric(value)
	if !ok {
		return nil
	}
	return &parsed
}

func parseNumeric(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func parseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "1.0", "true", "t", "yes":
		return true
	default:
		return false
	}
}

// parsePeriod tolerates the overtime labels some archive exports use in
// place of a number.
func parsePeriod(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	switch strings.ToUpper(value) {
	case "OT":
		return 4
	case "SO":
		return 5
	}
	parsed, ok := parseNumeric(value)
	if !ok {
		return 0
	}
	return int(parsed)
}

func parseArchiveDate(value string) *time.Time {
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
