package leaguestat

import "testing"

func TestParseSchedule_DecodesStringEncodedFields(t *testing.T) {
	t.Parallel()

	rows := []map[string]any{
		{
			"game_id":             "281",
			"home_team":           "3",
			"visiting_team":       "1",
			"home_goal_count":     "3",
			"visiting_goal_count": "2",
			"game_status":         "Final OT",
			"overtime":            "1",
			"shootout":            "0",
			"venue_name":          "Tsongas Center",
			"venue_location":      "Lowell, MA",
			"attendance":          "6137",
			"date_time_played":    "2024-03-23 14:00:00",
		},
	}

	parsed := parseSchedule(rows, 5)
	if len(parsed) != 1 {
		t.Fatalf("expected one game, got=%d", len(parsed))
	}

	game := parsed[0]
	if game.ID != 281 {
		t.Fatalf("expected game id=281, got=%d", game.ID)
	}
	if game.SeasonID != 5 {
		t.Fatalf("expected season id=5, got=%d", game.SeasonID)
	}
	if game.HomeTeamID != 3 || game.VisitingTeamID != 1 {
		t.Fatalf("expected teams 3/1, got=%d/%d", game.HomeTeamID, game.VisitingTeamID)
	}
	if game.HomeScore == nil || *game.HomeScore != 3 {
		t.Fatalf("expected home score=3, got=%v", game.HomeScore)
	}
	if game.VisitingScore == nil || *game.VisitingScore != 2 {
		t.Fatalf("expected visiting score=2, got=%v", game.VisitingScore)
	}
	if !game.Overtime {
		t.Fatalf("expected overtime flag set")
	}
	if game.Shootout {
		t.Fatalf("expected shootout flag unset")
	}
	if game.Attendance == nil || *game.Attendance != 6137 {
		t.Fatalf("expected attendance=6137, got=%v", game.Attendance)
	}
	if game.ScheduledAt == nil {
		t.Fatalf("expected scheduled timestamp to be parsed")
	}
	if got := game.ScheduledAt.Format("2006-01-02 15:04"); got != "2024-03-23 14:00" {
		t.Fatalf("expected scheduled at 2024-03-23 14:00, got=%s", got)
	}
}

func TestParseSchedule_SkipsRowsWithoutGameID(t *testing.T) {
	t.Parallel()

	rows := []map[string]any{
		{"home_team": "3", "visiting_team": "1"},
		{"game_id": "12", "home_team": "2", "visiting_team": "4"},
	}

	parsed := parseSchedule(rows, 5)
	if len(parsed) != 1 {
		t.Fatalf("expected one game, got=%d", len(parsed))
	}
	if parsed[0].ID != 12 {
		t.Fatalf("expected surviving game id=12, got=%d", parsed[0].ID)
	}
}

func TestParseSkaters_ParsesIceTimeFormats(t *testing.T) {
	t.Parallel()

	rows := []map[string]any{
		{"player_id": "32", "team_id": "1", "ice_time": "412:30", "goals": "9"},
		{"player_id": "57", "team_id": "2", "ice_time": "18000", "goals": "4"},
		{"player_id": "61", "team_id": "2", "ice_time": "", "goals": "1"},
	}

	parsed := parseSkaters(rows)
	if len(parsed) != 3 {
		t.Fatalf("expected three skater lines, got=%d", len(parsed))
	}

	if parsed[0].IceTimeSeconds == nil || *parsed[0].IceTimeSeconds != 412*60+30 {
		t.Fatalf("expected mm:ss ice time 24750, got=%v", parsed[0].IceTimeSeconds)
	}
	if parsed[1].IceTimeSeconds == nil || *parsed[1].IceTimeSeconds != 18000 {
		t.Fatalf("expected plain ice time 18000, got=%v", parsed[1].IceTimeSeconds)
	}
	if parsed[2].IceTimeSeconds != nil {
		t.Fatalf("expected missing ice time to stay nil, got=%v", *parsed[2].IceTimeSeconds)
	}
	if parsed[0].Goals != 9 {
		t.Fatalf("expected goals=9, got=%d", parsed[0].Goals)
	}
}

func TestParseSeasons_SortsAndParsesDates(t *testing.T) {
	t.Parallel()

	rows := []map[string]any{
		{"season_id": "5", "season_name": "2024-2025 Regular Season", "career": "1", "playoff": "0", "start_date": "2024-11-30"},
		{"season_id": "1", "season_name": "2024 Regular Season", "career": "1", "playoff": "0", "start_date": "2024-01-01", "end_date": "0000-00-00"},
	}

	parsed := parseSeasons(rows)
	if len(parsed) != 2 {
		t.Fatalf("expected two seasons, got=%d", len(parsed))
	}
	if parsed[0].ID != 1 || parsed[1].ID != 5 {
		t.Fatalf("expected seasons sorted by id, got=%d,%d", parsed[0].ID, parsed[1].ID)
	}
	if parsed[0].StartDate == nil || parsed[0].StartDate.Format("2006-01-02") != "2024-01-01" {
		t.Fatalf("expected start date 2024-01-01, got=%v", parsed[0].StartDate)
	}
	if parsed[0].EndDate != nil {
		t.Fatalf("expected zero end date to stay nil, got=%v", parsed[0].EndDate)
	}
	if !parsed[0].Career {
		t.Fatalf("expected career flag set")
	}
}

func TestEnvelopeKeyMatchesFeedCasing(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"seasons":       "Seasons",
		"teamsbyseason": "Teamsbyseason",
		"roster":        "Roster",
		"schedule":      "Schedule",
		"statviewtype":  "Statviewtype",
	}
	for view, want := range cases {
		if got := envelopeKey(view); got != want {
			t.Fatalf("envelopeKey(%q)=%q, want %q", view, got, want)
		}
	}
}

func TestRedactFeedURLHidesKey(t *testing.T) {
	t.Parallel()

	redacted := redactFeedURL("https://lscluster.hockeytech.com/feed/?feed=modulekit&key=secret123&view=seasons")
	if got, want := redacted, "https://lscluster.hockeytech.com/feed/?feed=modulekit&key=REDACTED&view=seasons"; got != want {
		t.Fatalf("redactFeedURL=%q, want %q", got, want)
	}
}
