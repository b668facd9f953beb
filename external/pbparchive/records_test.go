package pbparchive

import (
	"strings"
	"testing"
)

func TestDecodeResource_StripsBOMAndToleratesFloatIDs(t *testing.T) {
	t.Parallel()

	body := "\xEF\xBB\xBF" + strings.Join([]string{
		"id,game_id,season_id,player_id,goalie_id,team_id,opponent_team_id,home,period,time_formatted,seconds,x_location,y_location,shot_type,shot_type_description,quality,shot_quality_description,game_goal_id",
		"101.0,17,5,32,447.0,1,3,1,2,12:41,761,512.0,142.0,2,Wrist,1,High,",
		"102,17,5,57,,3,1,0,3,01:05,65,,,5,Snap,5,Screened,88.0",
	}, "\n")

	var rows []shotRow
	if err := decodeResource([]byte(body), &rows); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected two rows, got=%d", len(rows))
	}

	shots := mapShots(rows)
	if len(shots) != 2 {
		t.Fatalf("expected two mapped shots, got=%d", len(shots))
	}

	first := shots[0]
	if first.ID != 101 || first.GameID != 17 {
		t.Fatalf("expected shot 101 in game 17, got=%d/%d", first.ID, first.GameID)
	}
	if first.GoalieID == nil || *first.GoalieID != 447 {
		t.Fatalf("expected goalie id=447, got=%v", first.GoalieID)
	}
	if first.X == nil || *first.X != 512 {
		t.Fatalf("expected x=512, got=%v", first.X)
	}
	if first.GameGoalID != nil {
		t.Fatalf("expected empty game_goal_id to stay nil, got=%v", *first.GameGoalID)
	}
	if !first.Home {
		t.Fatalf("expected home flag set")
	}

	second := shots[1]
	if second.GoalieID != nil {
		t.Fatalf("expected missing goalie to stay nil, got=%v", *second.GoalieID)
	}
	if second.X != nil || second.Y != nil {
		t.Fatalf("expected missing coordinates to stay nil, got=%v/%v", second.X, second.Y)
	}
	if second.GameGoalID == nil || *second.GameGoalID != 88 {
		t.Fatalf("expected game_goal_id=88, got=%v", second.GameGoalID)
	}
}

func TestMapPenalties_SkipsRowsWithoutIdentity(t *testing.T) {
	t.Parallel()

	rows := []penaltyRow{
		{ID: "", GameID: "10", PlayerID: "4"},
		{ID: "7", GameID: "", PlayerID: "4"},
		{ID: "8", GameID: "10", SeasonID: "5", PlayerID: "", TeamID: "1", OpponentTeamID: "2", Minutes: "2.0", Bench: "1", Period: "1", Seconds: "300"},
	}

	penalties := mapPenalties(rows)
	if len(penalties) != 1 {
		t.Fatalf("expected one penalty, got=%d", len(penalties))
	}

	row := penalties[0]
	if row.ID != 8 {
		t.Fatalf("expected penalty id=8, got=%d", row.ID)
	}
	if row.PlayerID != nil {
		t.Fatalf("expected bench penalty without player, got=%v", *row.PlayerID)
	}
	if !row.Bench {
		t.Fatalf("expected bench flag set")
	}
	if row.Minutes != 2 {
		t.Fatalf("expected minutes=2, got=%v", row.Minutes)
	}
}

func TestParsePeriodHandlesOvertimeLabels(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"1":   1,
		"3.0": 3,
		"OT":  4,
		"so":  5,
		"":    0,
		"n/a": 0,
	}
	for raw, want := range cases {
		if got := parsePeriod(raw); got != want {
			t.Fatalf("parsePeriod(%q)=%d, want %d", raw, got, want)
		}
	}
}

func TestMapPlayers_ParsesBiographicalFields(t *testing.T) {
	t.Parallel()

	rows := []playerRow{
		{
			PlayerID:     "32.0",
			FirstName:    " Hilary ",
			LastName:     "Knight",
			Position:     "F",
			Shoots:       "R",
			Height:       "5-11",
			Weight:       "172.0",
			BirthDate:    "1989-07-12",
			Nationality:  "USA",
			JerseyNumber: "21",
			TeamID:       "3",
			SeasonID:     "5",
			Rookie:       "0.0",
		},
	}

	players := mapPlayers(rows)
	if len(players) != 1 {
		t.Fatalf("expected one player, got=%d", len(players))
	}

	row := players[0]
	if row.ExternalID != 32 {
		t.Fatalf("expected external id=32, got=%d", row.ExternalID)
	}
	if row.FirstName != "Hilary" {
		t.Fatalf("expected trimmed first name, got=%q", row.FirstName)
	}
	if row.Weight == nil || *row.Weight != 172 {
		t.Fatalf("expected weight=172, got=%v", row.Weight)
	}
	if row.BirthDate == nil || row.BirthDate.Format("2006-01-02") != "1989-07-12" {
		t.Fatalf("expected birthdate 1989-07-12, got=%v", row.BirthDate)
	}
	if row.Rookie {
		t.Fatalf("expected rookie flag unset for 0.0")
	}
	if row.TeamID == nil || *row.TeamID != 3 {
		t.Fatalf("expected team id=3, got=%v", row.TeamID)
	}
}
