package game

import (
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestNormalizeStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		raw      string
		overtime bool
		shootout bool
		want     string
	}{
		{name: "empty defaults to scheduled", raw: "", want: StatusScheduled},
		{name: "plain final", raw: "Final", want: StatusFinal},
		{name: "final with overtime flag", raw: "Final", overtime: true, want: StatusFinalOT},
		{name: "final with shootout flag", raw: "Final", shootout: true, want: StatusFinalSO},
		{name: "final ot spelled out", raw: "Final OT", want: StatusFinalOT},
		{name: "final so spelled out", raw: "Final SO", want: StatusFinalSO},
		{name: "so inside a word does not count", raw: "Consolation Final", want: StatusFinal},
		{name: "in progress", raw: "In Progress", want: StatusInProgress},
		{name: "unknown passes through", raw: "Postponed", want: "Postponed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := NormalizeStatus(tc.raw, tc.overtime, tc.shootout)
			if got != tc.want {
				t.Fatalf("unexpected status: got=%q want=%q", got, tc.want)
			}
		})
	}
}

func TestGameResult(t *testing.T) {
	t.Parallel()

	g := Game{
		ID:             101,
		SeasonID:       5,
		HomeTeamID:     1,
		VisitingTeamID: 2,
		HomeScore:      intPtr(3),
		VisitingScore:  intPtr(2),
		Status:         StatusFinalOT,
	}

	if got := g.Result(1); got != OutcomeWin {
		t.Fatalf("unexpected home result: got=%q want=%q", got, OutcomeWin)
	}
	if got := g.Result(2); got != OutcomeOTLoss {
		t.Fatalf("unexpected visitor result: got=%q want=%q", got, OutcomeOTLoss)
	}
	if got := g.Result(99); got != OutcomeUnknown {
		t.Fatalf("unexpected result for uninvolved team: got=%q", got)
	}

	g.Status = StatusScheduled
	if got := g.Result(1); got != OutcomeUnknown {
		t.Fatalf("scheduled game must have no outcome: got=%q", got)
	}

	g.Status = StatusFinal
	g.HomeScore, g.VisitingScore = intPtr(1), intPtr(4)
	if got := g.Result(1); got != OutcomeLoss {
		t.Fatalf("unexpected regulation loss: got=%q want=%q", got, OutcomeLoss)
	}
}

func TestApplyCalendar(t *testing.T) {
	t.Parallel()

	saturday := time.Date(2025, 1, 4, 19, 0, 0, 0, time.UTC)
	tuesday := time.Date(2025, 1, 7, 19, 0, 0, 0, time.UTC)

	g := Game{ScheduledAt: &saturday}
	g.ApplyCalendar()
	if g.DayOfWeek != "Saturday" || !g.IsWeekend {
		t.Fatalf("unexpected calendar for saturday: day=%q weekend=%v", g.DayOfWeek, g.IsWeekend)
	}

	g.ScheduledAt = &tuesday
	g.ApplyCalendar()
	if g.DayOfWeek != "Tuesday" || g.IsWeekend {
		t.Fatalf("unexpected calendar for tuesday: day=%q weekend=%v", g.DayOfWeek, g.IsWeekend)
	}

	g.ScheduledAt = nil
	g.ApplyCalendar()
	if g.DayOfWeek != "" || g.IsWeekend {
		t.Fatalf("unexpected calendar for unscheduled game: day=%q weekend=%v", g.DayOfWeek, g.IsWeekend)
	}
}
