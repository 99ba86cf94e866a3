package scheduler

import (
	"testing"
	"time"
)

func TestParseCronRejectsBadExpressions(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{
		"",
		"0 7 * *",
		"0 7 * * 3 5",
		"60 7 * * 3",
		"0 24 * * 3",
		"0 7 * * monday",
	} {
		if _, err := parseCron(expr); err == nil {
			t.Errorf("parseCron(%q) accepted invalid expression", expr)
		}
	}
}

func TestNextWeeklyTrigger(t *testing.T) {
	t.Parallel()

	sched, err := parseCron("0 7 * * 3")
	if err != nil {
		t.Fatalf("parseCron: %v", err)
	}

	// Monday 2026-03-02 10:30 advances to Wednesday 07:00.
	from := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	want := time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)
	if got := sched.next(from); !got.Equal(want) {
		t.Errorf("next = %v, want %v", got, want)
	}

	// At exactly the trigger minute, next fires a week later.
	want = time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC)
	if got := sched.next(time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)); !got.Equal(want) {
		t.Errorf("next from trigger = %v, want %v", got, want)
	}
}

func TestNextWithCommaList(t *testing.T) {
	t.Parallel()

	sched, err := parseCron("0 7,19 * * *")
	if err != nil {
		t.Fatalf("parseCron: %v", err)
	}

	from := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	want := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
	if got := sched.next(from); !got.Equal(want) {
		t.Errorf("next = %v, want %v", got, want)
	}
}

func TestStartAndStop(t *testing.T) {
	t.Parallel()

	cron, err := NewCronScheduler("0 7 * * 3", time.UTC)
	if err != nil {
		t.Fatalf("NewCronScheduler: %v", err)
	}

	ctx := t.Context()
	if err := cron.Start(ctx, func() {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := cron.Start(ctx, func() {}); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if err := cron.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := cron.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
