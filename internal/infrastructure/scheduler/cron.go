// Package scheduler triggers pipeline runs on a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shu-bamma/anime-ai-digest/internal/ports"
)

// CronScheduler fires a job on a five-field cron expression
// (minute hour day-of-month month day-of-week) evaluated in the
// configured location. Fields accept numbers, comma lists, and "*".
type CronScheduler struct {
	schedule schedule
	location *time.Location
	stop     chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

type schedule struct {
	minutes  fieldSet
	hours    fieldSet
	days     fieldSet
	months   fieldSet
	weekdays fieldSet
}

// fieldSet is nil for "*", otherwise the set of accepted values.
type fieldSet map[int]bool

// NewCronScheduler parses the expression up front so a bad schedule
// fails at startup, not at first trigger.
func NewCronScheduler(expr string, location *time.Location) (*CronScheduler, error) {
	if location == nil {
		location = time.UTC
	}
	sched, err := parseCron(expr)
	if err != nil {
		return nil, err
	}
	return &CronScheduler{schedule: sched, location: location}, nil
}

func parseCron(expr string) (schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return schedule{}, fmt.Errorf("cron expression %q: want 5 fields, got %d", expr, len(fields))
	}

	bounds := []struct {
		name     string
		min, max int
	}{
		{"minute", 0, 59},
		{"hour", 0, 23},
		{"day", 1, 31},
		{"month", 1, 12},
		{"weekday", 0, 6},
	}

	sets := make([]fieldSet, 5)
	for i, field := range fields {
		set, err := parseField(field, bounds[i].min, bounds[i].max)
		if err != nil {
			return schedule{}, fmt.Errorf("cron %s field %q: %w", bounds[i].name, field, err)
		}
		sets[i] = set
	}

	return schedule{minutes: sets[0], hours: sets[1], days: sets[2], months: sets[3], weekdays: sets[4]}, nil
}

func parseField(field string, min, max int) (fieldSet, error) {
	if field == "*" {
		return nil, nil
	}
	set := fieldSet{}
	for _, part := range strings.Split(field, ",") {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", part)
		}
		if v < min || v > max {
			return nil, fmt.Errorf("%d out of range [%d,%d]", v, min, max)
		}
		set[v] = true
	}
	return set, nil
}

func (f fieldSet) matches(v int) bool {
	return f == nil || f[v]
}

func (s schedule) matches(t time.Time) bool {
	return s.minutes.matches(t.Minute()) &&
		s.hours.matches(t.Hour()) &&
		s.days.matches(t.Day()) &&
		s.months.matches(int(t.Month())) &&
		s.weekdays.matches(int(t.Weekday()))
}

// next returns the first minute boundary after t that matches.
func (s schedule) next(t time.Time) time.Time {
	candidate := t.Truncate(time.Minute).Add(time.Minute)
	// A five-field schedule always matches within 4 years.
	limit := candidate.AddDate(4, 0, 0)
	for candidate.Before(limit) {
		if s.matches(candidate) {
			return candidate
		}
		candidate = candidate.Add(time.Minute)
	}
	return limit
}

// Start launches the trigger goroutine. Calling Start twice is a no-op.
func (c *CronScheduler) Start(ctx context.Context, job func()) error {
	if job == nil || c.stop != nil {
		return nil
	}

	c.stop = make(chan struct{})
	go func() {
		for {
			now := time.Now().In(c.location)
			timer := time.NewTimer(c.schedule.next(now).Sub(now))
			select {
			case <-timer.C:
				job()
			case <-ctx.Done():
				timer.Stop()
				return
			case <-c.stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the trigger goroutine.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if c.stop == nil {
		return nil
	}
	close(c.stop)
	c.stop = nil
	return nil
}
