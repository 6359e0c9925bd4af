// Package engine provides the day-based simulation loop and the simulation it drives.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// DaysPerWeek sets when the weekly callback runs.
const DaysPerWeek = 7

// Engine drives a simulation forward one day at a time. It runs on the caller's
// goroutine; callbacks must not block.
type Engine struct {
	Day      uint64        // days advanced so far (monotonic)
	Interval time.Duration // pause between days; 0 runs as fast as possible

	// Callbacks for each layer, populated during setup.
	OnDay  func(day uint64)
	OnWeek func(day uint64)

	running atomic.Bool
}

// NewEngine creates an engine with no pacing.
func NewEngine() *Engine {
	return &Engine{}
}

// Running reports whether Run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run advances days until the count is reached (days <= 0 means unbounded), Stop is
// called, or ctx is done. A cancelled context is returned as its error.
func (e *Engine) Run(ctx context.Context, days int) error {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "day", e.Day, "days", days, "interval", e.Interval)

	for n := 0; days <= 0 || n < days; n++ {
		if err := ctx.Err(); err != nil {
			slog.Info("simulation engine cancelled", "day", e.Day)
			return err
		}
		if !e.running.Load() {
			break
		}

		start := time.Now()
		e.Step()

		if e.Interval > 0 {
			if wait := e.Interval - time.Since(start); wait > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
			}
		}
	}

	slog.Info("simulation engine stopped", "day", e.Day)
	return nil
}

// Stop makes Run return after the current day.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Step advances the engine by one day.
func (e *Engine) Step() {
	e.Day++

	if e.OnDay != nil {
		e.OnDay(e.Day)
	}

	if e.Day%DaysPerWeek == 0 && e.OnWeek != nil {
		e.OnWeek(e.Day)
	}
}

// SimDate renders a day number as "Year Y, Week W, Day D" with 52-week years.
func SimDate(day uint64) string {
	if day == 0 {
		return "Year 1, Week 1, Day 0"
	}
	d := day - 1
	weekday := d%DaysPerWeek + 1
	weeks := d / DaysPerWeek
	week := weeks%52 + 1
	year := weeks/52 + 1
	return fmt.Sprintf("Year %d, Week %d, Day %d", year, week, weekday)
}
