// Package clock implements the countdown clock of a two player match
package clock

import (
	"time"

	"github.com/tecu23/match-server/internal/color"
)

// TimeControl defines the time settings for a match
type TimeControl struct {
	Initial   time.Duration // Starting allotment for each side
	Increment time.Duration // Added to the mover after every punched move
}

// Times holds the remaining time of both sides in milliseconds
type Times struct {
	White int64 `json:"white_ms"`
	Black int64 `json:"black_ms"`
}

// Clock manages the chess clock for both players.
//
// Remaining time is derived lazily from the last punch, so the clock never
// needs a goroutine of its own. Only the side to move is ever charged.
type Clock struct {
	remaining map[color.Color]time.Duration
	increment time.Duration

	activeColor color.Color

	lastPunch time.Time
	isRunning bool
}

// New creates a new clock with both sides at the initial allotment
func New(tc TimeControl) *Clock {
	return &Clock{
		remaining: map[color.Color]time.Duration{
			color.White: tc.Initial,
			color.Black: tc.Initial,
		},
		increment:   tc.Increment,
		activeColor: color.White,
	}
}

// Start starts the clock for white
func (c *Clock) Start(now time.Time) {
	if c.isRunning {
		return
	}

	c.lastPunch = now
	c.isRunning = true
}

// Running reports whether the clock is ticking for the active side
func (c *Clock) Running() bool {
	return c.isRunning
}

// Active returns the color whose time is currently running
func (c *Clock) Active() color.Color {
	return c.activeColor
}

// Remaining returns the time left for the given color at now
func (c *Clock) Remaining(col color.Color, now time.Time) time.Duration {
	left := c.remaining[col]
	if c.isRunning && col == c.activeColor {
		left -= c.elapsed(now)
	}

	if left < 0 {
		return 0
	}
	return left
}

// Flagged reports whether the side to move has run out of time at now
func (c *Clock) Flagged(now time.Time) bool {
	return c.isRunning && c.Remaining(c.activeColor, now) <= 0
}

// Punch charges the mover for the time spent since the last punch, adds the
// increment and hands the clock to the opponent. It returns the time the
// mover has left.
func (c *Clock) Punch(now time.Time) time.Duration {
	mover := c.activeColor
	if c.isRunning {
		c.charge(now)
	}

	c.remaining[mover] += c.increment
	c.activeColor = mover.Opp()
	c.lastPunch = now

	return c.remaining[mover]
}

// Flag clamps the side to move to zero and stops the clock
func (c *Clock) Flag(now time.Time) {
	c.remaining[c.activeColor] = 0
	c.lastPunch = now
	c.isRunning = false
}

// Stop charges the side to move and stops the clock
func (c *Clock) Stop(now time.Time) {
	if !c.isRunning {
		return
	}

	c.charge(now)
	c.isRunning = false
}

// Times returns the current remaining time for both players
func (c *Clock) Times(now time.Time) Times {
	return Times{
		White: c.Remaining(color.White, now).Milliseconds(),
		Black: c.Remaining(color.Black, now).Milliseconds(),
	}
}

// charge subtracts the elapsed time from the active side, never below zero
func (c *Clock) charge(now time.Time) {
	left := c.remaining[c.activeColor] - c.elapsed(now)
	if left < 0 {
		left = 0
	}

	c.remaining[c.activeColor] = left
	c.lastPunch = now
}

func (c *Clock) elapsed(now time.Time) time.Duration {
	d := now.Sub(c.lastPunch)
	if d < 0 {
		return 0
	}
	return d
}
