// Package timewindow provides a condition that holds while the current time
// is inside a daily window.
package timewindow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/nodes/conditional"
	"github.com/autoflowhq/autoflow/pkg/protocol"
)

type Config struct {
	conditional.Branches

	After    string   `json:"after,omitempty"    jsonschema:"pattern=^([01][0-9]|2[0-3]):[0-5][0-9]$,description=Window start (HH:MM)"`
	Before   string   `json:"before,omitempty"   jsonschema:"pattern=^([01][0-9]|2[0-3]):[0-5][0-9]$,description=Window end (HH:MM)"`
	Weekdays []string `json:"weekdays,omitempty" jsonschema:"description=Allowed weekdays such as mon or tue"`
	Timezone string   `json:"timezone,omitempty" jsonschema:"default=UTC"`
}

type Condition struct {
	after    int
	before   int
	weekdays map[time.Weekday]bool
	location *time.Location
	branches conditional.Branches
	now      func() time.Time
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

func NewCondition(config map[string]any, now func() time.Time) (*Condition, error) {
	var cfg Config
	if err := protocol.DecodeConfig(config, &cfg); err != nil {
		return nil, err
	}

	if now == nil {
		now = time.Now
	}

	c := &Condition{after: -1, before: -1, branches: cfg.Branches, now: now, location: time.UTC}

	var err error

	if cfg.After != "" {
		if c.after, err = parseClock(cfg.After); err != nil {
			return nil, err
		}
	}

	if cfg.Before != "" {
		if c.before, err = parseClock(cfg.Before); err != nil {
			return nil, err
		}
	}

	if cfg.Timezone != "" {
		if c.location, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
		}
	}

	if len(cfg.Weekdays) > 0 {
		c.weekdays = make(map[time.Weekday]bool, len(cfg.Weekdays))

		for _, name := range cfg.Weekdays {
			day, ok := weekdayNames[strings.ToLower(name)[:min(3, len(name))]]
			if !ok {
				return nil, fmt.Errorf("invalid weekday '%s'", name)
			}

			c.weekdays[day] = true
		}
	}

	return c, nil
}

func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid time '%s' (expected HH:MM)", value)
	}

	return t.Hour()*60 + t.Minute(), nil
}

func (c *Condition) Decide(_ context.Context, _ *models.ExecutionContext) (string, error) {
	return c.branches.Tag(c.holds(c.now().In(c.location))), nil
}

func (c *Condition) holds(now time.Time) bool {
	if c.weekdays != nil && !c.weekdays[now.Weekday()] {
		return false
	}

	minute := now.Hour()*60 + now.Minute()

	switch {
	case c.after < 0 && c.before < 0:
		return true
	case c.after < 0:
		return minute < c.before
	case c.before < 0:
		return minute >= c.after
	case c.after <= c.before:
		return minute >= c.after && minute < c.before
	default:
		// window wraps midnight
		return minute >= c.after || minute < c.before
	}
}

type ConditionFactory struct {
	now func() time.Time
}

// nolint:ireturn
func (f *ConditionFactory) Create(config map[string]any) (protocol.Condition, error) {
	return NewCondition(config, f.now)
}

func (f *ConditionFactory) ID() string {
	return "time-condition"
}

func (f *ConditionFactory) Name() string {
	return "Time Condition"
}

func (f *ConditionFactory) Description() string {
	return "Checks if the current time meets specific criteria"
}

func (f *ConditionFactory) Schema() map[string]any {
	return protocol.ReflectSchema(&Config{})
}

func NewConditionFactory(now func() time.Time) *ConditionFactory {
	return &ConditionFactory{now: now}
}
