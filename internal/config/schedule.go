package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SpecKind describes the normalized kind of a poll schedule string.
type SpecKind int

const (
	SpecInterval SpecKind = iota
	SpecCron
)

// ParsedSpec is a parsed poll schedule.
//
// Supported forms:
//   - Interval duration: "600s", "10m"
//   - Interval HH:MM: "00:10" (10 minutes)
//   - Cron: "*/10 * * * *", "@hourly", "@every 10m"
//
// Optional prefixes "cron:" and "interval:" force the kind.
type ParsedSpec struct {
	Kind   SpecKind
	Cron   string
	Every  time.Duration
	Source string // "cron" | "duration" | "hhmm"

	sched cron.Schedule
}

// Next returns the first activation strictly after t.
func (p ParsedSpec) Next(t time.Time) time.Time {
	if p.sched == nil {
		return t.Add(DefaultPollInterval)
	}
	return p.sched.Next(t)
}

func (p ParsedSpec) String() string {
	if p.Kind == SpecCron {
		return "cron:" + p.Cron
	}
	return "interval:" + p.Every.String()
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// ParseSchedule parses raw into an interval or cron schedule. Empty raw means
// the default interval.
func ParseSchedule(raw string) (ParsedSpec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return intervalSpec(DefaultPollInterval, "duration")
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return cronSpec(strings.TrimSpace(s[len("cron:"):]))
	case strings.HasPrefix(low, "interval:"):
		d, src, err := parseInterval(strings.TrimSpace(s[len("interval:"):]))
		if err != nil {
			return ParsedSpec{}, err
		}
		return intervalSpec(d, src)
	}

	// Whitespace or a leading '@' means cron.
	if strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@") {
		return cronSpec(s)
	}

	d, src, err := parseInterval(s)
	if err != nil {
		return ParsedSpec{}, fmt.Errorf(
			"invalid schedule %q (use a duration like '600s', HH:MM like '00:10', or cron like '*/10 * * * *')", raw)
	}
	return intervalSpec(d, src)
}

func cronSpec(expr string) (ParsedSpec, error) {
	if expr == "" {
		return ParsedSpec{}, fmt.Errorf("cron schedule required")
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return ParsedSpec{}, fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return ParsedSpec{Kind: SpecCron, Cron: expr, Source: "cron", sched: sched}, nil
}

func intervalSpec(d time.Duration, src string) (ParsedSpec, error) {
	if d < time.Second {
		return ParsedSpec{}, fmt.Errorf("interval must be >= 1s")
	}
	return ParsedSpec{Kind: SpecInterval, Every: d, Source: src, sched: cron.Every(d)}, nil
}

func parseInterval(v string) (time.Duration, string, error) {
	if v == "" {
		return 0, "", fmt.Errorf("interval required")
	}
	if m := reHHMM.FindStringSubmatch(v); len(m) == 3 {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return 0, "", fmt.Errorf("invalid minutes in %q", v)
		}
		return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute, "hhmm", nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, "", fmt.Errorf("invalid interval %q", v)
	}
	return d, "duration", nil
}
