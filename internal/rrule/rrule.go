// Package rrule computes the next occurrence of a recurring task. Rules are
// either a named frequency ("weekly"), a phrase ("every 3 days") or an
// RFC 5545 RRULE ("FREQ=WEEKLY;BYDAY=MO").
package rrule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

var everyPattern = regexp.MustCompile(`(?i)every\s+(\d+)\s+(day|week|month|year)s?`)

// Next returns the occurrence following base. Month and year steps use
// calendar arithmetic, so Jan 31 + 1 month rolls over into March. ok is
// false for rules that are not understood.
func Next(rule string, base time.Time) (next time.Time, ok bool) {
	switch strings.ToLower(strings.TrimSpace(rule)) {
	case "":
		return time.Time{}, false
	case "daily":
		return base.AddDate(0, 0, 1), true
	case "weekly":
		return base.AddDate(0, 0, 7), true
	case "biweekly":
		return base.AddDate(0, 0, 14), true
	case "monthly":
		return base.AddDate(0, 1, 0), true
	case "quarterly":
		return base.AddDate(0, 3, 0), true
	case "yearly":
		return base.AddDate(1, 0, 0), true
	}

	if m := everyPattern.FindStringSubmatch(rule); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return time.Time{}, false
		}
		switch strings.ToLower(m[2]) {
		case "day":
			return base.AddDate(0, 0, n), true
		case "week":
			return base.AddDate(0, 0, n*7), true
		case "month":
			return base.AddDate(0, n, 0), true
		case "year":
			return base.AddDate(n, 0, 0), true
		}
	}

	if IsRRule(rule) {
		occurrence, err := NextOccurrence(rule, base, base)
		if err == nil && occurrence != nil {
			return *occurrence, true
		}
	}
	return time.Time{}, false
}

// ParseRRule parses an RFC 5545 RRULE string anchored at dtstart.
func ParseRRule(ruleStr string, dtstart time.Time) (*rrule.RRule, error) {
	ruleStr = strings.TrimPrefix(strings.TrimSpace(ruleStr), "RRULE:")

	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE: %w", err)
	}
	opt.Dtstart = dtstart
	return rrule.NewRRule(*opt)
}

// NextOccurrence returns the first occurrence strictly after the given time,
// or nil when the rule is exhausted.
func NextOccurrence(ruleStr string, dtstart, after time.Time) (*time.Time, error) {
	rule, err := ParseRRule(ruleStr, dtstart)
	if err != nil {
		return nil, err
	}

	next := rule.After(after, false)
	if next.IsZero() {
		return nil, nil
	}
	return &next, nil
}

// IsRRule checks if the string looks like an RFC 5545 rule.
func IsRRule(ruleStr string) bool {
	return strings.Contains(strings.ToUpper(ruleStr), "FREQ=")
}

// Describe renders a rule for chat messages.
func Describe(rule string) string {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return "once"
	}
	if !IsRRule(rule) {
		return strings.ToLower(rule)
	}

	info := make(map[string]string)
	for _, p := range strings.Split(strings.TrimPrefix(rule, "RRULE:"), ";") {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) == 2 {
			info[strings.ToUpper(kv[0])] = kv[1]
		}
	}

	units := map[string]string{
		"HOURLY":  "hour",
		"DAILY":   "day",
		"WEEKLY":  "week",
		"MONTHLY": "month",
		"YEARLY":  "year",
	}
	unit, ok := units[strings.ToUpper(info["FREQ"])]
	if !ok {
		return rule
	}

	var b strings.Builder
	if interval := info["INTERVAL"]; interval == "" || interval == "1" {
		b.WriteString("every " + unit)
	} else {
		b.WriteString("every " + interval + " " + unit + "s")
	}
	if byDay := info["BYDAY"]; byDay != "" {
		b.WriteString(" on " + strings.ReplaceAll(byDay, ",", ", "))
	}
	if count := info["COUNT"]; count != "" {
		b.WriteString(", " + count + " times")
	}
	return b.String()
}
