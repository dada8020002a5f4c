// Package timedim resolves the compact interval notation used by WMS time
// dimensions into discrete instants.
package timedim

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultLimit caps the number of instants generated for a single interval
// entry. Pass -1 to EnumerateInstants to remove the cap.
const DefaultLimit = 240

// ErrInvalidPeriod is returned when a period string does not match the
// P[nY][nM][nD][T[nH][nM][nS]] notation or resolves to a zero duration.
var ErrInvalidPeriod = errors.New("invalid period")

var periodPattern = regexp.MustCompile(`(?i)^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

var instantLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Period is a calendar duration with at least one non-zero component.
// Fractional seconds are not supported.
type Period struct {
	Years   int
	Months  int
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// IsZero reports whether every component is zero.
func (p Period) IsZero() bool {
	return p == Period{}
}

// SubtractFrom returns t moved back by the period. The calendar components
// use calendar arithmetic, so subtracting P1M from March 31 lands in early
// March rather than exactly 30 days earlier.
func (p Period) SubtractFrom(t time.Time) time.Time {
	t = t.AddDate(-p.Years, -p.Months, -p.Days)
	return t.Add(-(time.Duration(p.Hours)*time.Hour +
		time.Duration(p.Minutes)*time.Minute +
		time.Duration(p.Seconds)*time.Second))
}

// ParsePeriod parses the case-insensitive P[nY][nM][nD][T[nH][nM][nS]]
// notation. Omitted components are zero; a period with no non-zero
// component is rejected.
func ParsePeriod(text string) (Period, error) {
	match := periodPattern.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return Period{}, fmt.Errorf("%w: %q does not match the period notation", ErrInvalidPeriod, text)
	}

	period := Period{
		Years:   periodComponent(match[1]),
		Months:  periodComponent(match[2]),
		Days:    periodComponent(match[3]),
		Hours:   periodComponent(match[4]),
		Minutes: periodComponent(match[5]),
		Seconds: periodComponent(match[6]),
	}

	if period.IsZero() {
		return Period{}, fmt.Errorf("%w: %q resolves to a zero duration", ErrInvalidPeriod, text)
	}

	return period, nil
}

func periodComponent(digits string) int {
	if digits == "" {
		return 0
	}

	n, _ := strconv.Atoi(digits)
	return n
}

// ResolveInstant parses a single instant. The literal token "current"
// resolves to the wall clock at call time; anything else must be an
// ISO 8601 date-time.
func ResolveInstant(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "current" {
		return time.Now().UTC(), nil
	}

	for _, layout := range instantLayouts {
		if instant, err := time.Parse(layout, text); err == nil {
			return instant, nil
		}
	}

	return time.Time{}, fmt.Errorf("parse instant %q: not an ISO 8601 date-time", text)
}

// EnumerateInstants expands a comma-separated time-dimension value into
// discrete instants. An entry is either a single instant or a
// start/end/period interval. Interval endpoints are always contributed, in
// either written order; generated instants walk backward from the end of
// the range — the end is the reference point for step alignment — and stay
// strictly inside it. limit caps the instants generated per interval entry;
// -1 removes the cap, making unbounded expansion of an adversarial range
// the caller's responsibility. An interval whose period does not parse
// still contributes its endpoints. An instant equal to one already
// collected is not added again. With sorted the result is ordered
// ascending; otherwise it stays in accumulation order.
func EnumerateInstants(definition string, limit int, sorted bool) ([]time.Time, error) {
	var instants []time.Time

	for _, entry := range strings.Split(definition, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if !strings.Contains(entry, "/") {
			instant, err := ResolveInstant(entry)
			if err != nil {
				return nil, err
			}

			instants = appendInstant(instants, instant)
			continue
		}

		expanded, err := appendInterval(instants, entry, limit)
		if err != nil {
			return nil, err
		}
		instants = expanded
	}

	if sorted {
		sort.Slice(instants, func(i, j int) bool {
			return instants[i].Before(instants[j])
		})
	}

	return instants, nil
}

func appendInterval(instants []time.Time, entry string, limit int) ([]time.Time, error) {
	parts := strings.SplitN(entry, "/", 3)

	start, err := ResolveInstant(parts[0])
	if err != nil {
		return nil, err
	}

	end, err := ResolveInstant(parts[1])
	if err != nil {
		return nil, err
	}

	// The two written positions are not assumed ordered.
	if end.Before(start) {
		start, end = end, start
	}

	instants = appendInstant(instants, end)
	instants = appendInstant(instants, start)

	periodText := ""
	if len(parts) == 3 {
		periodText = parts[2]
	}

	period, err := ParsePeriod(periodText)
	if err != nil {
		log.Warn().Str("entry", entry).Err(err).Msg("skipping instant generation for interval")
		return instants, nil
	}

	generated := 0
	for cursor := period.SubtractFrom(end); cursor.After(start); cursor = period.SubtractFrom(cursor) {
		if limit >= 0 && generated >= limit {
			break
		}

		instants = appendInstant(instants, cursor)
		generated++
	}

	return instants, nil
}

// appendInstant adds instant unless an equal one is already present.
func appendInstant(instants []time.Time, instant time.Time) []time.Time {
	for _, existing := range instants {
		if existing.Equal(instant) {
			return instants
		}
	}

	return append(instants, instant)
}
