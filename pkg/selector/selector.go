// Package selector reduces user criteria to a subset of the ordered episode view
package selector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/umputun/lepdl/pkg/domain"
)

// ErrBadRange is returned for a malformed episode range
var ErrBadRange = errors.New("bad episode range")

// NumberRange is an inclusive episode number range, a missing bound is open
type NumberRange struct {
	From, To       int
	HasFrom, HasTo bool
}

// IsSet reports whether any bound is given
func (r NumberRange) IsSet() bool { return r.HasFrom || r.HasTo }

func (r NumberRange) String() string {
	if !r.IsSet() {
		return ""
	}
	var from, to string
	if r.HasFrom {
		from = strconv.Itoa(r.From)
	}
	if r.HasTo {
		to = strconv.Itoa(r.To)
	}
	if r.HasFrom && r.HasTo && r.From == r.To {
		return from
	}
	return from + "-" + to
}

// DateRange is an inclusive date range, a zero bound is open
type DateRange struct {
	From, To domain.Date
}

// IsSet reports whether any bound is given
func (r DateRange) IsSet() bool { return !r.From.IsZero() || !r.To.IsZero() }

// Criteria are the selection constraints. Only one of them applies:
// Last wins over Dates, Dates win over Numbers.
type Criteria struct {
	Last    bool
	Dates   DateRange
	Numbers NumberRange
}

// Conflicting reports whether both a date and a number filter were given,
// the number filter is ignored then
func (c Criteria) Conflicting() bool {
	return c.Dates.IsSet() && c.Numbers.IsSet()
}

// ParseRange parses "A", "A-B", "A-" and "-B" forms
func ParseRange(s string) (NumberRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NumberRange{}, nil
	}

	from, to, isRange := strings.Cut(s, "-")
	if !isRange {
		n, err := parseNumber(s)
		if err != nil {
			return NumberRange{}, fmt.Errorf("%w %q: %w", ErrBadRange, s, err)
		}
		return NumberRange{From: n, To: n, HasFrom: true, HasTo: true}, nil
	}

	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return NumberRange{}, fmt.Errorf("%w %q: no bounds", ErrBadRange, s)
	}
	var r NumberRange
	var err error
	if from != "" {
		if r.From, err = parseNumber(from); err != nil {
			return NumberRange{}, fmt.Errorf("%w %q: %w", ErrBadRange, s, err)
		}
		r.HasFrom = true
	}
	if to != "" {
		if r.To, err = parseNumber(to); err != nil {
			return NumberRange{}, fmt.Errorf("%w %q: %w", ErrBadRange, s, err)
		}
		r.HasTo = true
	}
	return r, nil
}

func parseNumber(s string) (int, error) {
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse number: %w", err)
	}
	return n, nil
}

// ParseDate parses a YYYY-MM-DD bound, empty input gives an open bound
func ParseDate(s string) (domain.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Date{}, nil
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return domain.Date{}, fmt.Errorf("bad date, expected YYYY-MM-DD: %w", err)
	}
	return d, nil
}

// Select returns episodes of the ordered view matching the criteria, in view order
func Select(ordered []domain.Episode, c Criteria) []domain.Episode {
	switch {
	case c.Last:
		return last(ordered)
	case c.Dates.IsSet():
		return byDate(ordered, c.Dates)
	case c.Numbers.IsSet():
		return byNumber(ordered, c.Numbers)
	default:
		res := make([]domain.Episode, len(ordered))
		copy(res, ordered)
		return res
	}
}

func last(ordered []domain.Episode) []domain.Episode {
	if len(ordered) == 0 {
		return []domain.Episode{}
	}
	best := ordered[0]
	for _, ep := range ordered[1:] {
		if ep.Number > best.Number || (ep.Number == best.Number && ep.Date.After(best.Date)) {
			best = ep
		}
	}
	return []domain.Episode{best}
}

func byDate(ordered []domain.Episode, r DateRange) []domain.Episode {
	res := []domain.Episode{}
	if len(ordered) == 0 {
		return res
	}
	from, to := r.From, r.To
	if from.IsZero() || to.IsZero() {
		minDate, maxDate := ordered[0].Date, ordered[0].Date
		for _, ep := range ordered[1:] {
			if ep.Date.Before(minDate) {
				minDate = ep.Date
			}
			if ep.Date.After(maxDate) {
				maxDate = ep.Date
			}
		}
		if from.IsZero() {
			from = minDate
		}
		if to.IsZero() {
			to = maxDate
		}
	}
	if from.After(to) {
		return res
	}
	for _, ep := range ordered {
		if !ep.Date.Before(from) && !ep.Date.After(to) {
			res = append(res, ep)
		}
	}
	return res
}

func byNumber(ordered []domain.Episode, r NumberRange) []domain.Episode {
	res := []domain.Episode{}
	from, to := r.From, r.To
	if !r.HasFrom || !r.HasTo {
		minNum, maxNum, found := 0, 0, false
		for _, ep := range ordered {
			if ep.IsTextOnly() {
				continue
			}
			if !found || ep.Number < minNum {
				minNum = ep.Number
			}
			if !found || ep.Number > maxNum {
				maxNum = ep.Number
			}
			found = true
		}
		// without numbered episodes only "0-" resolves, to the text-only ones
		if !found && (!r.HasFrom || r.From != 0) {
			return res
		}
		if !r.HasFrom {
			from = minNum
		}
		if !r.HasTo {
			to = maxNum
		}
	}
	if from > to {
		return res
	}
	for _, ep := range ordered {
		if ep.Number >= from && ep.Number <= to {
			res = append(res, ep)
		}
	}
	return res
}
