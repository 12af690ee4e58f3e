package download

import (
	"github.com/umputun/lepdl/pkg/domain"
)

// State is the stage of one episode file
type State int

// file states, Pending and Attempting are transient
const (
	StatePending State = iota
	StateAttempting
	StateSucceeded
	StateFailed
	StateSkipped
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "downloaded"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "on disk"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Outcome is the final state of one episode file
type Outcome struct {
	Key    domain.Key
	Kind   domain.MediaKind
	Name   string // file name in the destination
	Title  string
	State  State
	Source string // url the file came from, set on success
	Reason string // why it failed
	Bytes  int64
}

// Summary is the result of a download run
type Summary struct {
	Outcomes []Outcome
	Counts   map[State]int
}

// NewSummary counts outcomes per state
func NewSummary(outcomes []Outcome) Summary {
	s := Summary{Outcomes: outcomes, Counts: map[State]int{}}
	for _, o := range outcomes {
		s.Counts[o.State]++
	}
	return s
}

// Failures returns failed outcomes
func (s Summary) Failures() []Outcome {
	var res []Outcome
	for _, o := range s.Outcomes {
		if o.State == StateFailed {
			res = append(res, o)
		}
	}
	return res
}

// Bytes is the total size of downloaded files
func (s Summary) Bytes() (total int64) {
	for _, o := range s.Outcomes {
		if o.State == StateSucceeded {
			total += o.Bytes
		}
	}
	return total
}
