// Package progress computes the read-through percentage of a lesson.
package progress

import (
	"github.com/shopspring/decimal"

	"github.com/victornm/learn/internal/content"
)

const precision = 2

var hundred = decimal.NewFromInt(100)

// IDSet is a set of section or question IDs. The zero value is not usable, use NewIDSet.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id. Adding an existing id is a no-op.
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int {
	return len(s)
}

// Compute returns (completed + revealed) / (totalSections + totalQuestions) * 100, clamped
// to [0, 100] and truncated to 2 decimals. A lesson with nothing to track yields 0.
func Compute(totalSections, totalQuestions int, completed, revealed IDSet) float64 {
	total := max(totalSections, 0) + max(totalQuestions, 0)
	done := min(completed.Len(), max(totalSections, 0)) + min(revealed.Len(), max(totalQuestions, 0))

	return percentage(done, total)
}

// ForLesson is Compute restricted to IDs that exist in the parsed lesson.
func ForLesson(res content.Result, completed, revealed IDSet) float64 {
	done := 0
	for _, s := range res.Sections {
		if completed.Has(s.ID) {
			done++
		}
	}

	for _, q := range res.Questions {
		if revealed.Has(q.ID) {
			done++
		}
	}

	return percentage(done, len(res.Sections)+len(res.Questions))
}

func percentage(done, total int) float64 {
	if total <= 0 {
		return 0
	}

	p := decimal.NewFromInt(int64(done)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Truncate(precision)

	switch {
	case p.IsNegative():
		p = decimal.Zero
	case p.GreaterThan(hundred):
		p = hundred
	}

	return p.InexactFloat64()
}
