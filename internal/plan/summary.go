package plan

import (
	"fmt"
	"strconv"

	"github.com/ashureev/planchat/internal/domain"
)

// EmptyStateMessage is shown in the sidebar when there is nothing to list.
const EmptyStateMessage = "No subjects added yet"

// Summary is the sidebar rendering of a plan.
type Summary struct {
	Empty     bool         `json:"empty"`
	Headline  string       `json:"headline"`
	PlanName  string       `json:"plan_name,omitempty"`
	Courses   []CourseLine `json:"courses,omitempty"`
	Available int          `json:"available_days,omitempty"`
}

// CourseLine is one course entry of the sidebar.
type CourseLine struct {
	Glyph    string          `json:"glyph"`
	ID       string          `json:"id"`
	Hours    float64         `json:"hours"`
	Priority domain.Priority `json:"priority"`
	Text     string          `json:"text"`
}

// Summarize renders p for the sidebar. A nil plan or a plan without courses
// yields the empty state.
func Summarize(p *domain.Plan) Summary {
	if p.IsEmpty() {
		return Summary{Empty: true, Headline: EmptyStateMessage}
	}

	s := Summary{
		Headline:  fmt.Sprintf("%d Subject(s)", len(p.Courses)),
		PlanName:  p.PlanName,
		Available: len(p.Availability),
		Courses:   make([]CourseLine, 0, len(p.Courses)),
	}
	for _, c := range p.Courses {
		glyph := PriorityGlyph(c.Priority)
		s.Courses = append(s.Courses, CourseLine{
			Glyph:    glyph,
			ID:       c.ID,
			Hours:    c.WorkloadHours,
			Priority: c.Priority,
			Text:     fmt.Sprintf("%s %s (%sh)", glyph, c.ID, formatHours(c.WorkloadHours)),
		})
	}
	return s
}

// PriorityGlyph maps a priority to its sidebar marker.
func PriorityGlyph(p domain.Priority) string {
	switch p {
	case domain.PriorityHigh:
		return "🔴"
	case domain.PriorityMedium:
		return "🟡"
	case domain.PriorityLow:
		return "🟢"
	default:
		return "⚪"
	}
}

// formatHours prints whole hours without a fraction.
func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
