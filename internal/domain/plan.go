// Package domain holds the types shared between the scheduling service
// wire format and the client-side conversation engine.
package domain

// Priority ranks a course for scheduling.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Course is a subject in the plan. Identity is ID; uniqueness is enforced
// by the scheduling service.
type Course struct {
	ID            string   `json:"id"`
	WorkloadHours float64  `json:"workloadHours"`
	Priority      Priority `json:"priority"`
	ExamDate      string   `json:"examDate,omitempty"`
}

// Plan is the authoritative planning state mirrored from the service.
// A nil *Plan means no plan exists yet.
type Plan struct {
	PlanName     string             `json:"planName,omitempty"`
	StartDate    string             `json:"startDate,omitempty"`
	Courses      []Course           `json:"courses"`
	Availability map[string]float64 `json:"availability,omitempty"`
}

// Clone returns a deep copy of p. Clone of nil is nil.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	out := &Plan{
		PlanName:  p.PlanName,
		StartDate: p.StartDate,
	}
	if p.Courses != nil {
		out.Courses = make([]Course, len(p.Courses))
		copy(out.Courses, p.Courses)
	}
	if p.Availability != nil {
		out.Availability = make(map[string]float64, len(p.Availability))
		for day, hours := range p.Availability {
			out.Availability[day] = hours
		}
	}
	return out
}

// IsEmpty reports whether p carries no courses.
func (p *Plan) IsEmpty() bool {
	return p == nil || len(p.Courses) == 0
}
