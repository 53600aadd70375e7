package plan

import (
	"sync"
	"testing"

	"github.com/ashureev/planchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mathPlan() *domain.Plan {
	return &domain.Plan{Courses: []domain.Course{{ID: "Math", WorkloadHours: 10, Priority: domain.PriorityHigh}}}
}

func TestStoreStartsEmpty(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Get())
}

func TestStoreReplaceAndClear(t *testing.T) {
	s := NewStore()
	s.Replace(mathPlan())
	require.NotNil(t, s.Get())
	assert.Equal(t, "Math", s.Get().Courses[0].ID)

	s.Clear()
	assert.Nil(t, s.Get())
}

func TestStoreIsolatesSnapshots(t *testing.T) {
	s := NewStore()
	p := mathPlan()
	s.Replace(p)

	// Mutating the caller's value or a returned copy never reaches the cache.
	p.Courses[0].ID = "Changed"
	got := s.Get()
	got.Courses[0].ID = "Also changed"

	assert.Equal(t, "Math", s.Get().Courses[0].ID)
}

func TestStoreNotifiesObservers(t *testing.T) {
	s := NewStore()
	var seen []*domain.Plan
	s.Subscribe(func(p *domain.Plan) { seen = append(seen, p) })

	s.Replace(mathPlan())
	s.Clear()

	require.Len(t, seen, 2)
	assert.Equal(t, "Math", seen[0].Courses[0].ID)
	assert.Nil(t, seen[1])
}

func TestStoreConcurrentReplaceIsWholesale(t *testing.T) {
	s := NewStore()
	a := &domain.Plan{Courses: []domain.Course{{ID: "A1"}, {ID: "A2"}}}
	b := &domain.Plan{Courses: []domain.Course{{ID: "B1"}}}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); s.Replace(a) }()
		go func() {
			defer wg.Done()
			got := s.Get()
			if got == nil {
				return
			}
			// A reader sees either snapshot in full, never a mix.
			switch got.Courses[0].ID {
			case "A1":
				assert.Len(t, got.Courses, 2)
			case "B1":
				assert.Len(t, got.Courses, 1)
			default:
				t.Errorf("unexpected course %q", got.Courses[0].ID)
			}
		}()
		s.Replace(b)
	}
	wg.Wait()
}

func TestSummarizeEmptyState(t *testing.T) {
	for _, p := range []*domain.Plan{nil, {}, {Courses: []domain.Course{}}} {
		sum := Summarize(p)
		assert.True(t, sum.Empty)
		assert.Equal(t, EmptyStateMessage, sum.Headline)
		assert.Empty(t, sum.Courses)
	}
}

func TestSummarizeCourses(t *testing.T) {
	p := &domain.Plan{
		PlanName: "Winter",
		Courses: []domain.Course{
			{ID: "Math", WorkloadHours: 10, Priority: domain.PriorityHigh},
			{ID: "Physics", WorkloadHours: 7.5, Priority: domain.PriorityMedium},
			{ID: "Art", WorkloadHours: 2, Priority: domain.PriorityLow},
			{ID: "Misc", WorkloadHours: 1, Priority: "WHATEVER"},
		},
		Availability: map[string]float64{"2025-12-20": 8},
	}

	sum := Summarize(p)
	assert.False(t, sum.Empty)
	assert.Equal(t, "4 Subject(s)", sum.Headline)
	assert.Equal(t, "Winter", sum.PlanName)
	assert.Equal(t, 1, sum.Available)

	var lines []string
	for _, c := range sum.Courses {
		lines = append(lines, c.Text)
	}
	assert.Equal(t, []string{
		"🔴 Math (10h)",
		"🟡 Physics (7.5h)",
		"🟢 Art (2h)",
		"⚪ Misc (1h)",
	}, lines)
}
