package trees

import (
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
)

// LevelMetrics counts progress within one mass code.
type LevelMetrics struct {
	Total     int `json:"total"`
	Empty     int `json:"empty"`
	Populated int `json:"populated"`
}

// Known is the number of regions with a confirmed result.
func (l LevelMetrics) Known() int { return l.Empty + l.Populated }

// ProgressMetrics is a snapshot of how much of a top region has been resolved.
type ProgressMetrics struct {
	Total     int                             `json:"total"`
	Empty     int                             `json:"empty"`
	Populated int                             `json:"populated"`
	Levels    map[boxel.MassCode]LevelMetrics `json:"levels"`
	Computed  time.Time                       `json:"computed"`
}

// Known is the number of regions confirmed either empty or populated.
func (m ProgressMetrics) Known() int { return m.Empty + m.Populated }

// Ratio is the known fraction in [0, 1].
func (m ProgressMetrics) Ratio() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Known()) / float64(m.Total)
}

func (m ProgressMetrics) String() string {
	return fmt.Sprintf("%d of %d", m.Known(), m.Total)
}

func computeProgressMetrics(t *ProgressTree) ProgressMetrics {
	metrics := ProgressMetrics{
		Levels:   make(map[boxel.MassCode]LevelMetrics),
		Computed: time.Now(),
	}

	t.Walk(func(region boxel.Boxel, value int) bool {
		level := metrics.Levels[region.MassCode()]
		level.Total++
		metrics.Total++

		switch {
		case value == ProgressEmpty:
			level.Empty++
			metrics.Empty++
		case value > 0:
			level.Populated++
			metrics.Populated++
		}

		metrics.Levels[region.MassCode()] = level
		return true
	})

	return metrics
}
