package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campustrack_attendance_marks_total",
		Help: "Attendance marking calls by outcome.",
	}, []string{"track", "outcome"})

	progressionRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campustrack_progression_runs_total",
		Help: "Progression engine runs by mode and outcome.",
	}, []string{"mode", "outcome"})
)

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
