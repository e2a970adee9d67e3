package worker

import (
	"testing"
	"time"

	"github.com/9531lyj/AutoCheckBJMF/internal/config"
)

func workerWithSchedule(schedule string) *CheckinWorker {
	cfg := &config.Config{ScheduleTime: schedule}
	return &CheckinWorker{cfg: cfg}
}

func TestNextRunTimeLaterToday(t *testing.T) {
	w := workerWithSchedule("18:30")
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

	next := w.nextRunTime(now)
	want := time.Date(2026, 3, 2, 18, 30, 0, 0, time.Local)
	if !next.Equal(want) {
		t.Errorf("nextRunTime = %v, want %v", next, want)
	}
}

func TestNextRunTimeTomorrow(t *testing.T) {
	w := workerWithSchedule("08:00")
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

	next := w.nextRunTime(now)
	want := time.Date(2026, 3, 3, 8, 0, 0, 0, time.Local)
	if !next.Equal(want) {
		t.Errorf("nextRunTime = %v, want %v", next, want)
	}
}

func TestNextRunTimeExactlyNow(t *testing.T) {
	w := workerWithSchedule("09:00")
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

	// The current minute has already fired; roll to tomorrow instead of
	// triggering immediately in a tight loop.
	next := w.nextRunTime(now)
	want := time.Date(2026, 3, 3, 9, 0, 0, 0, time.Local)
	if !next.Equal(want) {
		t.Errorf("nextRunTime = %v, want %v", next, want)
	}
}
