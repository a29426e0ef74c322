package exam

import (
	"testing"
	"time"
)

func TestIsOpen(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status string
		now    time.Time
		want   bool
	}{
		{name: "inside window", status: StatusActive, now: start.Add(time.Hour), want: true},
		{name: "at start boundary", status: StatusActive, now: start, want: true},
		{name: "at end boundary", status: StatusActive, now: end, want: true},
		{name: "before start", status: StatusActive, now: start.Add(-time.Second), want: false},
		{name: "after end", status: StatusActive, now: end.Add(time.Second), want: false},
		{name: "inactive inside window", status: StatusInactive, now: start.Add(time.Hour), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := &Exam{Status: tc.status, StartAt: start, EndAt: end}
			if got := IsOpen(e, tc.now); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestIsOpenNilExam(t *testing.T) {
	if IsOpen(nil, time.Now()) {
		t.Fatalf("nil exam must never be open")
	}
}
