package reembed

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Increment(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Start(0)
	tracker.Increment(25)
	tracker.Increment(25)
	tracker.Increment(50)

	output := buf.String()
	assert.Contains(t, output, "100/100")
	assert.Contains(t, output, "100.0%")
	assert.Contains(t, output, "entries/s")
	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
}

func TestProgressTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 1000, 100)
	tracker.Start(0)

	tracker.Update(50)
	assert.Empty(t, buf.String(), "no report under the interval")

	tracker.Update(100)
	assert.Contains(t, buf.String(), "100/1000")

	buf.Reset()
	tracker.Update(150)
	assert.Empty(t, buf.String(), "interval counts from the last report")

	tracker.Update(250)
	assert.Contains(t, buf.String(), "250/1000 (25.0%)")
}

func TestProgressTracker_Resume(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 5)

	tracker.Start(6)
	assert.Equal(t, 6, tracker.Snapshot().Current)

	tracker.Increment(4)
	assert.Equal(t, 10, tracker.Snapshot().Current)
	assert.Empty(t, buf.String(), "four entries stay under the interval")

	tracker.Finish()
	assert.Contains(t, buf.String(), "10/10")
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Start(0)
	tracker.Update(75)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "100/100")
	assert.True(t, output[len(output)-1] == '\n', "finish ends the progress line")
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Start(0)
	tracker.Increment(150)
	assert.Equal(t, 100, tracker.Snapshot().Current)
	assert.Contains(t, buf.String(), "100/100")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Increment(10)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
}

func TestProgressTracker_NilWriter(t *testing.T) {
	tracker := NewProgressTracker(nil, 3, 0)
	tracker.Start(0)
	tracker.Increment(3)
	tracker.Finish()
	assert.Equal(t, 3, tracker.Snapshot().Current)
}

func TestProgress(t *testing.T) {
	p := Progress{Current: 50, Total: 200, Elapsed: 2 * time.Second}
	assert.InDelta(t, 25.0, p.Percent(), 1e-9)
	assert.InDelta(t, 25.0, p.Rate(), 1e-9)

	assert.Equal(t, 0.0, Progress{}.Percent())
	assert.Equal(t, 0.0, Progress{Current: 5}.Rate())
}

func TestProgress_ETA(t *testing.T) {
	tests := []struct {
		name     string
		progress Progress
		want     time.Duration
	}{
		{"halfway", Progress{Current: 10, Total: 20, Elapsed: 5 * time.Second}, 5 * time.Second},
		{"done", Progress{Current: 20, Total: 20, Elapsed: 5 * time.Second}, 0},
		{"not started", Progress{Total: 20}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.progress.ETA())
		})
	}
	assert.Equal(t, 0, Progress{Current: 30, Total: 20}.Remaining())
}

func TestProgressTracker_IgnoresNegativeDelta(t *testing.T) {
	tracker := NewProgressTracker(nil, 10, 5)
	tracker.Start(4)
	tracker.Increment(-3)
	assert.Equal(t, 4, tracker.Snapshot().Current)
}
