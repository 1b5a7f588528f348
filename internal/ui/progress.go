package ui

import (
	"sync"
	"time"
)

// speedInterval is the minimum gap between speed samples.
const speedInterval = 500 * time.Millisecond

// etaSmoothingFactor is the weight of a fresh ETA against the previous one.
const etaSmoothingFactor = 0.3

// ProgressTracker follows indexing progress as the backlog grows and
// drains. It is safe for concurrent use.
type ProgressTracker struct {
	mu        sync.Mutex
	current   int
	total     int
	startTime time.Time
	lastETA   time.Duration
	now       func() time.Time

	lastCurrent   int
	lastSpeedCalc time.Time
	currentSpeed  float64
	avgSpeed      float64
	peakSpeed     float64
	speedSamples  int
	sparkline     *Sparkline
}

// SpeedStats holds files-per-second figures.
type SpeedStats struct {
	Current float64
	Avg     float64
	Peak    float64
}

// ProgressStats is a snapshot of progress.
type ProgressStats struct {
	Current   int
	Total     int
	Progress  float64
	ETA       time.Duration
	Elapsed   time.Duration
	Speed     SpeedStats
	Sparkline string
}

// NewProgressTracker creates a progress tracker.
func NewProgressTracker() *ProgressTracker {
	return newProgressTracker(time.Now)
}

func newProgressTracker(now func() time.Time) *ProgressTracker {
	t := now()
	return &ProgressTracker{
		startTime:     t,
		lastSpeedCalc: t,
		now:           now,
		sparkline:     NewSparkline(30),
	}
}

// Update records that current of total files are done. Totals may grow
// between calls as new work is queued.
func (p *ProgressTracker) Update(current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current, p.total = current, total

	now := p.now()
	elapsed := now.Sub(p.lastSpeedCalc)
	if elapsed < speedInterval {
		return
	}
	speed := 0.0
	if delta := current - p.lastCurrent; delta > 0 {
		speed = float64(delta) / elapsed.Seconds()
	}
	p.currentSpeed = speed
	p.speedSamples++
	if p.speedSamples == 1 {
		p.avgSpeed = speed
	} else {
		p.avgSpeed = 0.2*speed + 0.8*p.avgSpeed
	}
	if speed > p.peakSpeed {
		p.peakSpeed = speed
	}
	p.sparkline.Add(speed)

	p.lastCurrent = current
	p.lastSpeedCalc = now
}

// Progress returns the finished fraction in [0, 1].
func (p *ProgressTracker) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress()
}

func (p *ProgressTracker) progress() float64 {
	if p.total == 0 {
		return 0
	}
	return min(float64(p.current)/float64(p.total), 1)
}

// Done reports whether everything seen so far has finished.
func (p *ProgressTracker) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current >= p.total
}

// Stats returns a snapshot.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ProgressStats{
		Current:  p.current,
		Total:    p.total,
		Progress: p.progress(),
		ETA:      p.calculateETA(),
		Elapsed:  p.now().Sub(p.startTime),
		Speed: SpeedStats{
			Current: p.currentSpeed,
			Avg:     p.avgSpeed,
			Peak:    p.peakSpeed,
		},
		Sparkline: p.renderSparkline(),
	}
}

func (p *ProgressTracker) renderSparkline() string {
	if p.sparkline.Count() == 0 {
		return ""
	}
	return p.sparkline.Render()
}

// calculateETA estimates the time left from the average speed, smoothed
// against the previous estimate. Must be called with p.mu held.
func (p *ProgressTracker) calculateETA() time.Duration {
	remaining := p.total - p.current
	if remaining <= 0 || p.avgSpeed <= 0 {
		p.lastETA = 0
		return 0
	}

	raw := time.Duration(float64(remaining) / p.avgSpeed * float64(time.Second))
	if p.lastETA == 0 {
		p.lastETA = raw
		return raw
	}
	smoothed := time.Duration(etaSmoothingFactor*float64(raw) + (1-etaSmoothingFactor)*float64(p.lastETA))
	p.lastETA = smoothed
	return smoothed
}
