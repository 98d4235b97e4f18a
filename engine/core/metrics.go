package core

import "time"

const AVG_COUNT uint8 = 30

// Metrics keeps a rolling frame time average, the frames per second and the
// fence stalls reported by the frame pipeline. It is owned by the producer
// goroutine and is not safe for concurrent use.
type Metrics struct {
	frameAVGCounter    uint8
	msTimes            [AVG_COUNT]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64

	totalFrames uint64
	stalls      uint64
	longStalls  uint64
	stallTime   time.Duration
	worstStall  time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Update(frameElapsedTime float64) {
	// Calculate frame ms average
	frameMS := frameElapsedTime * 1000.0
	m.msTimes[m.frameAVGCounter] = frameMS
	if m.frameAVGCounter == AVG_COUNT-1 {
		m.msAvg = 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			m.msAvg += m.msTimes[i]
		}
		m.msAvg /= float64(AVG_COUNT)
	}
	m.frameAVGCounter++
	m.frameAVGCounter %= AVG_COUNT

	// Calculate frames per second.
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}

	m.frames++
	m.totalFrames++
}

// RecordStall registers a blocking fence wait. long is set when the wait
// crossed the diagnostic threshold.
func (m *Metrics) RecordStall(d time.Duration, long bool) {
	m.stalls++
	m.stallTime += d
	if long {
		m.longStalls++
	}
	if d > m.worstStall {
		m.worstStall = d
	}
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}

func (m *Metrics) Frame() (float64, float64) {
	return m.fps, m.msAvg
}

func (m *Metrics) TotalFrames() uint64 {
	return m.totalFrames
}

// Stalls returns the number of fence waits, how many of them were long and
// the worst wait seen so far.
func (m *Metrics) Stalls() (count, long uint64, worst time.Duration) {
	return m.stalls, m.longStalls, m.worstStall
}

func (m *Metrics) StallTime() time.Duration {
	return m.stallTime
}
