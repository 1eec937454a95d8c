package core

const AVG_COUNT uint8 = 30

// Metrics keeps a rolling average of frame times and the frames counted
// over the last full second.
type Metrics struct {
	frameAVGCounter    uint8
	msTimes            [AVG_COUNT]float64
	msAVG              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Update records one frame, frameElapsedTime is in seconds.
func (m *Metrics) Update(frameElapsedTime float64) {
	frameMS := frameElapsedTime * 1000.0
	m.msTimes[m.frameAVGCounter] = frameMS
	if m.frameAVGCounter == AVG_COUNT-1 {
		m.msAVG = 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			m.msAVG += m.msTimes[i]
		}
		m.msAVG /= float64(AVG_COUNT)
	}
	m.frameAVGCounter++
	m.frameAVGCounter %= AVG_COUNT

	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}

	m.frames++
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

func (m *Metrics) FrameTime() float64 {
	return m.msAVG
}

func (m *Metrics) Frame() (float64, float64) {
	return m.fps, m.msAVG
}
