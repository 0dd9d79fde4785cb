package indicators

import "fmt"

// SimpleMA is a streaming simple moving average over closes. The backtest
// engine uses the batch Snapshot; this form exists for live monitors that see
// one closed bar at a time.
type SimpleMA struct {
	window int
	buf    []float64
	sum    float64
}

func NewSimpleMA(window int) *SimpleMA {
	return &SimpleMA{
		window: window,
		buf:    make([]float64, 0, window),
	}
}

func (m *SimpleMA) Name() string {
	return fmt.Sprintf("MA(%d)", m.window)
}

func (m *SimpleMA) Warmup() int {
	return m.window
}

func (m *SimpleMA) Reset() {
	m.buf = m.buf[:0]
	m.sum = 0
}

func (m *SimpleMA) Update(close float64) {
	m.buf = append(m.buf, close)
	m.sum += close
	if len(m.buf) > m.window {
		m.sum -= m.buf[0]
		m.buf = m.buf[1:]
	}
}

func (m *SimpleMA) Ready() bool {
	return len(m.buf) >= m.window
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.sum / float64(len(m.buf))
}
