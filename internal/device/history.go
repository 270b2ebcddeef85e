package device

import "thermostab/internal/models"

// HistoryCapacity is the number of temperature samples kept for fluctuation analysis.
const HistoryCapacity = models.MaxWindowSamples

// History is a bounded FIFO of samples. The oldest sample is evicted on overflow.
// It is not safe for concurrent use; TemptManager guards it with its own lock.
type History struct {
	buf   []float64
	start int
	n     int
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = HistoryCapacity
	}
	return &History{buf: make([]float64, capacity)}
}

func (h *History) Len() int { return h.n }

func (h *History) Push(v float64) {
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = v
		h.n++
		return
	}
	h.buf[h.start] = v
	h.start = (h.start + 1) % len(h.buf)
}

// Last returns the most recent sample.
func (h *History) Last() (float64, bool) {
	if h.n == 0 {
		return 0, false
	}
	return h.buf[(h.start+h.n-1)%len(h.buf)], true
}

// Tail copies the most recent n samples, oldest first. It returns fewer
// when the history is shorter.
func (h *History) Tail(n int) []float64 {
	if n > h.n {
		n = h.n
	}
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	first := h.start + h.n - n
	for i := range out {
		out[i] = h.buf[(first+i)%len(h.buf)]
	}
	return out
}

func (h *History) Reset() {
	h.start, h.n = 0, 0
}

// spread is max-min of vs.
func spread(vs []float64) float64 {
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}
