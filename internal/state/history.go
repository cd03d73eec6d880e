package state

// DefaultHistorySize is one hour of points at the default one-minute period.
const DefaultHistorySize = 60

// HistoryRing is a fixed-capacity FIFO of history points. Pushing onto a full
// ring overwrites the oldest point.
type HistoryRing struct {
	buf   []HistoryPoint
	start int
	size  int
}

// NewHistoryRing allocates a ring holding at most capacity points.
func NewHistoryRing(capacity int) *HistoryRing {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &HistoryRing{buf: make([]HistoryPoint, capacity)}
}

// Push appends p, evicting the oldest point when full.
func (r *HistoryRing) Push(p HistoryPoint) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = p
		r.size++
		return
	}
	r.buf[r.start] = p
	r.start = (r.start + 1) % len(r.buf)
}

// Last returns the newest point.
func (r *HistoryRing) Last() (HistoryPoint, bool) {
	if r.size == 0 {
		return HistoryPoint{}, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

// Points returns the points oldest first.
func (r *HistoryRing) Points() []HistoryPoint {
	if r.size == 0 {
		return nil
	}
	out := make([]HistoryPoint, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

func (r *HistoryRing) Len() int { return r.size }

func (r *HistoryRing) Cap() int { return len(r.buf) }
