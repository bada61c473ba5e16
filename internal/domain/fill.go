package domain

// FillEvent records one simulated execution against a ladder level.
type FillEvent struct {
	ID          string  `json:"id"` // uuid
	Side        Side    `json:"side"`
	Price       float64 `json:"price"`
	Qty         float64 `json:"qty"`
	NotionalUSD float64 `json:"notional_usd"`
	PositionID  int64   `json:"position_id"`
	RealizedPnl float64 `json:"realized_pnl,omitempty"` // sells only
	TsUnixM     int64   `json:"ts"`
}

// FillRing keeps the last N fill events, most-recent-first on read.
type FillRing struct {
	buf  []FillEvent
	head int
	size int
}

// NewFillRing creates a ring holding up to capacity events.
func NewFillRing(capacity int) *FillRing {
	if capacity < 1 {
		capacity = 1
	}
	return &FillRing{buf: make([]FillEvent, capacity)}
}

// Push appends an event, evicting the oldest when full.
func (r *FillRing) Push(ev FillEvent) {
	r.buf[r.head] = ev
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// Recent returns up to capacity events, newest first.
func (r *FillRing) Recent() []FillEvent {
	out := make([]FillEvent, 0, r.size)
	idx := r.head
	for i := 0; i < r.size; i++ {
		idx--
		if idx < 0 {
			idx = len(r.buf) - 1
		}
		out = append(out, r.buf[idx])
	}
	return out
}

// Restore refills the ring from a newest-first slice (snapshot load path).
func (r *FillRing) Restore(newestFirst []FillEvent) {
	r.head = 0
	r.size = 0
	for i := len(newestFirst) - 1; i >= 0; i-- {
		r.Push(newestFirst[i])
	}
}
