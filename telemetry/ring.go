package telemetry

// ring é um buffer circular FIFO de capacidade fixa.
// Quando cheio, push descarta o evento mais antigo.
type ring struct {
	buf   []AbuseEvent
	start int
	size  int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]AbuseEvent, capacity)}
}

func (r *ring) push(ev AbuseEvent) {
	if len(r.buf) == 0 {
		return
	}
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = ev
		r.size++
		return
	}
	r.buf[r.start] = ev
	r.start = (r.start + 1) % len(r.buf)
}

// newest devolve até limit eventos, do mais recente para o mais antigo.
func (r *ring) newest(limit int) []AbuseEvent {
	if limit > r.size {
		limit = r.size
	}
	out := make([]AbuseEvent, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (r.start + r.size - 1 - i) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}
