package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifica o tipo de um evento de abuso.
type EventType string

const (
	FailedAttempt EventType = "failed_attempt"
	CorsDenial    EventType = "cors_denial"
	RateLimitHit  EventType = "rate_limit_hit"
)

// DefaultMaxEvents é o tamanho padrão do log de eventos recentes.
const DefaultMaxEvents = 500

const unknownIP = "unknown"

// Details carrega os campos opcionais de um evento. Strings vazias significam "ausente".
type Details struct {
	IP       string
	Method   string
	Path     string
	Origin   string
	SecretID string
	Reason   string
}

// AbuseEvent é imutável depois de criado.
type AbuseEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	IP        string    `json:"ip"`
	Method    string    `json:"method,omitempty"`
	Path      string    `json:"path,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	SecretID  string    `json:"secretId,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// IPStat agrega os eventos de um IP.
type IPStat struct {
	Total          int64
	FailedAttempts int64
	CorsDenials    int64
	RateLimitHits  int64
	LastSeen       time.Time
}

type totals struct {
	failedAttempts int64
	corsDenials    int64
	rateLimitHits  int64
}

// Sink recebe uma cópia de cada evento registrado (ex.: espelho em Redis).
// Erros são best-effort: logados e ignorados.
type Sink interface {
	Record(ctx context.Context, ev AbuseEvent) error
}

// Recorder é o agregador de eventos de abuso. Seguro para uso concorrente.
type Recorder struct {
	mu          sync.Mutex
	startedAt   time.Time
	now         func() time.Time
	events      *ring
	totals      totals
	ipStats     map[string]*IPStat
	targetStats map[string]int64

	maxEvents   int
	sinks       []Sink
	sinkTimeout time.Duration
	metrics     *Metrics
	log         zerolog.Logger
}

type Option func(*Recorder)

func WithMaxEvents(n int) Option {
	return func(r *Recorder) { r.maxEvents = n }
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

func WithSink(s Sink) Option {
	return func(r *Recorder) {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
}

func WithSinkTimeout(d time.Duration) Option {
	return func(r *Recorder) { r.sinkTimeout = d }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Recorder) { r.log = l }
}

func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		now:         time.Now,
		ipStats:     make(map[string]*IPStat),
		targetStats: make(map[string]int64),
		maxEvents:   DefaultMaxEvents,
		sinkTimeout: 500 * time.Millisecond,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxEvents <= 0 {
		r.maxEvents = DefaultMaxEvents
	}
	r.events = newRing(r.maxEvents)
	r.startedAt = r.now()
	return r
}

// Record registra um evento. Tipos desconhecidos entram no log e nos agregados
// por IP/alvo, mas não movem os totais por tipo.
func (r *Recorder) Record(t EventType, d Details) {
	ev := AbuseEvent{
		Type:     t,
		IP:       d.IP,
		Method:   d.Method,
		Path:     d.Path,
		Origin:   d.Origin,
		SecretID: d.SecretID,
		Reason:   d.Reason,
	}
	if ev.IP == "" {
		ev.IP = unknownIP
	}

	r.mu.Lock()
	ev.Timestamp = r.now()
	known := r.totals.inc(t)
	r.events.push(ev)

	if ev.IP != unknownIP {
		st, ok := r.ipStats[ev.IP]
		if !ok {
			st = &IPStat{}
			r.ipStats[ev.IP] = st
		}
		st.Total++
		switch t {
		case FailedAttempt:
			st.FailedAttempts++
		case CorsDenial:
			st.CorsDenials++
		case RateLimitHit:
			st.RateLimitHits++
		}
		st.LastSeen = ev.Timestamp
	}

	target := ev.Path
	if target == "" {
		target = ev.Origin
	}
	if target != "" {
		r.targetStats[target]++
	}
	r.mu.Unlock()

	if known {
		r.metrics.observeAbuse(t)
	}
	r.forward(ev)
}

func (r *Recorder) forward(ev AbuseEvent) {
	if len(r.sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.sinkTimeout)
	defer cancel()
	for _, s := range r.sinks {
		if err := s.Record(ctx, ev); err != nil {
			r.log.Warn().Err(err).Str("type", string(ev.Type)).Msg("abuse sink record failed")
		}
	}
}

// StartedAt devolve o instante de criação do Recorder.
func (r *Recorder) StartedAt() time.Time { return r.startedAt }

func (t *totals) inc(et EventType) bool {
	switch et {
	case FailedAttempt:
		t.failedAttempts++
	case CorsDenial:
		t.corsDenials++
	case RateLimitHit:
		t.rateLimitHits++
	default:
		return false
	}
	return true
}
