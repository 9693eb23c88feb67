package telemetry

import (
	"net/url"
	"sort"
	"strconv"
	"time"
)

const (
	DefaultRecentLimit = 50
	DefaultHotLimit    = 10
	DefaultTargetLimit = 10
)

// Limits controla o tamanho das listas do snapshot.
// Valores não positivos caem nos defaults (50/10/10).
type Limits struct {
	Recent int
	Hot    int
	Target int
}

// ParseLimits lê recentLimit, hotLimit e targetLimit da query string.
// Valores ausentes, não numéricos ou não positivos viram o default.
func ParseLimits(q url.Values) Limits {
	return Limits{
		Recent: positiveInt(q.Get("recentLimit"), DefaultRecentLimit),
		Hot:    positiveInt(q.Get("hotLimit"), DefaultHotLimit),
		Target: positiveInt(q.Get("targetLimit"), DefaultTargetLimit),
	}
}

func (l Limits) normalized() Limits {
	if l.Recent <= 0 {
		l.Recent = DefaultRecentLimit
	}
	if l.Hot <= 0 {
		l.Hot = DefaultHotLimit
	}
	if l.Target <= 0 {
		l.Target = DefaultTargetLimit
	}
	return l
}

func positiveInt(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

type Totals struct {
	FailedAttempts int64 `json:"failedAttempts"`
	CorsDenials    int64 `json:"corsDenials"`
	RateLimitHits  int64 `json:"rateLimitHits"`
	TotalEvents    int64 `json:"totalEvents"`
}

type HotIP struct {
	IP             string    `json:"ip"`
	Total          int64     `json:"total"`
	FailedAttempts int64     `json:"failedAttempts"`
	CorsDenials    int64     `json:"corsDenials"`
	RateLimitHits  int64     `json:"rateLimitHits"`
	LastSeen       time.Time `json:"lastSeen"`
}

type TargetCount struct {
	Target string `json:"target"`
	Count  int64  `json:"count"`
}

// AbuseSnapshot é uma cópia desacoplada do estado do Recorder.
type AbuseSnapshot struct {
	StartedAt     time.Time     `json:"startedAt"`
	GeneratedAt   time.Time     `json:"generatedAt"`
	UptimeSeconds int64         `json:"uptimeSeconds"`
	Totals        Totals        `json:"totals"`
	HotIPs        []HotIP       `json:"hotIps"`
	TopTargets    []TargetCount `json:"topTargets"`
	RecentEvents  []AbuseEvent  `json:"recentEvents"`
}

// Snapshot é uma leitura pura. A ordem entre empates no ranking não é definida.
func (r *Recorder) Snapshot(l Limits) AbuseSnapshot {
	l = l.normalized()

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	t := r.totals

	hot := make([]HotIP, 0, len(r.ipStats))
	for ip, st := range r.ipStats {
		hot = append(hot, HotIP{
			IP:             ip,
			Total:          st.Total,
			FailedAttempts: st.FailedAttempts,
			CorsDenials:    st.CorsDenials,
			RateLimitHits:  st.RateLimitHits,
			LastSeen:       st.LastSeen,
		})
	}
	sort.Slice(hot, func(i, j int) bool { return hot[i].Total > hot[j].Total })
	if len(hot) > l.Hot {
		hot = hot[:l.Hot]
	}

	targets := make([]TargetCount, 0, len(r.targetStats))
	for target, n := range r.targetStats {
		targets = append(targets, TargetCount{Target: target, Count: n})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Count > targets[j].Count })
	if len(targets) > l.Target {
		targets = targets[:l.Target]
	}

	return AbuseSnapshot{
		StartedAt:     r.startedAt,
		GeneratedAt:   now,
		UptimeSeconds: int64(now.Sub(r.startedAt) / time.Second),
		Totals: Totals{
			FailedAttempts: t.failedAttempts,
			CorsDenials:    t.corsDenials,
			RateLimitHits:  t.rateLimitHits,
			TotalEvents:    t.failedAttempts + t.corsDenials + t.rateLimitHits,
		},
		HotIPs:       hot,
		TopTargets:   targets,
		RecentEvents: r.events.newest(l.Recent),
	}
}
