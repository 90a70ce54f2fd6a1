package observability

import (
	"sync"
)

// Metrics provides basic in-memory counters for coordination outcomes.
type Metrics struct {
	mu          sync.Mutex
	claimsWon   int64
	claimsLost  int64
	transitions map[string]int64
	offers      map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		transitions: make(map[string]int64),
		offers:      make(map[string]int64),
	}
}

// RecordClaim counts a claim attempt outcome.
func (m *Metrics) RecordClaim(won bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if won {
		m.claimsWon++
	} else {
		m.claimsLost++
	}
}

// RecordTransition counts an applied status transition.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[from+"->"+to]++
}

// RecordOffer counts a dispatcher offer outcome (presented, accepted,
// rejected, lost).
func (m *Metrics) RecordOffer(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offers[outcome]++
}

// Snapshot returns a copy of the counters for the health endpoint.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{
		"claims_won":  m.claimsWon,
		"claims_lost": m.claimsLost,
	}
	for k, v := range m.transitions {
		out["transition:"+k] = v
	}
	for k, v := range m.offers {
		out["offer:"+k] = v
	}
	return out
}
