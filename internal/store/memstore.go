package store

import (
	"sort"
	"sync"
	"time"
)

// Memory is an in-process store. Used by tests and as a fallback when no
// state directory is writable.
type Memory struct {
	mu          sync.Mutex
	patterns    map[string]PatternEntry
	history     []HistoryEntry
	transitions map[string]map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		patterns:    make(map[string]PatternEntry),
		transitions: make(map[string]map[string]int),
	}
}

func (m *Memory) LookupPattern(sig string) (*PatternEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.patterns[sig]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) StorePattern(sig string, e PatternEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.patterns[sig]; ok {
		e.HitCount = prev.HitCount
	}
	m.patterns[sig] = e
	return nil
}

func (m *Memory) TouchPattern(sig string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.patterns[sig]
	if !ok {
		return nil
	}
	e.HitCount++
	e.LastUsed = time.Now().UTC()
	m.patterns[sig] = e
	return nil
}

func (m *Memory) AppendHistory(e HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, e)
	return nil
}

func (m *Memory) RecentHistory(limit int) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]HistoryEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.history[i])
	}
	return out, nil
}

func (m *Memory) BumpTransition(prev, curr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.transitions[prev]
	if !ok {
		row = make(map[string]int)
		m.transitions[prev] = row
	}
	row[curr]++
	return nil
}

func (m *Memory) Transitions() ([]Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortTransitions(m.transitions), nil
}

func (m *Memory) Stats() (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		PatternCount: len(m.patterns),
		HistoryCount: len(m.history),
	}
	hot := make([]HotSignature, 0, len(m.patterns))
	for sig, e := range m.patterns {
		s.TotalHits += e.HitCount
		hot = append(hot, HotSignature{Signature: sig, HitCount: e.HitCount})
	}
	for _, row := range m.transitions {
		s.TransitionPairs += len(row)
	}
	s.HottestSignatures = topHot(hot)
	return s, nil
}

func (m *Memory) Close() error { return nil }

func sortTransitions(table map[string]map[string]int) []Transition {
	var out []Transition
	for prev, row := range table {
		for curr, count := range row {
			out = append(out, Transition{Prev: prev, Curr: curr, Count: count})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Prev != out[j].Prev {
			return out[i].Prev < out[j].Prev
		}
		return out[i].Curr < out[j].Curr
	})
	return out
}

func topHot(hot []HotSignature) []HotSignature {
	sort.Slice(hot, func(i, j int) bool {
		if hot[i].HitCount != hot[j].HitCount {
			return hot[i].HitCount > hot[j].HitCount
		}
		return hot[i].Signature < hot[j].Signature
	})
	if len(hot) > maxHotSignatures {
		hot = hot[:maxHotSignatures]
	}
	return hot
}
