package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	patternsFile = "patterns.json"
	historyFile  = "history.jsonl"
)

// File persists the pattern cache as a single JSON document and the session
// history as append-only JSON lines. Every write goes through a temp file in
// the same directory followed by an atomic rename, so readers never observe
// a partially written document. A corrupt or missing file reads as empty.
type File struct {
	mu  sync.Mutex
	dir string
}

func OpenFile(baseDir string) (*File, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &File{dir: baseDir}, nil
}

// document is the on-disk shape of patterns.json: signature → entry, plus
// the transition table under ReservedTransitionsKey.
type document struct {
	patterns    map[string]PatternEntry
	transitions map[string]map[string]int
}

func (f *File) load() document {
	doc := document{
		patterns:    make(map[string]PatternEntry),
		transitions: make(map[string]map[string]int),
	}
	data, err := os.ReadFile(filepath.Join(f.dir, patternsFile))
	if err != nil {
		return doc
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return doc
	}
	for key, msg := range raw {
		if key == ReservedTransitionsKey {
			// Ignore errors: a malformed table reads as empty.
			json.Unmarshal(msg, &doc.transitions)
			continue
		}
		var e PatternEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			continue
		}
		doc.patterns[key] = e
	}
	return doc
}

func (f *File) save(doc document) error {
	raw := make(map[string]any, len(doc.patterns)+1)
	for sig, e := range doc.patterns {
		raw[sig] = e
	}
	if len(doc.transitions) > 0 {
		raw[ReservedTransitionsKey] = doc.transitions
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode patterns: %w", err)
	}
	return f.atomicWrite(patternsFile, data)
}

// atomicWrite writes data to a temp file in the store directory and renames
// it over name. Rename within a directory is atomic on POSIX filesystems.
func (f *File) atomicWrite(name string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(f.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (f *File) LookupPattern(sig string) (*PatternEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.load()
	e, ok := doc.patterns[sig]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *File) StorePattern(sig string, e PatternEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.load()
	if prev, ok := doc.patterns[sig]; ok {
		e.HitCount = prev.HitCount
	}
	doc.patterns[sig] = e
	return f.save(doc)
}

func (f *File) TouchPattern(sig string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.load()
	e, ok := doc.patterns[sig]
	if !ok {
		return nil
	}
	e.HitCount++
	e.LastUsed = time.Now().UTC()
	doc.patterns[sig] = e
	return f.save(doc)
}

func (f *File) AppendHistory(e HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	entries := f.loadHistory()
	var buf []byte
	for _, prev := range entries {
		prevLine, err := json.Marshal(prev)
		if err != nil {
			continue
		}
		buf = append(buf, prevLine...)
		buf = append(buf, '\n')
	}
	buf = append(buf, line...)
	buf = append(buf, '\n')
	return f.atomicWrite(historyFile, buf)
}

func (f *File) loadHistory() []HistoryEntry {
	file, err := os.Open(filepath.Join(f.dir, historyFile))
	if err != nil {
		return nil
	}
	defer file.Close()
	var entries []HistoryEntry
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e HistoryEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			// Skip truncated or corrupt lines.
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func (f *File) RecentHistory(limit int) ([]HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.loadHistory()
	n := len(entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]HistoryEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

func (f *File) BumpTransition(prev, curr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.load()
	row, ok := doc.transitions[prev]
	if !ok {
		row = make(map[string]int)
		doc.transitions[prev] = row
	}
	row[curr]++
	return f.save(doc)
}

func (f *File) Transitions() ([]Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.load()
	return sortTransitions(doc.transitions), nil
}

func (f *File) Stats() (Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.load()
	s := Stats{
		PatternCount: len(doc.patterns),
		HistoryCount: len(f.loadHistory()),
	}
	hot := make([]HotSignature, 0, len(doc.patterns))
	for sig, e := range doc.patterns {
		s.TotalHits += e.HitCount
		hot = append(hot, HotSignature{Signature: sig, HitCount: e.HitCount})
	}
	for _, row := range doc.transitions {
		s.TransitionPairs += len(row)
	}
	s.HottestSignatures = topHot(hot)
	return s, nil
}

func (f *File) Close() error { return nil }
