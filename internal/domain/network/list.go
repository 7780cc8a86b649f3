package network

import (
	"fmt"
	"sync"

	sharedErrors "github.com/khanhnv2901/wisafe/internal/shared/errors"
)

// List is the locally held result of the most recent scan. All mutations go
// through its methods so the OPEN and rogue AP invariants hold after each one.
type List struct {
	mu      sync.RWMutex
	records []Record
}

// NewList returns an empty list
func NewList() *List {
	return &List{}
}

// Replace swaps the whole list for records, normalizing them first
func (l *List) Replace(records []Record) {
	cp := make([]Record, len(records))
	copy(cp, records)
	NormalizeAll(cp)

	l.mu.Lock()
	l.records = cp
	l.mu.Unlock()
}

// Records returns a copy of the current list
func (l *List) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records held
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Find returns the record matching key
func (l *List) Find(key Key) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexOf(key); i >= 0 {
		return l.records[i], true
	}
	return Record{}, false
}

// ApplyCheckStatus records the outcome of a synchronous security check
func (l *List) ApplyCheckStatus(key Key, status CheckStatus) error {
	return l.update(key, func(r *Record) {
		r.CheckStatus = status
	})
}

// ApplyCrackResult marks the record vulnerable and stores the recovered
// passphrase
func (l *List) ApplyCrackResult(key Key, password string) error {
	return l.update(key, func(r *Record) {
		r.CheckStatus = CheckVulnerable
		r.CrackedPassword = password
	})
}

// ApplyKrackResult stores the KRACK verdict for the record
func (l *List) ApplyKrackResult(key Key, vulnerable bool) error {
	return l.update(key, func(r *Record) {
		r.KrackChecked = true
		r.KrackVulnerable = vulnerable
	})
}

func (l *List) update(key Key, mutate func(*Record)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(key)
	if i < 0 {
		return fmt.Errorf("%w: %s (%s)", sharedErrors.ErrNetworkNotFound, key.SSID, key.BSSID)
	}
	mutate(&l.records[i])
	l.records[i].Normalize()
	return nil
}

func (l *List) indexOf(key Key) int {
	for i := range l.records {
		if l.records[i].Key() == key {
			return i
		}
	}
	return -1
}
