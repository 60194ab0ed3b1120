package gojafutures

import "sync"

// handleTable maps integer correlation tokens to in-flight conversion state.
// The JS boundary only carries primitives, so live Go references are parked
// here and addressed by token. take removes on lookup, which makes releasing
// the lookup itself: a second settlement attempt finds nothing instead of a
// stale reference, and count() exposes leaks directly.
type handleTable struct {
	mu   sync.Mutex
	m    map[int64]any
	next int64
}

func (t *handleTable) init() {
	t.m = make(map[int64]any)
}

// put stores v and returns its token. Tokens are never reused.
func (t *handleTable) put(v any) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	tok := t.next
	t.m[tok] = v
	return tok
}

// get returns the value for tok without releasing it.
func (t *handleTable) get(tok int64) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.m[tok]
	return v, ok
}

// take returns the value for tok and releases it. Exactly one take succeeds
// per put.
func (t *handleTable) take(tok int64) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.m[tok]
	if ok {
		delete(t.m, tok)
	}
	return v, ok
}

func (t *handleTable) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}
