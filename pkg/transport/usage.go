package transport

import "sync"

// TokenCount holds input and output token counts for a single exchange.
type TokenCount struct {
	InputTokens  int
	OutputTokens int
}

// Total returns the sum of input and output tokens.
func (tc TokenCount) Total() int {
	return tc.InputTokens + tc.OutputTokens
}

// Tracker accumulates token usage across exchanges. Safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	last  TokenCount
	total TokenCount
	calls int
}

// Add records the usage of one exchange.
func (t *Tracker) Add(tc TokenCount) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = tc
	t.total.InputTokens += tc.InputTokens
	t.total.OutputTokens += tc.OutputTokens
	t.calls++
}

// Last returns the most recent entry; the bool is false when none exist.
func (t *Tracker) Last() (TokenCount, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.last, t.calls > 0
}

// Total returns the aggregate token count across all entries.
func (t *Tracker) Total() TokenCount {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.total
}

// Calls returns the number of recorded exchanges.
func (t *Tracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.calls
}

// Reset clears the tracker.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = TokenCount{}
	t.total = TokenCount{}
	t.calls = 0
}
