// Package ledger tracks consumed nonces and persisted payment records.
package ledger

import (
	"sync"
	"time"

	"github.com/0xmeta/newsgate/types"
)

// NonceRecord is the stored evidence that a nonce was consumed.
type NonceRecord struct {
	ConsumedAt time.Time
	PaymentKey string
}

// NonceLedger tracks consumed nonces per token contract. A nonce may be
// consumed at most once; this is the replay-protection boundary and the one
// serialization point of request handling.
type NonceLedger struct {
	mu       sync.Mutex
	consumed map[string]NonceRecord
}

// NewNonceLedger creates an empty nonce ledger.
func NewNonceLedger() *NonceLedger {
	return &NonceLedger{consumed: make(map[string]NonceRecord)}
}

// Consume atomically checks and marks the (token, nonce) pair as consumed.
// It returns false when the nonce was already consumed, in which case the
// caller must treat the authorization as a replay.
func (l *NonceLedger) Consume(token, nonce, paymentKey string) bool {
	key := types.NonceKey(token, nonce)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.consumed[key]; ok {
		return false
	}
	l.consumed[key] = NonceRecord{
		ConsumedAt: time.Now(),
		PaymentKey: paymentKey,
	}
	return true
}

// Lookup returns the consumption record for a (token, nonce) pair, if any.
func (l *NonceLedger) Lookup(token, nonce string) (NonceRecord, bool) {
	key := types.NonceKey(token, nonce)

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.consumed[key]
	return rec, ok
}

// Len returns the number of consumed nonces.
func (l *NonceLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.consumed)
}
