// Package dedup decides whether a parsed row is already stored.
package dedup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/store"

	"github.com/shopspring/decimal"
)

// Policy selects how repeated identical rows are treated.
type Policy string

const (
	// PolicyOccurrence admits the n-th identical row of a run when fewer
	// than n matches are stored.
	PolicyOccurrence Policy = "occurrence"
	// PolicyExact treats any stored match as a duplicate.
	PolicyExact Policy = "exact"
)

// ParsePolicy maps a configuration value to a Policy.
func ParsePolicy(v string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(v))) {
	case "", PolicyOccurrence:
		return PolicyOccurrence, nil
	case PolicyExact:
		return PolicyExact, nil
	default:
		return "", fmt.Errorf("unknown dedup policy %q", v)
	}
}

// Decision is the verdict for one draft.
type Decision struct {
	Duplicate  bool
	Occurrence int
	Existing   int
}

// Detector is scoped to one ingestion run: it counts identical rows seen so
// far in the run.
type Detector struct {
	store  store.TransactionStore
	policy Policy

	mu   sync.Mutex
	seen map[string]int
}

// NewDetector creates a detector with an empty run state.
func NewDetector(s store.TransactionStore, policy Policy) *Detector {
	if policy == "" {
		policy = PolicyOccurrence
	}
	return &Detector{store: s, policy: policy, seen: make(map[string]int)}
}

// Policy returns the active policy.
func (d *Detector) Policy() Policy {
	return d.policy
}

// Exists reports whether any transaction matches the four key fields.
func (d *Detector) Exists(ctx context.Context, userID string, date time.Time, description string, amount decimal.Decimal) (bool, error) {
	ok, err := d.store.TransactionExists(ctx, store.MatchKey{UserID: userID, Date: date, Description: description, Amount: amount})
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return ok, nil
}

// Check assigns draft.Metadata.Occurrence and reports whether the draft is
// already stored.
func (d *Detector) Check(ctx context.Context, draft *models.TransactionDraft) (Decision, error) {
	key := store.KeyOf(*draft)

	occurrence := 1
	if d.policy == PolicyOccurrence {
		d.mu.Lock()
		d.seen[key.String()]++
		occurrence = d.seen[key.String()]
		d.mu.Unlock()
	}
	draft.Metadata.Occurrence = occurrence

	existing, err := d.store.CountMatchingTransactions(ctx, key)
	if err != nil {
		d.Release(*draft)
		return Decision{Occurrence: occurrence}, fmt.Errorf("check duplicate: %w", err)
	}
	return Decision{
		Duplicate:  existing >= occurrence,
		Occurrence: occurrence,
		Existing:   existing,
	}, nil
}

// Release gives back the occurrence taken by Check for a draft that was
// not stored, so the next identical row of the run reuses it.
func (d *Detector) Release(draft models.TransactionDraft) {
	if d.policy != PolicyOccurrence {
		return
	}
	key := store.KeyOf(draft).String()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[key] <= 1 {
		delete(d.seen, key)
		return
	}
	d.seen[key]--
}

// Reset clears the run state.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]int)
}
