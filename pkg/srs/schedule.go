package srs

import (
	"sort"
	"time"
)

// baseInterval is the delay after the first successful review. Each
// further stage multiplies it by four: 30 min, 2 h, 8 h, 32 h, ...
const baseInterval = 30 * time.Minute

// maxShift caps the backoff exponent so the interval stays within the
// time.Duration range.
const maxShift = 22

// replay folds a review history into its stage and anchor time. A
// success raises the stage by one, a failure drops it by two with a
// floor of zero; either way the event time becomes the new anchor.
func replay(history []Review) (stage int, anchor time.Time) {
	for _, r := range history {
		if r.Success {
			stage++
		} else {
			stage -= 2
			if stage < 0 {
				stage = 0
			}
		}
		anchor = r.Time
	}
	return stage, anchor
}

// NextReview returns when the entry next becomes eligible for review,
// or nil when it is immediately available (stage zero or no reviews
// yet).
func NextReview(history []Review) *time.Time {
	stage, anchor := replay(history)
	if stage == 0 || anchor.IsZero() {
		return nil
	}
	shift := uint(2 * (stage - 1))
	if shift > maxShift {
		shift = maxShift
	}
	t := anchor.Add(baseInterval << shift)
	return &t
}

// Due identifies one entry that is eligible for review.
type Due struct {
	Type Type
	ID   string
	// ReviewTime is the entry's next-review time, or now for entries
	// with none. Available entries sort ascending by it.
	ReviewTime time.Time
}

// EntrySnapshot is the derived per-entry view.
type EntrySnapshot struct {
	History    []Review
	NextReview time.Time
}

// Snapshot is the materialized view over all entries, recomputed from
// persisted history on every mutation and never itself persisted.
type Snapshot struct {
	// SoonestReview is the minimum next-review time across all
	// entries, due or not. nil when there are no entries at all.
	SoonestReview *time.Time
	// Available lists the entries due now, soonest first.
	Available []Due
	State     map[Type]map[string]EntrySnapshot
}

// ComputeSnapshot derives the snapshot for state as of now. It is a
// pure function; the persisted history stays the single source of
// truth.
func ComputeSnapshot(now time.Time, state State) Snapshot {
	var soonest *time.Time
	var available []Due
	stateSnapshot := map[Type]map[string]EntrySnapshot{}

	for typ, entries := range state {
		for id, entry := range entries {
			next := NextReview(entry.History)

			effective := now
			if next != nil {
				effective = *next
			}
			if next == nil || !next.After(now) {
				available = append(available, Due{Type: typ, ID: id, ReviewTime: effective})
			}
			if soonest == nil || effective.Before(*soonest) {
				t := effective
				soonest = &t
			}

			if stateSnapshot[typ] == nil {
				stateSnapshot[typ] = map[string]EntrySnapshot{}
			}
			stateSnapshot[typ][id] = EntrySnapshot{History: entry.History, NextReview: effective}
		}
	}

	sort.Slice(available, func(i, j int) bool {
		return available[i].ReviewTime.Before(available[j].ReviewTime)
	})

	return Snapshot{SoonestReview: soonest, Available: available, State: stateSnapshot}
}
