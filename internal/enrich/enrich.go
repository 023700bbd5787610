// Package enrich resolves radio IDs to full identity records through the
// two-stage ID → callsign → cluster lookup.
package enrich

import (
	"context"
	"errors"
	"log"

	"callwatch_roster/internal/radioid"
	"callwatch_roster/internal/roster"
)

// LookupByID and LookupByCallsign are the two swappable lookup capabilities.
// Tests substitute deterministic stand-ins.
type (
	LookupByID       func(ctx context.Context, id int) ([]radioid.Entry, error)
	LookupByCallsign func(ctx context.Context, callsign string) ([]radioid.Entry, error)
)

var errNoResult = errors.New("no result for radio ID")

// Enricher runs the lookup cascade one identifier at a time. Lookup failures
// are local: the identifier yields nothing and the loop moves on.
type Enricher struct {
	byID       LookupByID
	byCallsign LookupByCallsign
	onFailure  func(id int, err error)
}

func New(c *radioid.Client) *Enricher {
	return NewWithLookups(c.LookupByID, c.LookupByCallsign)
}

func NewWithLookups(byID LookupByID, byCallsign LookupByCallsign) *Enricher {
	return &Enricher{
		byID:       byID,
		byCallsign: byCallsign,
		onFailure:  func(id int, err error) { log.Printf("enrich %d skipped: %v", id, err) },
	}
}

// SetFailureHook replaces the default failure logging, e.g. to count failures.
func (e *Enricher) SetFailureHook(fn func(id int, err error)) {
	if fn != nil {
		e.onFailure = fn
	}
}

// Enrich resolves each ID to its full identity cluster. One callsign may own
// several radio IDs, so a single input ID can fan out into multiple records.
// The result is deduplicated by full-record equality.
func (e *Enricher) Enrich(ctx context.Context, ids []int) []roster.Record {
	var out []roster.Record
	seen := make(map[roster.Record]struct{})
	for _, id := range ids {
		for _, rec := range e.resolve(ctx, id) {
			if _, dup := seen[rec]; dup {
				continue
			}
			seen[rec] = struct{}{}
			out = append(out, rec)
		}
	}
	return out
}

// EnrichForGroup resolves IDs the same way but keeps only candidates whose
// radio ID is absent from the group roster, deduplicating by ID within the
// batch.
func (e *Enricher) EnrichForGroup(ctx context.Context, ids []int, group *roster.Roster) []roster.Record {
	var out []roster.Record
	seen := make(map[int]struct{})
	for _, id := range ids {
		for _, rec := range e.resolve(ctx, id) {
			if group.Contains(rec.RadioID) {
				continue
			}
			if _, dup := seen[rec.RadioID]; dup {
				continue
			}
			seen[rec.RadioID] = struct{}{}
			out = append(out, rec)
		}
	}
	return out
}

func (e *Enricher) resolve(ctx context.Context, id int) []roster.Record {
	entries, err := e.byID(ctx, id)
	if err != nil {
		e.onFailure(id, err)
		return nil
	}
	if len(entries) == 0 || entries[0].Callsign == "" {
		e.onFailure(id, errNoResult)
		return nil
	}
	cluster, err := e.byCallsign(ctx, entries[0].Callsign)
	if err != nil {
		e.onFailure(id, err)
		return nil
	}
	recs := make([]roster.Record, 0, len(cluster))
	for _, entry := range cluster {
		recs = append(recs, roster.Record{
			RadioID:   entry.ID,
			Callsign:  entry.Callsign,
			FirstName: entry.Fname,
			State:     entry.State,
		})
	}
	return recs
}
