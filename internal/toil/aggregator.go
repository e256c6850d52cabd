package toil

import "time"

type pairKey struct {
	actor    string
	category string
}

// Aggregator counts acknowledgements per actor and category, ignoring any
// event that lands within the quiet window of the last counted event for the
// same pair. Lookups never create entries; a pair that has not counted
// anything yet always counts its next event.
//
// Record must be called in non-decreasing time order per pair. Read the
// results only after the last Record call.
type Aggregator struct {
	quietWindow time.Duration
	lastCounted map[pairKey]time.Time
	counts      map[pairKey]int
	totals      map[string]float64
	actors      []string
}

func NewAggregator(quietWindow time.Duration) *Aggregator {
	return &Aggregator{
		quietWindow: quietWindow,
		lastCounted: make(map[pairKey]time.Time),
		counts:      make(map[pairKey]int),
		totals:      make(map[string]float64),
	}
}

// Record reports whether the event was counted. A counted event adds
// unitValue to the actor's total.
func (a *Aggregator) Record(actor, category string, at time.Time, unitValue float64) bool {
	key := pairKey{actor: actor, category: category}
	if last, seen := a.lastCounted[key]; seen && at.Sub(last) <= a.quietWindow {
		return false
	}
	a.lastCounted[key] = at
	a.counts[key]++
	if _, ok := a.totals[actor]; !ok {
		a.actors = append(a.actors, actor)
	}
	a.totals[actor] += unitValue
	return true
}

func (a *Aggregator) Count(actor, category string) int {
	return a.counts[pairKey{actor: actor, category: category}]
}

func (a *Aggregator) Total(actor string) float64 {
	return a.totals[actor]
}

// Actors lists every actor with at least one counted event, in the order
// they first counted.
func (a *Aggregator) Actors() []string {
	return append([]string(nil), a.actors...)
}
