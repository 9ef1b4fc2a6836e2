// Package merge combines an existing snapshot with freshly fetched bars into
// one canonical, deduplicated, ascending-time dataset.
package merge

import (
	"sort"
	"time"

	"xau-data/internal/model"
)

// Policy selects which bar wins when two bars share a timestamp.
type Policy int

const (
	// KeepLast keeps the later occurrence in concatenation order, so a
	// fetched bar overrides a stale snapshot bar at the same timestamp.
	KeepLast Policy = iota
	// KeepFirst keeps the earlier occurrence.
	KeepFirst
)

// Result is the outcome of one merge.
type Result struct {
	Bars          []model.Bar
	Appended      int       // distinct timestamps added on top of existing
	HighWaterMark time.Time // max timestamp of existing before the merge; zero when existing was empty
}

// NoUpdate reports whether the merge added nothing, meaning the caller can
// skip publishing.
func (r Result) NoUpdate() bool { return r.Appended == 0 }

// Merge combines existing and incoming with the KeepLast policy.
func Merge(existing, incoming []model.Bar) Result {
	return MergeWith(existing, incoming, KeepLast)
}

// MergeWith merges incoming bars into existing:
//
//  1. high-water-mark = max existing timestamp (zero time when empty);
//  2. offsets are normalized to naive wall-clock when only one side carries
//     a non-zero zone offset (see stripOffsets);
//  3. incoming is filtered to strictly newer than the high-water-mark, a bar
//     at exactly the mark is assumed already present;
//  4. the concatenation is deduplicated by timestamp under the policy and
//     sorted ascending.
//
// Historical rows are never discarded: the result always contains every
// timestamp of existing.
func MergeWith(existing, incoming []model.Bar, p Policy) Result {
	existing, incoming = normalize(existing, incoming)
	hwm := HighWaterMark(existing)

	fresh := incoming
	if !hwm.IsZero() {
		fresh = make([]model.Bar, 0, len(incoming))
		for _, b := range incoming {
			if b.Time.After(hwm) {
				fresh = append(fresh, b)
			}
		}
	}

	merged := dedupe(append(append(make([]model.Bar, 0, len(existing)+len(fresh)), existing...), fresh...), p)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Time.Before(merged[j].Time) })

	seen := make(map[int64]struct{}, len(existing))
	for _, b := range existing {
		seen[b.Time.UnixNano()] = struct{}{}
	}
	appended := 0
	for _, b := range merged {
		if _, ok := seen[b.Time.UnixNano()]; !ok {
			appended++
		}
	}

	return Result{Bars: merged, Appended: appended, HighWaterMark: hwm}
}

// HighWaterMark returns the maximum timestamp in bars, or the zero time when
// bars is empty. The input need not be sorted.
func HighWaterMark(bars []model.Bar) time.Time {
	var max time.Time
	for _, b := range bars {
		if b.Time.After(max) {
			max = b.Time
		}
	}
	return max
}

// dedupe keeps one bar per timestamp under the given policy, preserving the
// input order of the survivors.
func dedupe(bars []model.Bar, p Policy) []model.Bar {
	byTime := make(map[int64]int, len(bars))
	out := bars[:0]
	for _, b := range bars {
		key := b.Time.UnixNano()
		if i, ok := byTime[key]; ok {
			if p == KeepLast {
				out[i] = b
			}
			continue
		}
		byTime[key] = len(out)
		out = append(out, b)
	}
	return out
}

// normalize strips zone offsets down to naive wall-clock, but only when the
// two sides disagree about carrying offsets. Both sides are assumed to use
// the same wall-clock convention; no conversion to UTC is attempted. This is
// a deliberate simplification inherited from the source system.
func normalize(existing, incoming []model.Bar) ([]model.Bar, []model.Bar) {
	exOff, inOff := hasOffset(existing), hasOffset(incoming)
	if exOff == inOff {
		return existing, incoming
	}
	if exOff {
		return stripOffsets(existing), incoming
	}
	return existing, stripOffsets(incoming)
}

func hasOffset(bars []model.Bar) bool {
	for _, b := range bars {
		if _, off := b.Time.Zone(); off != 0 {
			return true
		}
	}
	return false
}

// stripOffsets reinterprets each bar's wall-clock reading as offset-free.
func stripOffsets(bars []model.Bar) []model.Bar {
	out := make([]model.Bar, len(bars))
	for i, b := range bars {
		out[i] = b
		out[i].Time = stripOffset(b.Time)
	}
	return out
}

func stripOffset(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
