package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xau-data/internal/model"
)

func bar(t time.Time, close float64) model.Bar {
	return model.Bar{Time: t, Open: close - 1, High: close + 1, Low: close - 2, Close: close, Volume: 10}
}

func minute(i int) time.Time {
	return time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC)
}

func times(bars []model.Bar) []time.Time {
	out := make([]time.Time, len(bars))
	for i, b := range bars {
		out[i] = b.Time
	}
	return out
}

func TestMergeAppendsStrictlyNewerRows(t *testing.T) {
	existing := []model.Bar{bar(minute(0), 100), bar(minute(1), 101)}
	incoming := []model.Bar{bar(minute(1), 999), bar(minute(2), 102), bar(minute(3), 103)}

	res := Merge(existing, incoming)

	require.Equal(t, 2, res.Appended)
	assert.False(t, res.NoUpdate())
	assert.Equal(t, minute(1), res.HighWaterMark)
	assert.Equal(t, []time.Time{minute(0), minute(1), minute(2), minute(3)}, times(res.Bars))
	// The tie at the high-water-mark is dropped, so the existing bar survives.
	assert.Equal(t, 101.0, res.Bars[1].Close)
}

func TestMergeUnionOfTimestamps(t *testing.T) {
	existing := []model.Bar{bar(minute(0), 1), bar(minute(2), 2), bar(minute(4), 3)}
	incoming := []model.Bar{bar(minute(5), 4), bar(minute(7), 5)}

	res := Merge(existing, incoming)

	want := []time.Time{minute(0), minute(2), minute(4), minute(5), minute(7)}
	assert.Equal(t, want, times(res.Bars))
	assert.Equal(t, 2, res.Appended)
}

func TestMergeEmptyIncomingSignalsNoUpdate(t *testing.T) {
	existing := []model.Bar{bar(minute(2), 2), bar(minute(0), 1)} // unsorted on purpose

	res := Merge(existing, nil)

	assert.True(t, res.NoUpdate())
	assert.Equal(t, []time.Time{minute(0), minute(2)}, times(res.Bars), "order normalized ascending")
}

func TestMergeEmptyExisting(t *testing.T) {
	incoming := []model.Bar{bar(minute(3), 3), bar(minute(1), 1), bar(minute(3), 4)}

	res := Merge(nil, incoming)

	assert.True(t, res.HighWaterMark.IsZero())
	assert.Equal(t, []time.Time{minute(1), minute(3)}, times(res.Bars))
	assert.Equal(t, 4.0, res.Bars[1].Close, "last occurrence wins")
	assert.Equal(t, 2, res.Appended)
}

func TestMergeIdempotent(t *testing.T) {
	existing := []model.Bar{bar(minute(0), 1), bar(minute(1), 2)}
	incoming := []model.Bar{bar(minute(2), 3), bar(minute(3), 4)}

	first := Merge(existing, incoming)
	second := Merge(first.Bars, incoming)

	assert.Equal(t, first.Bars, second.Bars)
	assert.True(t, second.NoUpdate())
}

func TestMergeDuplicateMinuteKeepsLaterValue(t *testing.T) {
	// Existing snapshot ends 2024-01-01 00:00; fetch returns 00:01, 00:02,
	// 00:02 with a differing close on the duplicate minute.
	existing := []model.Bar{bar(minute(0), 100)}
	incoming := []model.Bar{bar(minute(1), 101), bar(minute(2), 102), bar(minute(2), 102.5)}

	res := Merge(existing, incoming)

	require.Equal(t, 2, res.Appended)
	require.Len(t, res.Bars, 3)
	assert.Equal(t, 102.5, res.Bars[2].Close)
}

func TestMergeKeepFirstPolicy(t *testing.T) {
	incoming := []model.Bar{bar(minute(1), 1), bar(minute(1), 2)}

	res := MergeWith(nil, incoming, KeepFirst)

	require.Len(t, res.Bars, 1)
	assert.Equal(t, 1.0, res.Bars[0].Close)
}

func TestMergeLastWriteWinsAtSharedTimestamp(t *testing.T) {
	// Two bars at t3 with differing values inside one input: defensive
	// deduplication keeps the later occurrence.
	t1, t2, t3, t4 := minute(1), minute(2), minute(3), minute(4)
	all := []model.Bar{bar(t1, 1), bar(t2, 2), bar(t3, 3), bar(t3, 33), bar(t4, 4)}

	res := Merge(nil, all)

	require.Equal(t, []time.Time{t1, t2, t3, t4}, times(res.Bars))
	assert.Equal(t, 33.0, res.Bars[2].Close)
}

func TestMergePreservesHistoryBounds(t *testing.T) {
	existing := []model.Bar{bar(minute(5), 1), bar(minute(10), 2)}
	incoming := []model.Bar{bar(minute(12), 3)}

	res := Merge(existing, incoming)

	assert.Equal(t, minute(5), res.Bars[0].Time, "min timestamp preserved")
	assert.Equal(t, minute(12), res.Bars[len(res.Bars)-1].Time, "max covers fetched rows")
}

func TestMergeStripsOffsetWhenSidesDisagree(t *testing.T) {
	// Existing is naive 00:05 wall-clock; incoming carries +02:00 offsets
	// with the same wall-clock convention. Offsets are stripped, not
	// converted, so 00:05+02:00 collides with naive 00:05.
	zone := time.FixedZone("EET", 2*3600)
	existing := []model.Bar{bar(minute(5), 1)}
	incoming := []model.Bar{
		{Time: time.Date(2024, 1, 1, 0, 5, 0, 0, zone), Close: 99},
		{Time: time.Date(2024, 1, 1, 0, 6, 0, 0, zone), Close: 100},
	}

	res := Merge(existing, incoming)

	require.Len(t, res.Bars, 2)
	assert.Equal(t, 1, res.Appended)
	assert.Equal(t, minute(6), res.Bars[1].Time)
}

func TestHighWaterMark(t *testing.T) {
	assert.True(t, HighWaterMark(nil).IsZero())
	bars := []model.Bar{bar(minute(3), 1), bar(minute(9), 2), bar(minute(5), 3)}
	assert.Equal(t, minute(9), HighWaterMark(bars))
}
