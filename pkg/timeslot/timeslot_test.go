package timeslot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinutesOfAndFormat(t *testing.T) {
	t.Parallel()

	minutes, err := MinutesOf("14:30")
	require.NoError(t, err)
	assert.Equal(t, 870, minutes)
	assert.Equal(t, "14:30", FormatMinutes(870))
	assert.Equal(t, "09:05", FormatMinutes(545))

	_, err = MinutesOf("25:00")
	require.Error(t, err)
}

func TestSplitWindows(t *testing.T) {
	t.Parallel()

	windows, err := SplitWindows("14:00", "15:30", 30)
	require.NoError(t, err)
	require.Len(t, windows, 3)
	assert.Equal(t, Window{Start: "14:00", End: "14:30"}, windows[0])
	assert.Equal(t, Window{Start: "14:30", End: "15:00"}, windows[1])
	assert.Equal(t, Window{Start: "15:00", End: "15:30"}, windows[2])
}

func TestSplitWindowsRejectsUnaligned(t *testing.T) {
	t.Parallel()

	_, err := SplitWindows("14:00", "14:45", 30)
	require.Error(t, err)

	_, err = SplitWindows("14:10", "14:40", 30)
	require.Error(t, err)

	_, err = SplitWindows("15:00", "14:00", 30)
	require.Error(t, err)
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	// Partial, containing, contained.
	assert.True(t, Overlaps("14:15", "14:45", "14:00", "15:00"))
	assert.True(t, Overlaps("13:00", "16:00", "14:00", "15:00"))
	assert.True(t, Overlaps("14:15", "14:20", "14:00", "15:00"))
	// Touching edges are not overlaps.
	assert.False(t, Overlaps("13:00", "14:00", "14:00", "15:00"))
	assert.False(t, Overlaps("15:00", "16:00", "14:00", "15:00"))
}

func TestDatesBetween(t *testing.T) {
	t.Parallel()

	dates, err := DatesBetween("2025-03-30", "2025-04-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-30", "2025-03-31", "2025-04-01", "2025-04-02"}, dates)

	_, err = DatesBetween("2025-04-02", "2025-03-30")
	require.Error(t, err)
}

func TestWeekday(t *testing.T) {
	t.Parallel()

	// 2025-03-30 is a Sunday.
	weekday, err := Weekday("2025-03-30")
	require.NoError(t, err)
	assert.Equal(t, 0, weekday)
}

func TestCombineUTC(t *testing.T) {
	t.Parallel()

	at, err := CombineUTC("2025-03-30", "14:00")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-30T14:00:00Z", at.Format("2006-01-02T15:04:05Z07:00"))
}
