package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hazira/core"
)

func record(t *testing.T, course, key string, mark Mark) Record {
	t.Helper()
	k, err := ParseSessionKey(key)
	require.NoError(t, err)
	return Record{Course: course, Key: k, Mark: mark}
}

func TestBuildCalendar(t *testing.T) {
	tt := testTimetable(t)

	t.Run("no records", func(t *testing.T) {
		cal := BuildCalendar(tt, 42, nil)
		assert.Equal(t, []string{"Date", "0900", "1000", "1100"}, cal.Header())
		assert.Empty(t, cal.Rows)
		assert.Empty(t, cal.Skipped)
	})

	t.Run("scheduled session", func(t *testing.T) {
		cal := BuildCalendar(tt, 42, []Record{record(t, "CS101", "05-06-2023-900", Present)})
		require.Len(t, cal.Rows, 1)
		assert.Equal(t, CalendarRow{Date: "05-06-2023", Cells: []string{"CS101: P", "-", "-"}}, cal.Rows[0])
		assert.Empty(t, cal.Unscheduled)

		cell, ok := cal.Cell("05-06-2023", "0900")
		assert.True(t, ok)
		assert.Equal(t, "CS101: P", cell)
		_, ok = cal.Cell("06-06-2023", "0900")
		assert.False(t, ok)
	})

	t.Run("rows in encounter order", func(t *testing.T) {
		cal := BuildCalendar(tt, 42, []Record{
			record(t, "MA201", "06-06-2023-1000", Absent),
			record(t, "CS101", "05-06-2023-0900", Present),
			record(t, "CS101", "06-06-2023-1100", Present),
			record(t, "MA201", "05-06-2023-1000", Present),
		})
		assert.Equal(t, [][]string{
			{"06-06-2023", "-", "MA201: A", "CS101: P"},
			{"05-06-2023", "CS101: P", "MA201: P", "-"},
		}, cal.Table())
	})

	t.Run("recorded course wins over the timetable", func(t *testing.T) {
		// Monday 1000 is MA201, Tuesday 0900 is free
		rec1 := record(t, "CS101", "05-06-2023-1000", Present)
		rec2 := record(t, "CS101", "06-06-2023-0900", Absent)
		cal := BuildCalendar(tt, 42, []Record{rec1, rec2})

		cell, _ := cal.Cell("05-06-2023", "1000")
		assert.Equal(t, "CS101: P", cell)
		cell, _ = cal.Cell("06-06-2023", "0900")
		assert.Equal(t, "CS101: A", cell)
		assert.Equal(t, []Record{rec1, rec2}, cal.Unscheduled)
	})

	t.Run("unknown slot is skipped", func(t *testing.T) {
		rec := record(t, "CS101", "05-06-2023-1400", Present)
		cal := BuildCalendar(tt, 42, []Record{rec, record(t, "CS101", "05-06-2023-0900", Absent)})

		require.Len(t, cal.Skipped, 1)
		assert.Equal(t, rec, cal.Skipped[0].Record)
		assert.True(t, core.IsLookupError(cal.Skipped[0].Err))
		assert.Equal(t, [][]string{{"05-06-2023", "CS101: A", "-", "-"}}, cal.Table())
	})

	t.Run("date with only skipped records has no row", func(t *testing.T) {
		skipped := record(t, "CS101", "07-06-2023-1400", Present)
		cal := BuildCalendar(tt, 42, []Record{
			record(t, "CS101", "05-06-2023-0900", Present),
			skipped,
			record(t, "MA201", "06-06-2023-1000", Absent),
		})

		require.Len(t, cal.Skipped, 1)
		assert.Equal(t, skipped, cal.Skipped[0].Record)
		assert.Equal(t, [][]string{
			{"05-06-2023", "CS101: P", "-", "-"},
			{"06-06-2023", "-", "MA201: A", "-"},
		}, cal.Table())
		_, ok := cal.Cell("07-06-2023", "0900")
		assert.False(t, ok)
	})

	t.Run("idempotent", func(t *testing.T) {
		records := []Record{
			record(t, "CS101", "05-06-2023-900", Present),
			record(t, "MA201", "06-06-2023-1000", Absent),
		}
		assert.Equal(t, BuildCalendar(tt, 42, records), BuildCalendar(tt, 42, records))
	})
}
