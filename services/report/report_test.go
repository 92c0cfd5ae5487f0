package reportsvc

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/attendance"
)

func testCalendar(t *testing.T) attendance.Calendar {
	t.Helper()
	tt, err := attendance.NewTimetable(
		[]string{"0900", "1000"},
		map[time.Weekday][]string{time.Monday: {"CS101", "MA201"}, time.Tuesday: {"MA201"}},
	)
	require.NoError(t, err)

	var records []attendance.Record
	for _, r := range []struct{ course, key string }{
		{"CS101", "05-06-2023-0900"},
		{"MA201", "06-06-2023-0900"},
		{"MA201", "05-06-2023-1000"},
	} {
		key, err := attendance.ParseSessionKey(r.key)
		require.NoError(t, err)
		records = append(records, attendance.Record{Course: r.course, Key: key, Mark: attendance.Present})
	}
	return attendance.BuildCalendar(tt, 42, records)
}

func TestExportRead(t *testing.T) {
	cal := testCalendar(t)
	dir := t.TempDir()

	for _, name := range []string{"report.xlsx", "report.csv", "REPORT.XLSX"} {
		t.Run(name, func(t *testing.T) {
			dest := filepath.Join(dir, name)
			require.NoError(t, Export(cal, dest))

			header, rows, err := Read(dest)
			require.NoError(t, err)
			assert.Equal(t, []string{"Date", "0900", "1000"}, header)
			assert.Equal(t, [][]string{
				{"05-06-2023", "CS101: P", "MA201: P"},
				{"06-06-2023", "MA201: P", "-"},
			}, rows)
		})
	}
}

func TestExport_Errors(t *testing.T) {
	cal := testCalendar(t)

	err := Export(cal, filepath.Join(t.TempDir(), "report.pdf"))
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr))

	err = Export(cal, filepath.Join(t.TempDir(), "missing", "report.xlsx"))
	assert.True(t, core.IsIOError(err))

	_, _, err = Read(filepath.Join(t.TempDir(), "nope.csv"))
	assert.True(t, core.IsIOError(err))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testCalendar(t), "CSV"))
	assert.Equal(t, strings.Join([]string{
		"Date,0900,1000",
		"05-06-2023,CS101: P,MA201: P",
		"06-06-2023,MA201: P,-",
		"",
	}, "\n"), buf.String())

	assert.Equal(t, ContentTypeCSV, ContentType(FormatCSV))
	assert.Error(t, Write(&buf, testCalendar(t), "ods"))
}
