// Package reportsvc serializes attendance calendars to spreadsheet files.
package reportsvc

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/hazira/core"
	"github.com/trezcool/hazira/core/attendance"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"

	SheetName = "Attendance"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv"
)

var ErrUnsupportedFormat = errors.New("unsupported report format")

// FormatOf returns the report format matching the extension of path.
func FormatOf(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return CheckFormat(ext)
}

func CheckFormat(format string) (string, error) {
	switch format := strings.ToLower(format); format {
	case FormatXLSX, FormatCSV:
		return format, nil
	default:
		return "", core.NewValidationError(
			errors.Wrap(ErrUnsupportedFormat, format),
			core.FieldError{Field: "format", Error: "must be one of xlsx, csv"},
		)
	}
}

func ContentType(format string) string {
	if format == FormatCSV {
		return ContentTypeCSV
	}
	return ContentTypeXLSX
}

// Write writes cal to w in the given format.
func Write(w io.Writer, cal attendance.Calendar, format string) error {
	format, err := CheckFormat(format)
	if err != nil {
		return err
	}
	if format == FormatCSV {
		return WriteCSV(w, cal)
	}
	return WriteXLSX(w, cal)
}

// Export writes cal to dest, picking the format from its extension.
func Export(cal attendance.Calendar, dest string) (err error) {
	format, err := FormatOf(dest)
	if err != nil {
		return err
	}

	f, err := os.Create(dest)
	if err != nil {
		return core.NewIOError(err, dest)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = core.NewIOError(cErr, dest)
		}
	}()

	if err = Write(f, cal, format); err != nil {
		return core.NewIOError(err, dest)
	}
	return nil
}

func WriteXLSX(w io.Writer, cal attendance.Calendar) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName(file.GetSheetName(file.GetActiveSheetIndex()), SheetName); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}

	header := cal.Header()
	if err = file.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err = file.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return errors.Wrap(err, "styling header")
	}

	for i, row := range cal.Table() {
		row := row
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err = file.SetSheetRow(SheetName, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+1)
		}
	}

	if _, err = file.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing xlsx")
	}
	return nil
}

func WriteCSV(w io.Writer, cal attendance.Calendar) error {
	writer := gocsv.DefaultCSVWriter(w)
	if err := writer.Write(cal.Header()); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for i, row := range cal.Table() {
		if err := writer.Write(row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+1)
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "writing csv")
}

// Read reads back a report written by Export.
func Read(path string) (header []string, rows [][]string, err error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, nil, err
	}

	var table [][]string
	switch format {
	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, core.NewIOError(err, path)
		}
		defer func() { _ = f.Close() }()
		if table, err = gocsv.DefaultCSVReader(f).ReadAll(); err != nil {
			return nil, nil, core.NewIOError(err, path)
		}
	default:
		file, err := excelize.OpenFile(path)
		if err != nil {
			return nil, nil, core.NewIOError(err, path)
		}
		defer func() { _ = file.Close() }()
		if table, err = file.GetRows(file.GetSheetName(0)); err != nil {
			return nil, nil, core.NewIOError(err, path)
		}
	}

	if len(table) == 0 {
		return nil, nil, core.NewIOError(errors.New("empty report"), path)
	}
	return table[0], table[1:], nil
}
