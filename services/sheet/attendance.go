// Package sheetsvc reads and writes attendance spreadsheets (XLSX).
package sheetsvc

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/academia/core/attendance"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	colDate      = "Date"
	colStudentID = "Student ID"
	colStudent   = "Student"
	colStatus    = "Status"
)

var (
	// errors
	ErrNoSheet       = errors.New("the spreadsheet has no sheet")
	ErrMissingColumn = errors.New(`the header row must have "Student ID" and "Status" columns`)
)

// WriteAttendance writes records to w as a single-sheet workbook, one row per record after the header.
func WriteAttendance(w io.Writer, records []attendance.Attendance) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = errors.Wrap(cErr, "closing workbook")
		}
	}()
	sheet := f.GetSheetName(0)

	header := []interface{}{colDate, colStudentID, colStudent, colStatus}
	if err = f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for i, att := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{att.Date, att.StudentID, att.StudentName, string(att.Status)}
		if err = f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}
	return f.Write(w)
}

// ReadBulkRecords reads the (student, status) pairs of the first sheet of r.
// Columns are located by the header row, so a file produced by WriteAttendance can be read back.
// Rows without a student id are skipped.
func ReadBulkRecords(r io.Reader) ([]attendance.BulkRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening spreadsheet")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", sheet)
	}
	if len(rows) == 0 {
		return nil, ErrMissingColumn
	}

	idCol, statusCol := -1, -1
	for i, name := range rows[0] {
		switch strings.TrimSpace(name) {
		case colStudentID:
			idCol = i
		case colStatus:
			statusCol = i
		}
	}
	if idCol < 0 || statusCol < 0 {
		return nil, ErrMissingColumn
	}

	records := make([]attendance.BulkRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		id := cellAt(row, idCol)
		if id == "" {
			continue
		}
		records = append(records, attendance.BulkRecord{
			StudentID: id,
			Status:    attendance.Status(strings.ToUpper(cellAt(row, statusCol))),
		})
	}
	return records, nil
}

// cellAt returns the trimmed cell i of row; GetRows drops trailing empty cells.
func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
