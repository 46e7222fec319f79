package ingest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/resit-exam-api/pkg/validation"
)

func TestGradeRowsFromCSV(t *testing.T) {
	csvData := "\xef\xbb\xbfStudent_ID, Email ,Grade\n" +
		"17,,85\n" +
		",ali@uni.edu,DZ\n" +
		",,abc\n" +
		",,\n" +
		"x1,,70\n" +
		",not-an-email,55\n"

	table, err := ReadCSV(strings.NewReader(csvData))
	require.NoError(t, err)

	rows, err := NewParser(validation.New()).GradeRows(table)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	require.NotNil(t, rows[0].StudentID)
	assert.Equal(t, int64(17), *rows[0].StudentID)
	assert.Equal(t, "85", rows[0].Grade)
	assert.Equal(t, 1, rows[0].Line)
	assert.Empty(t, rows[0].Problem)

	require.NotNil(t, rows[1].Email)
	assert.Equal(t, "ali@uni.edu", rows[1].Identifier())
	assert.Equal(t, "DZ", rows[1].Grade)

	assert.Equal(t, "missing student_id or email", rows[2].Problem)
	assert.Equal(t, 3, rows[2].Line)

	assert.Equal(t, 5, rows[3].Line)
	assert.Equal(t, `invalid student_id "x1"`, rows[3].Problem)
	assert.Equal(t, `invalid email "not-an-email"`, rows[4].Problem)
}

func TestGradeRowsLineNumbers(t *testing.T) {
	parser := NewParser(validation.New())

	table, err := ReadCSV(strings.NewReader("student_id,grade\n1,80\n\n2,70\n,\n3,60\n"))
	require.NoError(t, err)
	rows, err := parser.GradeRows(table)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int{1, 2, 4}, []int{rows[0].Line, rows[1].Line, rows[2].Line})

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"student_id", "grade"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{1, 80}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{2, 70}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err = ReadXLSX(buf)
	require.NoError(t, err)
	rows, err = parser.GradeRows(table)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, 3, rows[1].Line)
}

func TestGradeRowsMissingColumns(t *testing.T) {
	parser := NewParser(nil)

	table, err := ReadCSV(strings.NewReader("name,grade\nAli,90\n"))
	require.NoError(t, err)
	_, err = parser.GradeRows(table)
	assert.True(t, errors.Is(err, ErrMissingColumn))

	table, err = ReadCSV(strings.NewReader("email,score\na@b.edu,90\n"))
	require.NoError(t, err)
	_, err = parser.GradeRows(table)
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptyFile))
}

func TestGradeRowsFromXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"email", "grade"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"ayse@uni.edu", 64}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"mert@uni.edu", "dz"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := Read(bytes.NewReader(buf.Bytes()), FormatXLSX)
	require.NoError(t, err)

	rows, err := NewParser(validation.New()).GradeRows(table)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ayse@uni.edu", rows[0].Identifier())
	assert.Equal(t, "64", rows[0].Grade)
	assert.Equal(t, "dz", rows[1].Grade)
}

func TestScheduleRows(t *testing.T) {
	csvData := "course_code,exam_date,location\n" +
		"CS101,2025-06-15,Hall A\n" +
		"CS102,2025-06-16 09:30,Lab 3\n" +
		",2025-06-17,Hall B\n" +
		"CS104,next week,Hall C\n" +
		"CS105,2025-06-18,\n"

	table, err := ReadCSV(strings.NewReader(csvData))
	require.NoError(t, err)

	rows, err := NewParser(nil).ScheduleRows(table)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, "CS101", rows[0].CourseCode)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), rows[0].ExamDate)
	assert.Equal(t, "Hall A", rows[0].Location)
	assert.Equal(t, time.Date(2025, 6, 16, 9, 30, 0, 0, time.UTC), rows[1].ExamDate)
	assert.Equal(t, "missing course_code", rows[2].Problem)
	assert.Equal(t, `invalid exam_date "next week"`, rows[3].Problem)
	assert.Equal(t, "missing location", rows[4].Problem)
}

func TestScheduleRowsMissingHeader(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("course_code,exam_date\nCS101,2025-06-15\n"))
	require.NoError(t, err)

	_, err = NewParser(nil).ScheduleRows(table)
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestParseExamDateExcelSerial(t *testing.T) {
	ts, err := ParseExamDate("45823")
	require.NoError(t, err)
	assert.Equal(t, 2025, ts.Year())
	assert.Equal(t, time.June, ts.Month())
	assert.Equal(t, 15, ts.Day())
}

func TestReadFileByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grades.csv")
	require.NoError(t, os.WriteFile(path, []byte("student_id,grade\n3,40\n"), 0o600))

	table, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)

	_, err = ReadFile(filepath.Join(dir, "grades.pdf"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}
