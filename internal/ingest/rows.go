package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
)

// Column names recognised in uploaded sheets.
const (
	ColumnStudentID  = "student_id"
	ColumnEmail      = "email"
	ColumnGrade      = "grade"
	ColumnCourseCode = "course_code"
	ColumnExamDate   = "exam_date"
	ColumnLocation   = "location"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

var examDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	"2006/01/02",
	"01-02-06",
	"1/2/2006",
	"1/2/06",
}

// GradeRow is one data row of a grade sheet after validation. Exactly one of
// StudentID and Email identifies the student unless Problem is set.
type GradeRow struct {
	Line      int
	StudentID *int64
	Email     *string
	Grade     string
	Problem   string
}

// Identifier renders the student identifier for messages.
func (r GradeRow) Identifier() string {
	switch {
	case r.StudentID != nil:
		return strconv.FormatInt(*r.StudentID, 10)
	case r.Email != nil:
		return *r.Email
	default:
		return ""
	}
}

// ScheduleRow is one data row of a resit schedule sheet after validation.
type ScheduleRow struct {
	Line       int
	CourseCode string
	ExamDate   time.Time
	Location   string
	Problem    string
}

// Parser validates raw sheet rows into typed records.
type Parser struct {
	validate *validator.Validate
}

// NewParser constructs a Parser.
func NewParser(validate *validator.Validate) *Parser {
	if validate == nil {
		validate = validator.New()
	}
	return &Parser{validate: validate}
}

// GradeRows validates a grade sheet. Header problems fail the whole sheet;
// row problems are attached to the row. Line numbers count data rows from 1,
// header excluded. Rows whose cells are all empty are skipped but keep their
// number; fully empty CSV lines never reach the table.
func (p *Parser) GradeRows(t *Table) ([]GradeRow, error) {
	if !t.Has(ColumnStudentID) && !t.Has(ColumnEmail) {
		return nil, fmt.Errorf("%w: %s or %s", ErrMissingColumn, ColumnStudentID, ColumnEmail)
	}
	if !t.Has(ColumnGrade) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnGrade)
	}

	rows := make([]GradeRow, 0, len(t.Rows))
	for i, raw := range t.Rows {
		if blank(raw) {
			continue
		}
		rows = append(rows, p.gradeRow(t, raw, i+1))
	}
	return rows, nil
}

func (p *Parser) gradeRow(t *Table, raw []string, line int) GradeRow {
	row := GradeRow{Line: line, Grade: t.Value(raw, ColumnGrade)}

	studentID := t.Value(raw, ColumnStudentID)
	email := t.Value(raw, ColumnEmail)
	switch {
	case studentID != "":
		id, err := strconv.ParseInt(studentID, 10, 64)
		if err != nil || id <= 0 {
			row.Problem = fmt.Sprintf("invalid student_id %q", studentID)
			return row
		}
		row.StudentID = &id
	case email != "":
		email = strings.ToLower(email)
		if err := p.validate.Var(email, "email"); err != nil {
			row.Problem = fmt.Sprintf("invalid email %q", email)
			return row
		}
		row.Email = &email
	default:
		row.Problem = "missing student_id or email"
	}
	return row
}

// ScheduleRows validates a resit schedule sheet.
func (p *Parser) ScheduleRows(t *Table) ([]ScheduleRow, error) {
	for _, col := range []string{ColumnCourseCode, ColumnExamDate, ColumnLocation} {
		if !t.Has(col) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	rows := make([]ScheduleRow, 0, len(t.Rows))
	for i, raw := range t.Rows {
		if blank(raw) {
			continue
		}
		rows = append(rows, scheduleRow(t, raw, i+1))
	}
	return rows, nil
}

func scheduleRow(t *Table, raw []string, line int) ScheduleRow {
	row := ScheduleRow{
		Line:       line,
		CourseCode: t.Value(raw, ColumnCourseCode),
		Location:   t.Value(raw, ColumnLocation),
	}
	if row.CourseCode == "" {
		row.Problem = "missing course_code"
		return row
	}
	if row.Location == "" {
		row.Problem = "missing location"
		return row
	}
	date, err := ParseExamDate(t.Value(raw, ColumnExamDate))
	if err != nil {
		row.Problem = err.Error()
		return row
	}
	row.ExamDate = date
	return row
}

// ParseExamDate accepts ISO dates with optional time, a few spreadsheet
// renderings, and raw Excel serial numbers.
func ParseExamDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing exam_date")
	}
	for _, layout := range examDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
		if ts, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid exam_date %q", raw)
}
