package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"email", "grade"},
		Rows: []map[string]string{
			{"email": "a@uni.test", "grade": "45"},
			{"email": "=HYPERLINK(\"x\")", "grade": ""},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"email", "grade"},
		{"a@uni.test", "45"},
		{"'=HYPERLINK(\"x\")", ""},
	}, records)
}

func TestCSVRenderBOM(t *testing.T) {
	out, err := (&CSVExporter{BOM: true}).Render(Dataset{Headers: []string{"a"}})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, utf8BOM))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
}

func TestPDFRenderPaginates(t *testing.T) {
	rows := make([]map[string]string, 0, 120)
	for i := 0; i < 120; i++ {
		rows = append(rows, map[string]string{"email": fmt.Sprintf("s%d@uni.test", i), "course_name": "Programlama Giriş"})
	}
	exporter := NewPDFExporter()
	exporter.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	out, err := exporter.Render(Dataset{Headers: []string{"email", "course_name"}, Rows: rows}, "Resit participants")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Greater(t, bytes.Count(out, []byte("/Type /Page\n")), 1)
}
