package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLetterRendererRender(t *testing.T) {
	renderer := NewLetterRenderer()

	payload, err := renderer.Render(Letter{
		Letterhead: "Maple Grove Academy",
		Date:       time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC),
		Recipient:  "The family of Quinn Barrow",
		Subject:    "Offer of Admission",
		Paragraphs: []string{"We are pleased to offer Quinn a place for 2026-2027."},
		SignedBy:   "Office of Admissions",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestLetterRendererRequiresBody(t *testing.T) {
	renderer := NewLetterRenderer()

	_, err := renderer.Render(Letter{Subject: "Offer of Admission"})
	assert.Error(t, err)
}

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"student", "status"},
		Rows: []map[string]string{
			{"student": "Quinn Barrow", "status": "ACCEPTED"},
			{"student": "Rory Barrow"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "student,status", lines[0])
	assert.Equal(t, "Quinn Barrow,ACCEPTED", lines[1])
	assert.Equal(t, "Rory Barrow,", lines[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	assert.Error(t, err)
}
