package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "grades.csv",
		Headers: []string{"Student_ID", "Student_Name", "Percentage"},
		Rows: []map[string]string{
			{"Student_ID": "S1", "Student_Name": "Alice, A.", "Percentage": "90.00"},
			{"Student_ID": "S2", "Student_Name": "Bob"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Student_ID,Student_Name,Percentage\nS1,\"Alice, A.\",90.00\nS2,Bob,\n", string(out))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Equal(t, "application/pdf", NewPDFExporter().ContentType())
	assert.Equal(t, ".csv", NewCSVExporter().Extension())
}
