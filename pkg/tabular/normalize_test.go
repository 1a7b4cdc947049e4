package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLeadingInt(t *testing.T) {
	cases := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"90", 90, true},
		{"  42", 42, true},
		{"90.5", 90, true},
		{"12abc", 12, true},
		{"-7", -7, true},
		{"+8", 8, true},
		{"0x1A", 26, true},
		{"", 0, false},
		{"abc", 0, false},
		{"-", 0, false},
		{"99999999999", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseLeadingInt(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	rec := Normalize(Row{HeaderStudentID: "S2", HeaderStudentName: "Bob", HeaderTotalMarks: "50", HeaderMarksObtained: ""})
	assert.Equal(t, Record{StudentID: "S2", StudentName: "Bob", TotalMarks: 50, MarksObtained: 0, Percentage: 0}, rec)

	rec = Normalize(Row{HeaderStudentID: "S3", HeaderStudentName: "Carol", HeaderMarksObtained: "80"})
	assert.Equal(t, 100, rec.TotalMarks)
	assert.Equal(t, 80.0, rec.Percentage)

	rec = Normalize(Row{HeaderTotalMarks: "n/a", HeaderMarksObtained: "x"})
	assert.Equal(t, DefaultTotalMarks, rec.TotalMarks)
	assert.Equal(t, DefaultMarksObtained, rec.MarksObtained)
	assert.Empty(t, rec.StudentID)
}

func TestNormalizeZeroTotalFallsBack(t *testing.T) {
	rec := Normalize(Row{HeaderTotalMarks: "0", HeaderMarksObtained: "45"})
	assert.Equal(t, 100, rec.TotalMarks)
	assert.Equal(t, 45.0, rec.Percentage)
}

func TestNormalizeKeepsNamesVerbatim(t *testing.T) {
	rec := Normalize(Row{HeaderStudentID: " S9 ", HeaderStudentName: "  Dana  "})
	assert.Equal(t, " S9 ", rec.StudentID)
	assert.Equal(t, "  Dana  ", rec.StudentName)
}

func TestPercentageGuardsZeroTotal(t *testing.T) {
	assert.Equal(t, 0.0, Percentage(10, 0))
	assert.Equal(t, 95.0, Percentage(95, 100))
	assert.InDelta(t, 33.333, Percentage(1, 3), 0.001)
}
