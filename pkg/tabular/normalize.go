// Package tabular turns spreadsheet and CSV grade sheets into normalized student rows.
package tabular

import (
	"strconv"
	"strings"
	"unicode"
)

// Column headers accepted in uploaded sheets. Matching is case-sensitive.
const (
	HeaderStudentID     = "Student_ID"
	HeaderStudentName   = "Student_Name"
	HeaderTotalMarks    = "Total_Marks"
	HeaderMarksObtained = "Marks_Obtained"
)

// Defaults applied when a marks cell is missing, unparseable or zero.
const (
	DefaultTotalMarks    = 100
	DefaultMarksObtained = 0
)

// Headers lists the accepted columns in their canonical order.
var Headers = []string{HeaderStudentID, HeaderStudentName, HeaderTotalMarks, HeaderMarksObtained}

// Row maps a header cell to the raw cell value of one data row. Absent cells have no key.
type Row map[string]string

// Record is a normalized grade row ready to be persisted.
type Record struct {
	StudentID     string
	StudentName   string
	TotalMarks    int
	MarksObtained int
	Percentage    float64
}

// Normalize maps a raw row onto a Record. Identifier and name are copied verbatim.
func Normalize(row Row) Record {
	total := intOrDefault(row[HeaderTotalMarks], DefaultTotalMarks)
	obtained := intOrDefault(row[HeaderMarksObtained], DefaultMarksObtained)
	return Record{
		StudentID:     row[HeaderStudentID],
		StudentName:   row[HeaderStudentName],
		TotalMarks:    total,
		MarksObtained: obtained,
		Percentage:    Percentage(obtained, total),
	}
}

// NormalizeAll normalizes rows preserving order.
func NormalizeAll(rows []Row) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Normalize(row))
	}
	return records
}

// Percentage returns obtained/total*100, or 0 when total is zero.
func Percentage(obtained, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(obtained) / float64(total) * 100
}

// intOrDefault treats a zero parse the same as a failed parse.
func intOrDefault(raw string, fallback int) int {
	v, ok := ParseLeadingInt(raw)
	if !ok || v == 0 {
		return fallback
	}
	return v
}

// ParseLeadingInt reads the integer prefix of raw the way spreadsheet exports are usually
// read by browsers: leading whitespace and an optional sign are skipped, a 0x prefix
// switches to hexadecimal, and parsing stops at the first non-digit. "90.5" yields 90 and
// "12abc" yields 12. Values outside the 32-bit range are reported as unparseable.
func ParseLeadingInt(raw string) (int, bool) {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	sign := ""
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = "-"
		}
		s = s[1:]
	}
	base := 10
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}
	end := 0
	for end < len(s) && isDigit(s[end], base) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(sign+s[:end], base, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func isDigit(b byte, base int) bool {
	switch {
	case b >= '0' && b <= '9':
		return true
	case base == 16 && ((b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')):
		return true
	}
	return false
}
