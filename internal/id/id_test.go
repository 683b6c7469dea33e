package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPayslipID(t *testing.T) {
	tests := []struct {
		year, month, seq int
		want             string
	}{
		{2025, 1, 1, "PS-2025-01-001"},
		{2025, 12, 99, "PS-2025-12-099"},
		{2025, 1, 1234, "PS-2025-01-1234"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPayslipID(tt.year, tt.month, tt.seq))
	}
}

func TestParseDocID(t *testing.T) {
	prefix, year, month, seq, err := ParseDocID("PS-2025-03-007")
	require.NoError(t, err)
	assert.Equal(t, "PS", prefix)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 3, month)
	assert.Equal(t, 7, seq)
}

func TestParseDocID_Invalid(t *testing.T) {
	for _, in := range []string{"", "PS-2025-01", "-2025-01-001", "PS-abcd-01-001", "PS-2025-13-001", "PS-2025-01-x"} {
		_, _, _, _, err := ParseDocID(in)
		assert.Error(t, err, "ParseDocID(%q)", in)
	}
}

func TestNextSeq(t *testing.T) {
	existing := []string{
		"PS-2025-01-001",
		"PS-2025-01-003",
		"PS-2025-02-009",
		"RC-2025-01-010",
		"garbage",
	}
	assert.Equal(t, 4, NextSeq(existing, PayslipPrefix, 2025, 1))
	assert.Equal(t, 10, NextSeq(existing, PayslipPrefix, 2025, 2))
	assert.Equal(t, 1, NextSeq(existing, PayslipPrefix, 2025, 3))
	assert.Equal(t, 1, NextSeq(nil, PayslipPrefix, 2025, 1))
}

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestParsePayslipID(t *testing.T) {
	year, month, seq, err := ParsePayslipID("PS-2025-02-014")
	require.NoError(t, err)
	assert.Equal(t, []int{2025, 2, 14}, []int{year, month, seq})

	_, _, _, err = ParsePayslipID("INV-2025-02-014")
	assert.ErrorContains(t, err, "not a payslip number")
}
