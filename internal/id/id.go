// Package id builds and parses the human-readable document numbers used on
// payslips.
package id

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// PayslipPrefix starts every payslip number.
const PayslipPrefix = "PS"

// New returns a fresh time-ordered record ID.
func New() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

// FormatDocID returns a number like "PS-2025-01-001".
func FormatDocID(prefix string, year, month, seq int) string {
	return fmt.Sprintf("%s-%04d-%02d-%03d", prefix, year, month, seq)
}

// FormatPayslipID returns a payslip number like "PS-2025-01-001".
func FormatPayslipID(year, month, seq int) string {
	return FormatDocID(PayslipPrefix, year, month, seq)
}

// ParseDocID parses "PS-2025-01-001" into prefix, year, month, seq.
func ParseDocID(docID string) (prefix string, year, month, seq int, err error) {
	parts := strings.Split(docID, "-")
	if len(parts) != 4 || parts[0] == "" {
		return "", 0, 0, 0, fmt.Errorf("invalid document ID format: %q", docID)
	}

	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("invalid year in document ID %q: %w", docID, err)
	}

	month, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("invalid month in document ID %q: %w", docID, err)
	}
	if month < 1 || month > 12 {
		return "", 0, 0, 0, fmt.Errorf("month %d out of range in document ID %q", month, docID)
	}

	seq, err = strconv.Atoi(parts[3])
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("invalid sequence in document ID %q: %w", docID, err)
	}

	return parts[0], year, month, seq, nil
}

// NextSeq returns one more than the highest sequence among existing IDs
// for the given prefix and month. Unparseable IDs are ignored.
func NextSeq(existing []string, prefix string, year, month int) int {
	maxSeq := 0
	for _, e := range existing {
		p, y, m, seq, err := ParseDocID(e)
		if err != nil || p != prefix || y != year || m != month {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}

// ParsePayslipID parses a payslip number into year, month and sequence.
func ParsePayslipID(payslipID string) (year, month, seq int, err error) {
	prefix, year, month, seq, err := ParseDocID(payslipID)
	if err != nil {
		return 0, 0, 0, err
	}
	if prefix != PayslipPrefix {
		return 0, 0, 0, fmt.Errorf("%q is not a payslip number", payslipID)
	}
	return year, month, seq, nil
}
