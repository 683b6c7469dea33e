package activity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func importEntry() Entry {
	return Entry{
		Timestamp: testTime,
		Actor:     "kavita",
		Action:    "import",
		Subject:   "import/republic_bank.csv",
		Count:     4,
		Details:   "format=auto, skipped 1 credit",
	}
}

func TestAppend_CreatesFileWithHeader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, importEntry()))

	raw, err := os.ReadFile(filepath.Join(dir, Path))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), Header+"\n"))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, importEntry(), entries[0])
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, importEntry()))

	second := importEntry()
	second.Action = "payroll"
	second.Subject = "PS-2025-01-001"
	second.Count = 1
	require.NoError(t, Append(dir, second))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "import", entries[0].Action)
	assert.Equal(t, "payroll", entries[1].Action)
}

func TestRead_Missing(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestReadEntries_BadRows(t *testing.T) {
	_, err := ReadEntries(strings.NewReader(Header + "\nyesterday,a,b,c,1,d\n"))
	assert.ErrorContains(t, err, "row 2")

	_, err = ReadEntries(strings.NewReader(Header + "\n2025-01-15T10:30:00Z,a,b,c,many,d\n"))
	assert.ErrorContains(t, err, "parsing count")
}

func TestMarshalEntry_DetailsWithComma(t *testing.T) {
	row := MarshalEntry(importEntry())
	assert.Equal(t, "format=auto, skipped 1 credit", row[colDetails])
	assert.Equal(t, "4", row[colCount])
}
