package importer

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFile(t *testing.T, path string) []txnView {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	txns, err := (&AutoParser{}).Parse(f)
	require.NoError(t, err)

	views := make([]txnView, len(txns))
	for i, txn := range txns {
		views[i] = txnView{txn.Date.Format("2006-01-02"), txn.Description, txn.Amount.StringFixed(2), txn.Reference}
	}
	return views
}

type txnView struct {
	Date, Desc, Amount, Ref string
}

func TestAutoParser_SemicolonDebitCredit(t *testing.T) {
	got := parseFile(t, "../../testdata/republic_bank.csv")
	assert.Equal(t, []txnView{
		{"2025-01-03", "POS MASSY STORES TRINCITY", "-245.60", "auto_20250103_POSMASSYSTORESTRINCITY_-245.60"},
		{"2025-01-06", "T&TEC ELECTRICITY", "-1310.25", "auto_20250106_TTECELECTRICITY_-1310.25"},
		{"2025-01-15", "SALARY ACME LTD", "8000.00", "auto_20250115_SALARYACMELTD_8000.00"},
		{"2025-01-20", "ATM WITHDRAWAL", "-500.00", "auto_20250120_ATMWITHDRAWAL_-500.00"},
	}, got)
}

func TestAutoParser_TabSingleAmount(t *testing.T) {
	got := parseFile(t, "../../testdata/first_citizens.csv")
	assert.Equal(t, []txnView{
		{"2025-02-01", "DIGICEL TOPUP", "-100.00", "FC-0001"},
		{"2025-02-03", "INTEREST", "1.25", "FC-0002"},
		{"2025-02-14", "KFC ARIMA", "-85.50", "auto_20250214_KFCARIMA_-85.50"},
	}, got)
}

func TestAutoParser_ChaseLayout(t *testing.T) {
	got := parseFile(t, "../../testdata/chase_checking.csv")
	require.Len(t, got, 6)
	// 01/15/2025 proves the file is month-first.
	assert.Equal(t, "2025-01-03", got[0].Date)
	assert.Equal(t, "GITHUB *PRO SUBSCRIPTION", got[0].Desc)
	assert.Equal(t, "3500.00", got[3].Amount)
}

func TestAutoParser_NoHeader(t *testing.T) {
	_, err := (&AutoParser{}).Parse(strings.NewReader("foo,bar\n1,2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestAutoParser_BadRow(t *testing.T) {
	in := "Date,Description,Amount\n2025-01-01,ok,1.00\n2025-01-02,bad,ten dollars\n"
	_, err := (&AutoParser{}).Parse(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
}

func TestAutoParser_BOMAndQuotedHeader(t *testing.T) {
	in := "\xef\xbb\xbf\"Posted Date\",\"Payee\",\"Withdrawals\",\"Deposits\"\n\"12/31/2024\",\"PriceSmart\",\"600.00\",\"\"\n"
	txns, err := (&AutoParser{}).Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.Equal(t, "PriceSmart", txns[0].Description)
	assert.Equal(t, "-600.00", txns[0].Amount.StringFixed(2))
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		in   string
		want rune
	}{
		{"a,b,c\n", ','},
		{"a;b;c\n", ';'},
		{"a\tb\tc\n", '\t'},
		{"a|b|c\n", '|'},
		{"\n\n\"x;y\",b,c\n", ','},
		{"Account: 1\nDate;Desc;Amount\n", ';'},
		{"", ','},
		{"a;b,c\n", ','},
		{"Date;Description;Amount\n02/01/2025;TSTT, MOBILE, TOP UP, REF 4471;-100,00\n", ';'},
		{"Statement, January\nDate|Details|Debit|Credit\n", '|'},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SniffDelimiter([]byte(tt.in)), "SniffDelimiter(%q)", tt.in)
	}
}

func TestAutoParser_CommasInSemicolonExport(t *testing.T) {
	in := "Date;Description;Amount\n02/01/2025;TSTT, MOBILE, TOP UP, REF 4471;-100,00\n"
	txns, err := (&AutoParser{}).Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "TSTT, MOBILE, TOP UP, REF 4471", txns[0].Description)
	assert.Equal(t, "-100.00", txns[0].Amount.StringFixed(2))
	assert.Equal(t, "2025-01-02", txns[0].Date.Format("2006-01-02"))
}

func TestDetectDayFirst(t *testing.T) {
	assert.True(t, DetectDayFirst([]string{"03/01/2025", "25/01/2025"}))
	assert.False(t, DetectDayFirst([]string{"03/01/2025", "01/25/2025"}))
	assert.True(t, DetectDayFirst([]string{"03/01/2025"}), "ambiguous defaults to day-first")
	assert.True(t, DetectDayFirst([]string{"2025-01-03"}))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in       string
		dayFirst bool
		want     string
	}{
		{"03/04/2025", true, "2025-04-03"},
		{"03/04/2025", false, "2025-03-04"},
		{"3.4.25", true, "2025-04-03"},
		{"3-4-2025", true, "2025-04-03"},
		{"2025-04-03", true, "2025-04-03"},
		{"2025/04/03", false, "2025-04-03"},
		{"3 Apr 2025", true, "2025-04-03"},
		{"3-Apr-25", true, "2025-04-03"},
		{"Apr 3, 2025", true, "2025-04-03"},
		{"20250403", true, "2025-04-03"},
		{"2025-04-03 13:45:00", true, "2025-04-03"},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in, tt.dayFirst)
		require.NoError(t, err, "ParseDate(%q)", tt.in)
		assert.Equal(t, tt.want, got.Format("2006-01-02"), "ParseDate(%q)", tt.in)
	}

	_, err := ParseDate("31/31/2025", true)
	assert.Error(t, err)
	_, err = ParseDate("yesterday", true)
	assert.Error(t, err)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "amount ttd", normalizeHeader(" Amount (TTD) "))
	assert.Equal(t, "transaction date", normalizeHeader("Transaction_Date"))
}
