package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
	"github.com/nuacha-app/nuacha/internal/money"
)

// AutoFormat is the name of the heuristic parser.
const AutoFormat = "auto"

// maxHeaderScan is how many leading rows may precede the header.
const maxHeaderScan = 10

var delimiters = []rune{',', ';', '\t', '|'}

// Header names recognised per column, in order of preference.
var columnSynonyms = map[string][]string{
	"date":        {"transaction date", "date", "posting date", "posted date", "trans date", "txn date", "value date"},
	"description": {"description", "transaction description", "narrative", "details", "transaction details", "particulars", "payee", "merchant", "memo", "name"},
	"amount":      {"amount", "transaction amount", "amount ttd", "amount usd", "value"},
	"debit":       {"debit", "debit amount", "withdrawal", "withdrawals", "money out", "paid out"},
	"credit":      {"credit", "credit amount", "deposit", "deposits", "money in", "paid in"},
	"reference":   {"reference", "ref", "reference number", "transaction id", "cheque number", "check number"},
	"type":        {"type", "transaction type"},
}

var numericDate = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{2}|\d{4})$`)

var namedDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"20060102",
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// AutoParser reads bank exports whose layout is not known in advance. It
// sniffs the delimiter, finds the header row and locates the date,
// description and amount columns by name.
type AutoParser struct{}

// Format returns the parser name.
func (p *AutoParser) Format() string { return AutoFormat }

type columns struct {
	date, desc, amount, debit, credit, ref, kind int
}

// Parse reads a delimited bank export and returns BankTransactions.
func (p *AutoParser) Parse(r io.Reader) ([]model.BankTransaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading bank export: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = SniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading bank export: %w", err)
	}

	headerRow, cols, ok := findHeader(records)
	if !ok {
		return nil, fmt.Errorf("no header row with date and amount columns in the first %d rows", maxHeaderScan)
	}

	rows := records[headerRow+1:]
	var dates []string
	for _, rec := range rows {
		dates = append(dates, cell(rec, cols.date))
	}
	dayFirst := DetectDayFirst(dates)

	refs := newRefs(AutoFormat)
	var txns []model.BankTransaction
	for i, rec := range rows {
		rowNum := headerRow + i + 2
		// Blank lines, balance lines and text footers carry no transaction.
		if blank(rec) || !hasDigit(cell(rec, cols.date)) || !hasAmount(rec, cols) {
			continue
		}

		date, err := ParseDate(cell(rec, cols.date), dayFirst)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		amount, err := rowAmount(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		desc := strings.Join(strings.Fields(cell(rec, cols.desc)), " ")
		ref := cell(rec, cols.ref)
		if ref == "" {
			ref = refs.next(date, desc, amount)
		}

		txns = append(txns, model.BankTransaction{
			Date:        date,
			Description: desc,
			Amount:      amount,
			Reference:   ref,
			Type:        cell(rec, cols.kind),
		})
	}
	return txns, nil
}

// SniffDelimiter picks the delimiter of the header line: the first of the
// leading non-empty lines that, split on some delimiter, names a date
// column and an amount, debit or credit column. Data rows are not counted,
// so commas inside descriptions of a semicolon export do not matter. With
// no recognisable header the delimiter with the highest count, outside
// quotes, on any leading line wins. Ties and empty input give a comma.
func SniffDelimiter(data []byte) rune {
	best := make(map[rune]int)
	scanned := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if d, ok := headerDelimiter(line); ok {
			return d
		}
		for d, n := range countDelimiters(string(line)) {
			if n > best[d] {
				best[d] = n
			}
		}
		if scanned++; scanned == maxHeaderScan {
			break
		}
	}

	delim := ','
	for _, d := range delimiters {
		if best[d] > best[delim] {
			delim = d
		}
	}
	return delim
}

// headerDelimiter reports the delimiter that splits line into a header
// with date and amount columns, preferring the split with most fields.
func headerDelimiter(line []byte) (rune, bool) {
	var found rune
	fields := 0
	for _, d := range delimiters {
		cr := csv.NewReader(bytes.NewReader(line))
		cr.Comma = d
		cr.LazyQuotes = true
		cr.TrimLeadingSpace = true
		rec, err := cr.Read()
		if err != nil || len(rec) < 2 {
			continue
		}
		cols := mapColumns(rec)
		if cols.date >= 0 && (cols.amount >= 0 || cols.debit >= 0 || cols.credit >= 0) && len(rec) > fields {
			found, fields = d, len(rec)
		}
	}
	return found, fields > 0
}

func countDelimiters(line string) map[rune]int {
	counts := make(map[rune]int)
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}
	return counts
}

// findHeader returns the index of the first row that names a date column
// and either an amount column or a debit/credit pair.
func findHeader(records [][]string) (int, columns, bool) {
	for i := 0; i < len(records) && i < maxHeaderScan; i++ {
		cols := mapColumns(records[i])
		if cols.date >= 0 && (cols.amount >= 0 || cols.debit >= 0 || cols.credit >= 0) {
			return i, cols, true
		}
	}
	return 0, columns{}, false
}

func mapColumns(header []string) columns {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := normalizeHeader(h)
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	find := func(field string) int {
		for _, syn := range columnSynonyms[field] {
			if i, ok := index[syn]; ok {
				return i
			}
		}
		return -1
	}
	return columns{
		date:   find("date"),
		desc:   find("description"),
		amount: find("amount"),
		debit:  find("debit"),
		credit: find("credit"),
		ref:    find("reference"),
		kind:   find("type"),
	}
}

// normalizeHeader lower-cases h and reduces punctuation to single spaces,
// so "Amount (TTD)" becomes "amount ttd".
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return ' '
	}, h)
	return strings.Join(strings.Fields(h), " ")
}

// DetectDayFirst decides whether numeric dates like 03/04/2025 are
// day-first. A first component above 12 means day-first, a second
// component above 12 means month-first; with no evidence either way the
// local dd/mm/yyyy convention wins.
func DetectDayFirst(values []string) bool {
	for _, v := range values {
		m := numericDate.FindStringSubmatch(strings.TrimSpace(v))
		if m == nil {
			continue
		}
		if first, _ := strconv.Atoi(m[1]); first > 12 {
			return true
		}
		if second, _ := strconv.Atoi(m[2]); second > 12 {
			return false
		}
	}
	return true
}

// ParseDate parses a bank date in any of the supported layouts.
func ParseDate(s string, dayFirst bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if m := numericDate.FindStringSubmatch(s); m != nil {
		norm := m[1] + "/" + m[2] + "/" + m[3]
		layout := "1/2/"
		if dayFirst {
			layout = "2/1/"
		}
		if len(m[3]) == 2 {
			layout += "06"
		} else {
			layout += "2006"
		}
		t, err := time.Parse(layout, norm)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
		}
		return t, nil
	}

	for _, layout := range namedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, mo, d := t.Date()
			return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q: unrecognised format", s)
}

// rowAmount returns the signed amount of a row: the amount column when
// present, otherwise credit minus debit.
func rowAmount(rec []string, cols columns) (decimal.Decimal, error) {
	if cols.amount >= 0 && cell(rec, cols.amount) != "" {
		return money.Parse(cell(rec, cols.amount))
	}

	amount := decimal.Zero
	if v := cell(rec, cols.credit); v != "" {
		c, err := money.Parse(v)
		if err != nil {
			return decimal.Zero, err
		}
		amount = amount.Add(c.Abs())
	}
	if v := cell(rec, cols.debit); v != "" {
		d, err := money.Parse(v)
		if err != nil {
			return decimal.Zero, err
		}
		amount = amount.Sub(d.Abs())
	}
	return amount, nil
}

func hasAmount(rec []string, cols columns) bool {
	return cell(rec, cols.amount) != "" || cell(rec, cols.debit) != "" || cell(rec, cols.credit) != ""
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
