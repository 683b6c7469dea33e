package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
)

// Layout describes a bank export whose columns and date format are fixed.
// Column indexes are zero-based; -1 marks a column the bank leaves out.
type Layout struct {
	Name       string
	Comma      rune
	DateFormat string
	SkipRows   int // preamble and header records before the first transaction

	Date        int
	Description int
	Amount      int // signed amount; -1 when the export splits debit and credit
	Debit       int
	Credit      int
	Reference   int
	Type        int
}

// Built-in layouts.
var (
	ChaseLayout = Layout{
		Name: "chase", Comma: ',', DateFormat: "01/02/2006", SkipRows: 1,
		Date: 1, Description: 2, Amount: 3, Debit: -1, Credit: -1, Reference: -1, Type: 4,
	}
	RepublicBankLayout = Layout{
		Name: "republic", Comma: ';', DateFormat: "02/01/2006", SkipRows: 3,
		Date: 0, Description: 1, Amount: -1, Debit: 2, Credit: 3, Reference: -1, Type: -1,
	}
	FirstCitizensLayout = Layout{
		Name: "firstcitizens", Comma: '\t', DateFormat: "2006-01-02", SkipRows: 1,
		Date: 0, Description: 1, Amount: 2, Debit: -1, Credit: -1, Reference: 3, Type: -1,
	}
)

// LayoutParser parses exports matching a Layout.
type LayoutParser struct {
	Layout Layout
}

// Format returns the layout name.
func (p *LayoutParser) Format() string { return p.Layout.Name }

func (p *LayoutParser) columns() columns {
	l := p.Layout
	return columns{
		date:   l.Date,
		desc:   l.Description,
		amount: l.Amount,
		debit:  l.Debit,
		credit: l.Credit,
		ref:    l.Reference,
		kind:   l.Type,
	}
}

// Parse reads an export and returns BankTransactions. Rows with no date
// (balance and summary lines) are skipped.
func (p *LayoutParser) Parse(r io.Reader) ([]model.BankTransaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s export: %w", p.Layout.Name, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = p.Layout.Comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s export: %w", p.Layout.Name, err)
	}
	if len(records) <= p.Layout.SkipRows {
		return nil, nil
	}

	cols := p.columns()
	refs := newRefs(p.Layout.Name)
	var txns []model.BankTransaction
	for i, rec := range records[p.Layout.SkipRows:] {
		rowNum := p.Layout.SkipRows + i + 1
		if cell(rec, cols.date) == "" {
			continue
		}
		txn, err := p.parseRow(rec, cols, refs)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func (p *LayoutParser) parseRow(rec []string, cols columns, refs *refSeq) (model.BankTransaction, error) {
	raw := cell(rec, cols.date)
	date, err := time.Parse(p.Layout.DateFormat, raw)
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("parsing date %q: %w", raw, err)
	}

	amount, err := rowAmount(rec, cols)
	if err != nil {
		return model.BankTransaction{}, err
	}

	desc := strings.Join(strings.Fields(cell(rec, cols.desc)), " ")
	ref := cell(rec, cols.ref)
	if ref == "" {
		ref = refs.next(date, desc, amount)
	}

	return model.BankTransaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Reference:   ref,
		Type:        cell(rec, cols.kind),
	}, nil
}

// refSeq derives references for exports that carry none of their own. The
// reference is built from the source, the date, the whole description and
// the amount, so it is stable when the same export is imported again.
// Identical rows within one file get an ordinal suffix (_2, _3, ...).
type refSeq struct {
	source string
	seen   map[string]int
}

func newRefs(source string) *refSeq {
	return &refSeq{source: source, seen: make(map[string]int)}
}

func (r *refSeq) next(date time.Time, desc string, amount decimal.Decimal) string {
	ref := makeRef(r.source, date, desc, amount)
	r.seen[ref]++
	if n := r.seen[ref]; n > 1 {
		ref += "_" + strconv.Itoa(n)
	}
	return ref
}

// makeRef builds a reference such as
// chase_20250103_GITHUBPROSUBSCRIPTION_-4.00 from the letters and digits of
// the description.
func makeRef(source string, date time.Time, desc string, amount decimal.Decimal) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(desc) {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return source + "_" + date.Format("20060102") + "_" + b.String() + "_" + amount.StringFixed(2)
}
