package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/expense-settler/internal/ledger"
)

// CSVLedgerParser reads ledgers exported from the shared expense sheet.
type CSVLedgerParser struct {
	Columns Columns
}

// NewCSVLedgerParser creates a parser for the given column names.
func NewCSVLedgerParser(cols Columns) *CSVLedgerParser {
	return &CSVLedgerParser{Columns: cols}
}

// ParseLedger implements LedgerParser.
func (p *CSVLedgerParser) ParseLedger(ctx context.Context, data []byte, filename string) ([]ledger.RawRow, error) {
	return ParseLedgerCSV(data, p.Columns)
}

// ParseLedgerCSV reads a CSV ledger with a header row. Blank lines and rows
// with only empty cells are skipped. Short rows read as empty cells so the
// aggregator reports them. Line numbers refer to the input file.
func ParseLedgerCSV(data []byte, cols Columns) ([]ledger.RawRow, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("ParseLedgerCSV: %w", &ledger.MissingFieldsError{
			Fields: []string{cols.Payer, cols.Amount, cols.Participants},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("ParseLedgerCSV: reading header: %w", err)
	}

	idx, err := locateColumns(header, cols)
	if err != nil {
		return nil, fmt.Errorf("ParseLedgerCSV: %w", err)
	}

	var rows []ledger.RawRow
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ParseLedgerCSV: %w", err)
		}
		if blankRecord(record) {
			continue
		}

		line, _ := r.FieldPos(0)
		rows = append(rows, ledger.RawRow{
			Line:         line,
			Payer:        cell(record, idx.payer),
			Amount:       cell(record, idx.amount),
			Participants: cell(record, idx.participants),
		})
	}

	return rows, nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func blankRecord(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
