package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/expense-settler/internal/gcsuploader"
	"github.com/dvloznov/expense-settler/internal/ledger"
)

// Keys of each object in the model's JSON output.
const (
	fieldPaidBy       = "paid_by"
	fieldAmount       = "amount"
	fieldParticipants = "participants"
)

// GeminiLedgerParser transcribes PDF and image ledgers with a Gemini model.
type GeminiLedgerParser struct {
	model   string
	columns Columns
}

// NewGeminiLedgerParser creates a parser for the given model. An empty model
// name selects DefaultModelName.
func NewGeminiLedgerParser(model string, cols Columns) *GeminiLedgerParser {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiLedgerParser{model: model, columns: cols}
}

// ParseLedger implements LedgerParser.
func (p *GeminiLedgerParser) ParseLedger(ctx context.Context, data []byte, filename string) ([]ledger.RawRow, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("GeminiLedgerParser: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildLedgerPrompt(p.columns)},
				{
					InlineData: &genai.Blob{
						MIMEType: gcsuploader.ContentTypeFor(filename),
						Data:     data,
					},
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("GeminiLedgerParser: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("GeminiLedgerParser: empty response from model")
	}

	rows, err := parseModelOutput(rawText)
	if err != nil {
		return nil, fmt.Errorf("GeminiLedgerParser: %w", err)
	}
	return rows, nil
}

// parseModelOutput cleans and decodes the model's text into ledger rows.
func parseModelOutput(rawText string) ([]ledger.RawRow, error) {
	clean := cleanModelJSON(rawText)

	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.UseNumber()

	var items []map[string]interface{}
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w\nraw response: %s", err, rawText)
	}

	return rowsFromModelOutput(items)
}

// rowsFromModelOutput maps decoded model objects to raw rows numbered from 1.
// An object without one of the expected keys means the model ignored the
// schema, which is fatal rather than a skippable row.
func rowsFromModelOutput(items []map[string]interface{}) ([]ledger.RawRow, error) {
	missing := map[string]bool{}
	rows := make([]ledger.RawRow, 0, len(items))

	for i, item := range items {
		for _, key := range []string{fieldPaidBy, fieldAmount, fieldParticipants} {
			if _, ok := item[key]; !ok {
				missing[key] = true
			}
		}
		rows = append(rows, ledger.RawRow{
			Line:         i + 1,
			Payer:        stringValue(item[fieldPaidBy]),
			Amount:       stringValue(item[fieldAmount]),
			Participants: participantsValue(item[fieldParticipants]),
		})
	}

	if len(missing) > 0 {
		var fields []string
		for _, key := range []string{fieldPaidBy, fieldAmount, fieldParticipants} {
			if missing[key] {
				fields = append(fields, key)
			}
		}
		return nil, &ledger.MissingFieldsError{Fields: fields}
	}

	return rows, nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// participantsValue accepts either a comma separated string or an array of names.
func participantsValue(v interface{}) string {
	arr, ok := v.([]interface{})
	if !ok {
		return stringValue(v)
	}
	names := make([]string, 0, len(arr))
	for _, n := range arr {
		names = append(names, stringValue(n))
	}
	return strings.Join(names, ", ")
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only the outermost array if the model added prose around it.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

// RoutingParser picks a parser by file extension: CSV for .csv (or no
// extension), the document parser for PDFs and images.
type RoutingParser struct {
	CSV      LedgerParser
	Document LedgerParser
}

// ParseLedger implements LedgerParser.
func (p *RoutingParser) ParseLedger(ctx context.Context, data []byte, filename string) ([]ledger.RawRow, error) {
	parser, err := p.parserFor(filename)
	if err != nil {
		return nil, err
	}
	return parser.ParseLedger(ctx, data, filename)
}

func (p *RoutingParser) parserFor(filename string) (LedgerParser, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case "", ".csv":
		if p.CSV != nil {
			return p.CSV, nil
		}
	case ".pdf", ".png", ".jpg", ".jpeg":
		if p.Document != nil {
			return p.Document, nil
		}
		return nil, fmt.Errorf("%w: %s (no document parser configured)", ErrUnsupportedFormat, filename)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
}
