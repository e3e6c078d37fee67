package notionsync

import (
	"fmt"

	"github.com/dvloznov/expense-settler/internal/ledger"
	"github.com/jomei/notionapi"
)

// Property names of the settlements database.
const (
	PropSettlementID = "Settlement ID"
	PropRunID        = "Run ID"
	PropFrom         = "From"
	PropTo           = "To"
	PropAmount       = "Amount"
	PropStatus       = "Status"

	// StatusOpen is the Status of a freshly published settlement.
	StatusOpen = "Open"
)

// SettlementKey identifies the seq-th settlement (1-based) of a run.
func SettlementKey(runID string, seq int) string {
	return fmt.Sprintf("%s#%d", runID, seq)
}

// SettlementToNotionProperties builds page properties for one settlement.
func SettlementToNotionProperties(runID string, seq int, s ledger.Settlement) notionapi.Properties {
	return notionapi.Properties{
		PropSettlementID: notionapi.TitleProperty{
			Title: richText(SettlementKey(runID, seq)),
		},
		PropRunID: notionapi.RichTextProperty{
			RichText: richText(runID),
		},
		PropFrom: notionapi.RichTextProperty{
			RichText: richText(string(s.From)),
		},
		PropTo: notionapi.RichTextProperty{
			RichText: richText(string(s.To)),
		},
		PropAmount: notionapi.NumberProperty{
			Number: ledger.RoundCurrency(s.Amount).InexactFloat64(),
		},
		PropStatus: notionapi.SelectProperty{
			Select: notionapi.Option{Name: StatusOpen},
		},
	}
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

// extractSettlementKey returns the Settlement ID title of a page, or "".
func extractSettlementKey(page notionapi.Page) string {
	prop, ok := page.Properties[PropSettlementID]
	if !ok {
		return ""
	}
	if title, ok := prop.(*notionapi.TitleProperty); ok && len(title.Title) > 0 {
		return title.Title[0].PlainText
	}
	return ""
}

// extractRunID returns the Run ID of a page, or "".
func extractRunID(page notionapi.Page) string {
	return extractRichText(page, PropRunID)
}

func extractRichText(page notionapi.Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok {
		return ""
	}
	if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
		return rt.RichText[0].PlainText
	}
	return ""
}

// pageMatchesSettlement reports whether a page already shows s.
func pageMatchesSettlement(page notionapi.Page, s ledger.Settlement) bool {
	amount, ok := page.Properties[PropAmount].(*notionapi.NumberProperty)
	if !ok || amount.Number != ledger.RoundCurrency(s.Amount).InexactFloat64() {
		return false
	}
	return extractRichText(page, PropFrom) == string(s.From) &&
		extractRichText(page, PropTo) == string(s.To)
}
