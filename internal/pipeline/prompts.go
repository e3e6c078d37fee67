package pipeline

import (
	"fmt"
	"strings"
)

// buildLedgerPrompt asks the model to transcribe a shared-expense document
// into the JSON shape rowsFromModelOutput expects.
func buildLedgerPrompt(cols Columns) string {
	var b strings.Builder

	b.WriteString("You are a parser for shared group expense ledgers (trip sheets, receipts, exported tables).\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Extract EVERY expense entry in the attached document.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a JSON array of objects.\n\n")

	b.WriteString("Each object must have these fields:\n")
	fmt.Fprintf(&b, "- %q: string, the person who paid (column %q if present)\n", fieldPaidBy, cols.Payer)
	fmt.Fprintf(&b, "- %q: string, the positive amount paid without currency symbols (column %q if present)\n", fieldAmount, cols.Amount)
	fmt.Fprintf(&b, "- %q: array of strings, everyone the expense is split between, including the payer if listed (column %q if present)\n\n", fieldParticipants, cols.Participants)

	b.WriteString("Rules:\n")
	b.WriteString("- Keep names exactly as written; do not merge or correct spellings.\n")
	b.WriteString("- If a name appears twice in one entry, list it twice.\n")
	b.WriteString("- If a value cannot be read, use an empty string for it; never invent values.\n")
	b.WriteString("- Skip totals, subtotals and summary lines.\n\n")

	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n")

	return b.String()
}
