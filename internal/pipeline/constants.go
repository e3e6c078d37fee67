package pipeline

// Defaults for ledger parsing.
const (
	// DefaultModelName is the default Gemini model used for PDF and image ledgers.
	DefaultModelName = "gemini-2.5-flash"

	// Column headers of the shared expense sheet.
	DefaultPayerColumn        = "Paid by"
	DefaultAmountColumn       = "Amount"
	DefaultParticipantsColumn = "Participants"
)
