package model

// Direction tells whether money came in or went out.
type Direction int

const (
	// DirectionCredit is an incoming amount (no sign or "+").
	DirectionCredit Direction = iota
	// DirectionDebit is an outgoing amount ("-").
	DirectionDebit
)

// DirectionNames maps directions to human-readable names.
var DirectionNames = map[Direction]string{
	DirectionCredit: "credit",
	DirectionDebit:  "debit",
}

// String returns the human-readable direction.
func (d Direction) String() string {
	if name, ok := DirectionNames[d]; ok {
		return name
	}
	return "unknown"
}

// Transaction is an amount extracted from notification text.
// Amount is in thousands of currency units, as printed by the bank apps.
type Transaction struct {
	Amount int64  `json:"amount"`
	Raw    string `json:"raw"`              // Matched numeral, e.g. "-200,000"
	Suffix string `json:"suffix,omitempty"` // Currency suffix if present
}

// Direction returns credit for non-negative amounts and debit otherwise.
func (t Transaction) Direction() Direction {
	if t.Amount < 0 {
		return DirectionDebit
	}
	return DirectionCredit
}

// Abs returns the absolute amount.
func (t Transaction) Abs() int64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}
