package tts

import (
	"fmt"

	"github.com/jmylchreest/bankvoice/internal/model"
)

const (
	creditPhrase = "Bạn vừa nhận %d ngàn đồng"
	debitPhrase  = "Tài khoản vừa chi %d ngàn đồng"
)

// Phrase renders the announcement for tx. Debits are spoken as a positive
// amount.
func Phrase(tx model.Transaction) string {
	if tx.Direction() == model.DirectionDebit {
		return fmt.Sprintf(debitPhrase, tx.Abs())
	}
	return fmt.Sprintf(creditPhrase, tx.Amount)
}
