package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jmylchreest/bankvoice/internal/model"
)

// amountPattern captures a signed, comma-grouped integer with an optional
// currency suffix. Group 1 is the numeral, group 2 the suffix.
var amountPattern = regexp.MustCompile(`(?i)([+-]?\d{1,3}(?:,\d{3})*)\s?(VND|đ|d|đồng)?`)

// Parse errors.
var (
	ErrNoAmount      = errors.New("no amount found")
	ErrInvalidAmount = errors.New("invalid amount")
)

// ParseAmount extracts the first amount in text.
// A missing sign is a credit, "-" is a debit.
func ParseAmount(text string) (model.Transaction, error) {
	text = norm.NFC.String(text)

	match := amountPattern.FindStringSubmatch(text)
	if match == nil || match[1] == "" {
		return model.Transaction{}, ErrNoAmount
	}

	raw := match[1]
	amount, err := strconv.ParseInt(strings.ReplaceAll(raw, ",", ""), 10, 64)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w %q: %w", ErrInvalidAmount, raw, err)
	}

	return model.Transaction{
		Amount: amount,
		Raw:    raw,
		Suffix: match[2],
	}, nil
}
