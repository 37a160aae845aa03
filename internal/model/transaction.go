package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/transcat/internal/common"
)

// DateLayout is the DD-MM-YYYY layout used by inbound records.
const DateLayout = "02-01-2006"

// Kind identifies the shape of a transaction's payload.
type Kind string

// Transaction kinds as they appear on the stream.
const (
	KindCardBlockade   Kind = "BLOCKADE"
	KindCardSettlement Kind = "SETTLEMENT"
	KindTransfer       Kind = "TRANSFER"
	KindIncrease       Kind = "INCREASE"
)

// ParseKind validates a raw kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindCardBlockade, KindCardSettlement, KindTransfer, KindIncrease:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnsupportedKind, s)
	}
}

// IsCard reports whether the kind carries card data.
func (k Kind) IsCard() bool {
	return k == KindCardBlockade || k == KindCardSettlement
}

// CardData is the payload of BLOCKADE and SETTLEMENT transactions.
type CardData struct {
	Card  string
	Place string
}

// TransferData is the payload of TRANSFER transactions.
type TransferData struct {
	SettlementDate time.Time
	Source         string
	Destination    string
	Name           string
	Title          string
	Saldo          string
}

// IncreaseData is the payload of INCREASE transactions.
type IncreaseData struct {
	Destination string
	Name        string
	Title       string
	Saldo       string
}

// Transaction is a single event received from the stream. Exactly one of the
// payload pointers is set, selected by Kind.
type Transaction struct {
	OperationDate time.Time
	Card          *CardData
	Transfer      *TransferData
	Increase      *IncreaseData
	Key           string
	Kind          Kind
	Amount        string // kept verbatim to preserve source formatting
	OperationID   int64
}

// Validate checks that the kind is known and its payload is present.
func (t *Transaction) Validate() error {
	if t.Key == "" {
		return fmt.Errorf("%w: missing key", common.ErrInvalidTransaction)
	}
	if _, err := ParseKind(string(t.Kind)); err != nil {
		return fmt.Errorf("transaction %s: %w", t.Key, err)
	}

	var ok bool
	switch t.Kind {
	case KindCardBlockade, KindCardSettlement:
		ok = t.Card != nil
	case KindTransfer:
		ok = t.Transfer != nil
	case KindIncrease:
		ok = t.Increase != nil
	}
	if !ok {
		return fmt.Errorf("%w: transaction %s has no %s payload", common.ErrInvalidTransaction, t.Key, t.Kind)
	}
	return nil
}

// AmountValue parses the amount string. Both "." and "," are accepted as the
// decimal separator and grouping spaces are ignored.
func (t *Transaction) AmountValue() (decimal.Decimal, error) {
	return ParseAmount(t.Amount)
}

// RecordID derives the numeric store id from the stream key ("<ms>-<seq>").
func (t *Transaction) RecordID() (int64, error) {
	return ParseRecordID(t.Key)
}

// ParseAmount parses a locale-formatted decimal string.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer(" ", "", "\u00a0", "", ",", ".").Replace(strings.TrimSpace(s))
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// ParseRecordID extracts the numeric part in front of the first "-" of a key.
func ParseRecordID(key string) (int64, error) {
	head, _, _ := strings.Cut(key, "-")
	id, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: key %q has no numeric id", common.ErrInvalidTransaction, key)
	}
	return id, nil
}

// FormatRecordKey is the inverse of ParseRecordID for stored rows.
func FormatRecordKey(id int64) string {
	return strconv.FormatInt(id, 10) + "-0"
}
