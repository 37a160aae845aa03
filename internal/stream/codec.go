// Package stream moves transactions, replies and label events over Redis
// streams.
package stream

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Veraticus/transcat/internal/common"
	"github.com/Veraticus/transcat/internal/model"
)

// Entry field names.
const (
	FieldType        = "type"
	FieldOperationID = "operation_id"
	FieldData        = "data"
)

// Date is a calendar day encoded as DD-MM-YYYY.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.Format(model.DateLayout))
}

// Payload is the JSON document carried in the data field. Which fields are
// set depends on the entry type.
type Payload struct {
	OperationDate  Date   `json:"operation_date"`
	SettlementDate *Date  `json:"settlement_date,omitempty"`
	Amount         string `json:"amount"`
	Card           string `json:"card,omitempty"`
	Place          string `json:"place,omitempty"`
	Source         string `json:"source,omitempty"`
	Destination    string `json:"destination,omitempty"`
	Name           string `json:"name,omitempty"`
	Title          string `json:"title,omitempty"`
	Saldo          string `json:"saldo,omitempty"`
}

// Record is the file and wire form of one inbound transaction.
type Record struct {
	Data        json.RawMessage `json:"data"`
	Key         string          `json:"key"`
	Type        string          `json:"type"`
	OperationID int64           `json:"operation_id"`
}

// DecodeMessage converts a stream entry into a transaction keyed by the
// entry id.
func DecodeMessage(msg redis.XMessage) (model.Transaction, error) {
	typ, err := stringField(msg.Values, FieldType)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("entry %s: %w", msg.ID, err)
	}
	rawID, err := stringField(msg.Values, FieldOperationID)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("entry %s: %w", msg.ID, err)
	}
	opID, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: entry %s: operation_id %q", common.ErrInvalidTransaction, msg.ID, rawID)
	}
	data, err := stringField(msg.Values, FieldData)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("entry %s: %w", msg.ID, err)
	}

	return Record{
		Key:         msg.ID,
		Type:        typ,
		OperationID: opID,
		Data:        json.RawMessage(data),
	}.Transaction()
}

// Transaction decodes the record's payload according to its type.
func (r Record) Transaction() (model.Transaction, error) {
	kind, err := model.ParseKind(r.Type)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("entry %s: %w", r.Key, err)
	}

	var p Payload
	if err := json.Unmarshal(r.Data, &p); err != nil {
		return model.Transaction{}, fmt.Errorf("%w: entry %s: %w", common.ErrInvalidTransaction, r.Key, err)
	}
	if p.OperationDate.IsZero() {
		return model.Transaction{}, fmt.Errorf("%w: entry %s: missing operation_date", common.ErrInvalidTransaction, r.Key)
	}

	txn := model.Transaction{
		Key:           r.Key,
		OperationID:   r.OperationID,
		Kind:          kind,
		Amount:        p.Amount,
		OperationDate: p.OperationDate.Time,
	}

	switch kind {
	case model.KindCardBlockade, model.KindCardSettlement:
		txn.Card = &model.CardData{Card: p.Card, Place: p.Place}
	case model.KindTransfer:
		if p.SettlementDate == nil {
			return model.Transaction{}, fmt.Errorf("%w: entry %s: missing settlement_date", common.ErrInvalidTransaction, r.Key)
		}
		txn.Transfer = &model.TransferData{
			Source:         p.Source,
			Destination:    p.Destination,
			Name:           p.Name,
			Title:          p.Title,
			SettlementDate: p.SettlementDate.Time,
			Saldo:          p.Saldo,
		}
	case model.KindIncrease:
		txn.Increase = &model.IncreaseData{
			Destination: p.Destination,
			Name:        p.Name,
			Title:       p.Title,
			Saldo:       p.Saldo,
		}
	}

	if _, err := txn.AmountValue(); err != nil {
		return model.Transaction{}, fmt.Errorf("%w: entry %s: %w", common.ErrInvalidTransaction, r.Key, err)
	}
	if err := txn.Validate(); err != nil {
		return model.Transaction{}, err
	}
	return txn, nil
}

// EncodeTransaction builds the entry fields for a transaction, the inverse of
// DecodeMessage.
func EncodeTransaction(t *model.Transaction) (map[string]any, error) {
	p := Payload{
		Amount:        t.Amount,
		OperationDate: Date{t.OperationDate},
	}
	switch {
	case t.Card != nil:
		p.Card, p.Place = t.Card.Card, t.Card.Place
	case t.Transfer != nil:
		p.Source = t.Transfer.Source
		p.Destination = t.Transfer.Destination
		p.Name = t.Transfer.Name
		p.Title = t.Transfer.Title
		p.Saldo = t.Transfer.Saldo
		p.SettlementDate = &Date{t.Transfer.SettlementDate}
	case t.Increase != nil:
		p.Destination = t.Increase.Destination
		p.Name = t.Increase.Name
		p.Title = t.Increase.Title
		p.Saldo = t.Increase.Saldo
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return map[string]any{
		FieldType:        string(t.Kind),
		FieldOperationID: strconv.FormatInt(t.OperationID, 10),
		FieldData:        string(data),
	}, nil
}

func stringField(values map[string]any, name string) (string, error) {
	v, ok := values[name]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", common.ErrInvalidTransaction, name)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return fmt.Sprint(v), nil
	}
}
