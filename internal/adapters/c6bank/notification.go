package c6bank

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kevin07696/collections-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

var errNotJSON = errors.New("notification payload is not JSON")

// Settlement receipts store ids as VARCHAR(100) and amounts as NUMERIC(12,2)
const maxReferenceLength = 100

var maxSettlementAmount = decimal.RequireFromString("9999999999.99")

// NotificationDecoder parses settlement notifications pushed to the webhook.
// Payloads are {"pix":[...]}, a bare array, or a single event object.
type NotificationDecoder struct{}

var _ ports.NotificationDecoder = NotificationDecoder{}

// Split breaks a payload into events
func (NotificationDecoder) Split(payload []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if !json.Valid(trimmed) {
		return nil, errNotJSON
	}

	switch trimmed[0] {
	case '[':
		var events []json.RawMessage
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("failed to split notification batch: %w", err)
		}
		return events, nil

	case '{':
		var envelope struct {
			Pix json.RawMessage `json:"pix"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err == nil && len(envelope.Pix) > 0 {
			var events []json.RawMessage
			if err := json.Unmarshal(envelope.Pix, &events); err != nil {
				// "pix" that is not a list is one malformed event
				return []json.RawMessage{envelope.Pix}, nil
			}
			return events, nil
		}
		return []json.RawMessage{json.RawMessage(trimmed)}, nil

	default:
		return []json.RawMessage{json.RawMessage(trimmed)}, nil
	}
}

// Decode parses one settlement event
func (NotificationDecoder) Decode(raw json.RawMessage) (*ports.SettlementEvent, error) {
	var settlement PixSettlement
	if err := json.Unmarshal(raw, &settlement); err != nil {
		return nil, fmt.Errorf("malformed settlement event: %w", err)
	}

	endToEndID := strings.TrimSpace(settlement.EndToEndID)
	if endToEndID == "" {
		return nil, errors.New("malformed settlement event: endToEndId is required")
	}

	if len(endToEndID) > maxReferenceLength {
		return nil, fmt.Errorf("malformed settlement event: endToEndId longer than %d characters", maxReferenceLength)
	}

	txid := strings.TrimSpace(settlement.TxID)
	if len(txid) > maxReferenceLength {
		return nil, fmt.Errorf("malformed settlement event %s: txid longer than %d characters", endToEndID, maxReferenceLength)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(settlement.Value))
	if err != nil {
		return nil, fmt.Errorf("malformed settlement event %s: invalid valor %q", endToEndID, settlement.Value)
	}
	amount = amount.Round(2)
	if amount.Abs().GreaterThan(maxSettlementAmount) {
		return nil, fmt.Errorf("malformed settlement event %s: valor %s out of range", endToEndID, settlement.Value)
	}

	event := &ports.SettlementEvent{
		EndToEndID: endToEndID,
		ExternalID: txid,
		Amount:     amount,
		PayerInfo:  settlement.PayerInfo,
		Raw:        raw,
	}

	if settlement.Time != "" {
		paidAt, err := time.Parse(time.RFC3339, settlement.Time)
		if err != nil {
			return nil, fmt.Errorf("malformed settlement event %s: invalid horario %q", endToEndID, settlement.Time)
		}
		event.PaidAt = paidAt.UTC()
	}

	return event, nil
}
