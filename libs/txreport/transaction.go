package txreport

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Transaction is one booking row from the transaction sheet. Field names
// follow the sheet columns.
type Transaction struct {
	ID              FlexString `json:"id"`
	Name            FlexString `json:"nama"`
	Destinations    FlexString `json:"destinasi"`
	Passengers      FlexInt    `json:"penumpang"`
	DepartureDate   FlexString `json:"tanggal_berangkat"`
	DepartureTime   FlexString `json:"waktu_berangkat"`
	Vehicle         FlexString `json:"kendaraan"`
	Total           Amount     `json:"total"`
	Status          FlexString `json:"status"`
	Code            FlexString `json:"kode"`
	TransactionTime FlexString `json:"waktu_transaksi"`
	TransactionDate FlexString `json:"tanggal_transaksi"`
}

// DestinationLabels splits the comma-joined destination column into trimmed,
// non-empty names.
func (t Transaction) DestinationLabels() []string {
	var labels []string
	for _, part := range strings.Split(string(t.Destinations), ",") {
		if name := strings.TrimSpace(part); name != "" {
			labels = append(labels, name)
		}
	}
	return labels
}

// Amount is a money value that decodes leniently: numbers and numeric
// strings are kept, anything else becomes zero.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount { return Amount{Decimal: d} }

func (a *Amount) UnmarshalJSON(data []byte) error {
	a.Decimal = decimal.Zero
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		text = strings.TrimSpace(s)
	}
	if parsed, err := decimal.NewFromString(text); err == nil {
		a.Decimal = parsed
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// FlexString accepts a JSON string, number or bool and keeps its text.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		*s = ""
	case raw[0] == '"':
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			*s = ""
			return nil
		}
		*s = FlexString(v)
	case raw[0] == '{' || raw[0] == '[':
		*s = ""
	default:
		*s = FlexString(raw)
	}
	return nil
}

func (s FlexString) String() string { return string(s) }

// FlexInt accepts a JSON number or numeric string; anything else is zero.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	var text FlexString
	_ = text.UnmarshalJSON(data)
	value, err := strconv.ParseFloat(strings.TrimSpace(string(text)), 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = FlexInt(value)
	return nil
}
