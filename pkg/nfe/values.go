package nfe

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sirosfoundation/go-fiscal/pkg/scalar"
)

// Scalar types shared with the NFS-e builders.
type (
	Text    = scalar.Text
	Decimal = scalar.Decimal
)

// Dec returns a pointer to v, for optional fields.
func Dec(v float64) *Decimal { return scalar.Dec(v) }

// TaxGroup is a one-of tax section such as {"ICMS00": {...}} or
// {"PISAliq": {...}}. Name is the variant tag and Fields its members,
// copied verbatim.
type TaxGroup struct {
	Name   string
	Fields map[string]Text
}

// UnmarshalJSON implements json.Unmarshaler. The first key of the object
// selects the variant.
func (g *TaxGroup) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("tax group must be an object")
	}
	if !dec.More() {
		return fmt.Errorf("tax group has no variant")
	}
	tok, err = dec.Token()
	if err != nil {
		return err
	}
	name, _ := tok.(string)
	fields := map[string]Text{}
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("tax group %s: %w", name, err)
	}
	g.Name = name
	g.Fields = fields
	return nil
}

// MarshalJSON implements json.Marshaler.
func (g TaxGroup) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]map[string]Text{g.Name: g.Fields})
}
