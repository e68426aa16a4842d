package parser

import (
	"errors"
	"fmt"
)

// EachLog selects every per-message log rather than a fixed one.
const EachLog = -1

// FieldPath names one attribute position inside a transaction's logs.
type FieldPath struct {
	Name      string
	Log       int
	Event     int
	Attribute int
	// Key, when set, must match the attribute's key.
	Key string
}

// Path renders the location for logIndex, e.g. logs[1].events[6].attributes[10].
func (p FieldPath) Path(logIndex int) string {
	return fmt.Sprintf("logs[%d].events[%d].attributes[%d]", logIndex, p.Event, p.Attribute)
}

// Schema is the positional layout of mint and sale transactions.
type Schema struct {
	Version string

	MintDirective    string
	SaleDirective    string
	SaleMessageCount int
	SaleMessageIndex int

	MintCollection FieldPath
	MintTokenID    FieldPath
	MintSpent      FieldPath

	SaleCollection FieldPath
	SaleDenom      FieldPath
	SaleAmount     FieldPath
	SaleTokenID    FieldPath
}

// DefaultSchema matches Terra FCD responses for random_mint launchpad
// contracts and the marketplace execute_order flow.
func DefaultSchema() Schema {
	return Schema{
		Version: "terra-fcd-v1",

		MintDirective:    "random_mint",
		SaleDirective:    "execute_order",
		SaleMessageCount: 2,
		SaleMessageIndex: 1,

		MintCollection: FieldPath{Name: "mint.collection_contract", Log: 0, Event: 3, Attribute: 3},
		MintTokenID:    FieldPath{Name: "mint.token_id", Log: EachLog, Event: 6, Attribute: 7},
		MintSpent:      FieldPath{Name: "mint.spent", Log: EachLog, Event: 0, Attribute: 1},

		SaleCollection: FieldPath{Name: "sale.collection_contract", Log: 1, Event: 6, Attribute: 10},
		SaleDenom:      FieldPath{Name: "sale.denom", Log: 1, Event: 6, Attribute: 7},
		SaleAmount:     FieldPath{Name: "sale.amount", Log: 1, Event: 6, Attribute: 9},
		SaleTokenID:    FieldPath{Name: "sale.token_id", Log: 1, Event: 6, Attribute: 11},
	}
}

func (s Schema) fields() []FieldPath {
	return []FieldPath{
		s.MintCollection, s.MintTokenID, s.MintSpent,
		s.SaleCollection, s.SaleDenom, s.SaleAmount, s.SaleTokenID,
	}
}

// Validate rejects schemas with missing names or impossible positions.
func (s Schema) Validate() error {
	var errs []error
	if s.Version == "" {
		errs = append(errs, errors.New("schema version is required"))
	}
	if s.MintDirective == "" || s.SaleDirective == "" {
		errs = append(errs, errors.New("mint and sale directives are required"))
	}
	if s.SaleMessageIndex < 0 || s.SaleMessageIndex >= s.SaleMessageCount {
		errs = append(errs, fmt.Errorf("sale message index %d out of range for %d messages", s.SaleMessageIndex, s.SaleMessageCount))
	}
	for _, f := range s.fields() {
		if f.Name == "" {
			errs = append(errs, errors.New("field path without a name"))
			continue
		}
		if f.Log < EachLog || f.Event < 0 || f.Attribute < 0 {
			errs = append(errs, fmt.Errorf("field %s has a negative position", f.Name))
		}
	}
	if s.MintTokenID.Log != EachLog || s.MintSpent.Log != EachLog {
		errs = append(errs, errors.New("mint token id and spent must be read from each log"))
	}
	return errors.Join(errs...)
}
