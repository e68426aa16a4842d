// Package parser classifies raw FCD transactions and extracts mint and
// sale records from their execution logs.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/estensen/mint-profit-pipeline/internal/models"
	"github.com/estensen/mint-profit-pipeline/internal/registry"
	"github.com/estensen/mint-profit-pipeline/internal/token"
)

type txAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type txEvent struct {
	Type       string        `json:"type"`
	Attributes []txAttribute `json:"attributes"`
}

type txLog struct {
	MsgIndex int       `json:"msg_index"`
	Events   []txEvent `json:"events"`
}

type txMsg struct {
	Type  string `json:"type"`
	Value struct {
		Contract   string          `json:"contract"`
		ExecuteMsg json.RawMessage `json:"execute_msg"`
	} `json:"value"`
}

// transaction is the subset of an FCD tx the extractor reads.
type transaction struct {
	TxHash    string  `json:"txhash"`
	Timestamp string  `json:"timestamp"`
	Logs      []txLog `json:"logs"`
	Tx        struct {
		Value struct {
			Msg []txMsg `json:"msg"`
		} `json:"value"`
	} `json:"tx"`
}

// Parser is stateless after construction and safe for concurrent use.
type Parser struct {
	schema   Schema
	registry *registry.Registry
	logger   *zap.Logger
}

func New(schema Schema, reg *registry.Registry, logger *zap.Logger) (*Parser, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema %q: %w", schema.Version, err)
	}
	if reg == nil {
		return nil, fmt.Errorf("parser requires a registry")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		schema:   schema,
		registry: reg,
		logger:   logger.Named("parser"),
	}, nil
}

func decode(raw models.RawTransaction) (*transaction, error) {
	var tx transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, &models.SchemaError{Field: "tx", Reason: fmt.Sprintf("decoding transaction: %v", err)}
	}
	return &tx, nil
}

// hasDirective reports whether an execute_msg object carries a non-null key.
func hasDirective(executeMsg json.RawMessage, directive string) bool {
	if len(executeMsg) == 0 {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(executeMsg, &fields); err != nil {
		return false
	}
	v, ok := fields[directive]
	return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func (p *Parser) classify(tx *transaction) models.TxKind {
	if len(tx.Logs) == 0 {
		return models.KindIgnored
	}
	msgs := tx.Tx.Value.Msg
	if len(msgs) > 0 && hasDirective(msgs[0].Value.ExecuteMsg, p.schema.MintDirective) {
		return models.KindMint
	}
	if len(msgs) == p.schema.SaleMessageCount && hasDirective(msgs[p.schema.SaleMessageIndex].Value.ExecuteMsg, p.schema.SaleDirective) {
		return models.KindSale
	}
	return models.KindIgnored
}

// Decoded is a transaction decoded and classified once, ready for extraction.
type Decoded struct {
	tx   *transaction
	kind models.TxKind
}

func (d *Decoded) Kind() models.TxKind { return d.kind }

func (d *Decoded) TxHash() string { return d.tx.TxHash }

// Decode parses raw and classifies it.
func (p *Parser) Decode(raw models.RawTransaction) (*Decoded, error) {
	tx, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return &Decoded{tx: tx, kind: p.classify(tx)}, nil
}

// Classify decides whether raw is a successful mint, a successful sale, or
// irrelevant. Failed transactions carry no logs and are always ignored.
func (p *Parser) Classify(raw models.RawTransaction) (models.TxKind, error) {
	d, err := p.Decode(raw)
	if err != nil {
		return models.KindIgnored, err
	}
	return d.Kind(), nil
}

func (p *Parser) attribute(tx *transaction, field FieldPath, logIndex int) (string, error) {
	fail := func(reason string) error {
		return &models.SchemaError{Field: field.Name, Path: field.Path(logIndex), TxHash: tx.TxHash, Reason: reason}
	}
	if logIndex < 0 || logIndex >= len(tx.Logs) {
		return "", fail(fmt.Sprintf("missing log (tx has %d)", len(tx.Logs)))
	}
	events := tx.Logs[logIndex].Events
	if field.Event >= len(events) {
		return "", fail(fmt.Sprintf("missing event (log has %d)", len(events)))
	}
	attrs := events[field.Event].Attributes
	if field.Attribute >= len(attrs) {
		return "", fail(fmt.Sprintf("missing attribute (event has %d)", len(attrs)))
	}
	attr := attrs[field.Attribute]
	if field.Key != "" && attr.Key != field.Key {
		return "", fail(fmt.Sprintf("expected key %q, got %q", field.Key, attr.Key))
	}
	if attr.Value == "" {
		return "", fail("empty value")
	}
	return attr.Value, nil
}

// withPath fills in location details on a SchemaError raised by a value parser.
func withPath(err error, field FieldPath, logIndex int, txHash string) error {
	var se *models.SchemaError
	if errors.As(err, &se) {
		return &models.SchemaError{Field: field.Name, Path: field.Path(logIndex), TxHash: txHash, Reason: se.Reason}
	}
	return err
}

// ExtractMint decodes raw and reads its mint record.
func (p *Parser) ExtractMint(raw models.RawTransaction) (models.MintRecord, error) {
	d, err := p.Decode(raw)
	if err != nil {
		return models.MintRecord{}, err
	}
	return p.MintFrom(d)
}

// MintFrom reads the collection, minted token ids and UST spent from a
// random_mint transaction. Every per-message log contributes one token.
func (p *Parser) MintFrom(d *Decoded) (models.MintRecord, error) {
	tx := d.tx
	if d.kind != models.KindMint {
		return models.MintRecord{}, &models.SchemaError{Field: "tx", TxHash: tx.TxHash, Reason: fmt.Sprintf("not a mint transaction (%s)", d.kind)}
	}

	contract, err := p.attribute(tx, p.schema.MintCollection, p.schema.MintCollection.Log)
	if err != nil {
		return models.MintRecord{}, err
	}
	collection, err := p.registry.CollectionName(contract)
	if err != nil {
		return models.MintRecord{}, fmt.Errorf("mint tx %s: %w", tx.TxHash, err)
	}

	record := models.MintRecord{
		TxHash:          tx.TxHash,
		ContractAddress: contract,
		Collection:      collection,
		TokenIDs:        make([]string, 0, len(tx.Logs)),
		Spent:           decimal.Zero,
	}
	seen := make(map[string]struct{}, len(tx.Logs))

	for i := range tx.Logs {
		tokenID, err := p.attribute(tx, p.schema.MintTokenID, i)
		if err != nil {
			return models.MintRecord{}, err
		}
		if _, dup := seen[tokenID]; dup {
			return models.MintRecord{}, &models.SchemaError{
				Field:  p.schema.MintTokenID.Name,
				Path:   p.schema.MintTokenID.Path(i),
				TxHash: tx.TxHash,
				Reason: fmt.Sprintf("token id %q minted twice in one transaction", tokenID),
			}
		}
		seen[tokenID] = struct{}{}

		spentStr, err := p.attribute(tx, p.schema.MintSpent, i)
		if err != nil {
			return models.MintRecord{}, err
		}
		spent, err := token.ParseStableAmount(spentStr)
		if err != nil {
			return models.MintRecord{}, withPath(err, p.schema.MintSpent, i, tx.TxHash)
		}

		record.TokenIDs = append(record.TokenIDs, tokenID)
		record.Spent = record.Spent.Add(spent)
	}
	record.MintedCount = len(record.TokenIDs)

	p.logger.Debug("extracted mint",
		zap.String("tx", record.TxHash),
		zap.String("collection", collection),
		zap.Strings("token_ids", record.TokenIDs))
	return record, nil
}

// ExtractSale decodes raw and reads its sale record.
func (p *Parser) ExtractSale(raw models.RawTransaction) (models.SaleRecord, error) {
	d, err := p.Decode(raw)
	if err != nil {
		return models.SaleRecord{}, err
	}
	return p.SaleFrom(d)
}

// SaleFrom reads the sold token, its collection and the raw proceeds
// from the second log of an execute_order transaction.
func (p *Parser) SaleFrom(d *Decoded) (models.SaleRecord, error) {
	tx := d.tx
	if d.kind != models.KindSale {
		return models.SaleRecord{}, &models.SchemaError{Field: "tx", TxHash: tx.TxHash, Reason: fmt.Sprintf("not a sale transaction (%s)", d.kind)}
	}

	values := make(map[string]string, 4)
	for _, field := range []FieldPath{p.schema.SaleCollection, p.schema.SaleDenom, p.schema.SaleAmount, p.schema.SaleTokenID} {
		v, err := p.attribute(tx, field, field.Log)
		if err != nil {
			return models.SaleRecord{}, err
		}
		values[field.Name] = v
	}

	contract := values[p.schema.SaleCollection.Name]
	collection, err := p.registry.CollectionName(contract)
	if err != nil {
		return models.SaleRecord{}, fmt.Errorf("sale tx %s: %w", tx.TxHash, err)
	}

	// uusd and uluna share the same scale, so the denom does not matter here.
	amount, err := token.ScaleRawAmount(values[p.schema.SaleAmount.Name])
	if err != nil {
		return models.SaleRecord{}, withPath(err, p.schema.SaleAmount, p.schema.SaleAmount.Log, tx.TxHash)
	}

	ts, err := time.Parse(time.RFC3339, tx.Timestamp)
	if err != nil {
		return models.SaleRecord{}, &models.SchemaError{Field: "timestamp", TxHash: tx.TxHash, Reason: fmt.Sprintf("parse %q: %v", tx.Timestamp, err)}
	}

	return models.SaleRecord{
		TxHash:          tx.TxHash,
		ContractAddress: contract,
		Collection:      collection,
		TokenID:         values[p.schema.SaleTokenID.Name],
		Denom:           token.NormalizeDenom(values[p.schema.SaleDenom.Name]),
		Amount:          amount,
		TimestampMs:     ts.UnixMilli(),
	}, nil
}
