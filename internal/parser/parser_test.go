package parser_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estensen/mint-profit-pipeline/internal/models"
	"github.com/estensen/mint-profit-pipeline/internal/parser"
	"github.com/estensen/mint-profit-pipeline/internal/registry"
	"github.com/estensen/mint-profit-pipeline/internal/testutil"
)

const (
	hellCats = "terra1uv9w7aaq6lu2kn0asnvknlcgg2xd5ts57ss7qt"
	luni     = "terra1nyqyxamvuhtd8h756tkqsejc7plj6lr5gdfj5e"
)

func newParser(t *testing.T) *parser.Parser {
	t.Helper()
	reg, err := registry.New([]string{"bot1"}, []string{"other1"}, map[string]string{
		hellCats: "HellCats",
		luni:     "LUNI",
	})
	require.NoError(t, err)
	p, err := parser.New(parser.DefaultSchema(), reg, nil)
	require.NoError(t, err)
	return p
}

func TestClassify(t *testing.T) {
	p := newParser(t)

	twoMsgNoOrder := testutil.SaleTx("h5", hellCats, "uusd", "1", "1", "2022-01-10T10:00:00Z")
	twoMsgNoOrder.Tx.Value.Msg[1].Value["execute_msg"] = map[string]any{"cancel_order": map[string]any{}}

	nullDirective := testutil.MintTx("h6", hellCats, []string{"1"}, []string{"1uusd"})
	nullDirective.Tx.Value.Msg[0].Value["execute_msg"] = map[string]any{"random_mint": nil}

	tests := []struct {
		name     string
		tx       testutil.Tx
		expected models.TxKind
	}{
		{name: "successful mint", tx: testutil.MintTx("h1", hellCats, []string{"7", "8"}, []string{"1uusd", "1uusd"}), expected: models.KindMint},
		{name: "successful sale", tx: testutil.SaleTx("h2", hellCats, "uusd", "1", "7", "2022-01-10T10:00:00Z"), expected: models.KindSale},
		{name: "failed mint has no logs", tx: testutil.FailedTx("h3"), expected: models.KindIgnored},
		{name: "plain transfer", tx: testutil.TransferTx("h4"), expected: models.KindIgnored},
		{name: "two messages without execute_order", tx: twoMsgNoOrder, expected: models.KindIgnored},
		{name: "null directive", tx: nullDirective, expected: models.KindIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := p.Classify(tt.tx.Raw())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}
}

func TestClassifyMalformed(t *testing.T) {
	p := newParser(t)

	_, err := p.Classify(models.RawTransaction(`[1,2,3]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSchema))
}

func TestExtractMint(t *testing.T) {
	p := newParser(t)

	tx := testutil.MintTx("hash1", hellCats, []string{"7", "8"}, []string{"50000000uusd", "50000000uusd"})
	record, err := p.ExtractMint(tx.Raw())
	require.NoError(t, err)

	assert.Equal(t, "hash1", record.TxHash)
	assert.Equal(t, hellCats, record.ContractAddress)
	assert.Equal(t, "HellCats", record.Collection)
	assert.Equal(t, []string{"7", "8"}, record.TokenIDs)
	assert.Equal(t, 2, record.MintedCount)
	assert.Equal(t, "100", record.Spent.String())
}

func TestExtractMintErrors(t *testing.T) {
	p := newParser(t)

	missingEvent := testutil.MintTx("h1", hellCats, []string{"7", "8"}, []string{"1uusd", "1uusd"})
	missingEvent.Logs[1].Events = missingEvent.Logs[1].Events[:6]

	missingAttr := testutil.MintTx("h2", hellCats, []string{"7"}, []string{"1uusd"})
	missingAttr.Logs[0].Events[3].Attributes = missingAttr.Logs[0].Events[3].Attributes[:3]

	tests := []struct {
		name        string
		tx          testutil.Tx
		expectedErr error
		path        string
	}{
		{
			name:        "unknown collection",
			tx:          testutil.MintTx("h0", "terra1unknown", []string{"7"}, []string{"1uusd"}),
			expectedErr: models.ErrLookup,
		},
		{
			name:        "missing token event in second log",
			tx:          missingEvent,
			expectedErr: models.ErrSchema,
			path:        "logs[1].events[6].attributes[7]",
		},
		{
			name:        "missing collection attribute",
			tx:          missingAttr,
			expectedErr: models.ErrSchema,
			path:        "logs[0].events[3].attributes[3]",
		},
		{
			name:        "spent in luna",
			tx:          testutil.MintTx("h3", hellCats, []string{"7"}, []string{"5000000uluna"}),
			expectedErr: models.ErrSchema,
			path:        "logs[0].events[0].attributes[1]",
		},
		{
			name:        "duplicate token in one tx",
			tx:          testutil.MintTx("h4", hellCats, []string{"7", "7"}, []string{"1uusd", "1uusd"}),
			expectedErr: models.ErrSchema,
			path:        "logs[1].events[6].attributes[7]",
		},
		{
			name:        "sale is not a mint",
			tx:          testutil.SaleTx("h5", hellCats, "uusd", "1", "7", "2022-01-10T10:00:00Z"),
			expectedErr: models.ErrSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ExtractMint(tt.tx.Raw())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.expectedErr), "got %v", err)
			if tt.path != "" {
				var se *models.SchemaError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, tt.path, se.Path)
				assert.Equal(t, tt.tx.TxHash, se.TxHash)
			}
		})
	}
}

func TestExtractSale(t *testing.T) {
	p := newParser(t)

	tx := testutil.SaleTx("sale1", luni, "uluna", "2500000", "42", "2022-01-15T08:30:00Z")
	record, err := p.ExtractSale(tx.Raw())
	require.NoError(t, err)

	assert.Equal(t, "sale1", record.TxHash)
	assert.Equal(t, "LUNI", record.Collection)
	assert.Equal(t, "42", record.TokenID)
	assert.Equal(t, "uluna", record.Denom)
	assert.Equal(t, "2.5", record.Amount.String())
	assert.Equal(t, int64(1642235400000), record.TimestampMs)
}

func TestExtractSaleErrors(t *testing.T) {
	p := newParser(t)

	tests := []struct {
		name        string
		tx          testutil.Tx
		expectedErr error
	}{
		{name: "unknown collection", tx: testutil.SaleTx("h1", "terra1unknown", "uusd", "1", "7", "2022-01-10T10:00:00Z"), expectedErr: models.ErrLookup},
		{name: "amount not an integer", tx: testutil.SaleTx("h2", hellCats, "uusd", "12.5", "7", "2022-01-10T10:00:00Z"), expectedErr: models.ErrSchema},
		{name: "bad timestamp", tx: testutil.SaleTx("h3", hellCats, "uusd", "1", "7", "yesterday"), expectedErr: models.ErrSchema},
		{name: "mint is not a sale", tx: testutil.MintTx("h4", hellCats, []string{"7"}, []string{"1uusd"}), expectedErr: models.ErrSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ExtractSale(tt.tx.Raw())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.expectedErr), "got %v", err)
		})
	}
}

func TestDecodeThenExtract(t *testing.T) {
	p := newParser(t)

	mintTx := testutil.MintTx("mint1", hellCats, []string{"7", "8"}, []string{"1000000uusd", "2000000uusd"})
	dec, err := p.Decode(mintTx.Raw())
	require.NoError(t, err)
	assert.Equal(t, models.KindMint, dec.Kind())
	assert.Equal(t, "mint1", dec.TxHash())

	fromDecoded, err := p.MintFrom(dec)
	require.NoError(t, err)
	fromRaw, err := p.ExtractMint(mintTx.Raw())
	require.NoError(t, err)
	assert.Equal(t, fromRaw, fromDecoded)

	_, err = p.SaleFrom(dec)
	assert.True(t, errors.Is(err, models.ErrSchema), "got %v", err)

	saleTx := testutil.SaleTx("sale1", luni, "uusd", "5000000", "42", "2022-01-15T08:30:00Z")
	dec, err = p.Decode(saleTx.Raw())
	require.NoError(t, err)
	assert.Equal(t, models.KindSale, dec.Kind())

	sale, err := p.SaleFrom(dec)
	require.NoError(t, err)
	saleFromRaw, err := p.ExtractSale(saleTx.Raw())
	require.NoError(t, err)
	assert.Equal(t, saleFromRaw, sale)

	_, err = p.Decode(models.RawTransaction(`[1,2,3]`))
	assert.True(t, errors.Is(err, models.ErrSchema), "got %v", err)
}

func TestAttributeKeyCheck(t *testing.T) {
	reg, err := registry.New(nil, nil, map[string]string{hellCats: "HellCats"})
	require.NoError(t, err)

	schema := parser.DefaultSchema()
	schema.MintTokenID.Key = "token_id"
	p, err := parser.New(schema, reg, nil)
	require.NoError(t, err)

	tx := testutil.MintTx("h1", hellCats, []string{"7"}, []string{"1uusd"})
	_, err = p.ExtractMint(tx.Raw())
	require.NoError(t, err)

	tx.Logs[0].Events[6].Attributes[7].Key = "owner"
	_, err = p.ExtractMint(tx.Raw())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSchema))
}

func TestSchemaValidate(t *testing.T) {
	require.NoError(t, parser.DefaultSchema().Validate())

	broken := parser.DefaultSchema()
	broken.Version = ""
	broken.SaleTokenID.Attribute = -1
	assert.Error(t, broken.Validate())

	fixedLog := parser.DefaultSchema()
	fixedLog.MintSpent.Log = 0
	assert.Error(t, fixedLog.Validate())
}
