// Package testutil builds FCD-shaped raw transactions for tests.
package testutil

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/estensen/mint-profit-pipeline/internal/models"
)

type Attr struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Event struct {
	Type       string `json:"type"`
	Attributes []Attr `json:"attributes"`
}

type Log struct {
	MsgIndex int     `json:"msg_index"`
	Events   []Event `json:"events"`
}

type Msg struct {
	Type  string         `json:"type"`
	Value map[string]any `json:"value"`
}

type Tx struct {
	TxHash    string `json:"txhash"`
	Timestamp string `json:"timestamp"`
	Logs      []Log  `json:"logs"`
	Tx        struct {
		Type  string `json:"type"`
		Value struct {
			Msg []Msg `json:"msg"`
		} `json:"value"`
	} `json:"tx"`
}

// Raw encodes tx as a raw transaction.
func (tx Tx) Raw() models.RawTransaction {
	b, err := json.Marshal(tx)
	if err != nil {
		panic(err)
	}
	return b
}

func filler(n int, prefix string) []Attr {
	attrs := make([]Attr, n)
	for i := range attrs {
		attrs[i] = Attr{Key: fmt.Sprintf("%s_%d", prefix, i), Value: fmt.Sprintf("v%d", i)}
	}
	return attrs
}

func executeMsg(contract, directive string) Msg {
	return Msg{
		Type: "wasm/MsgExecuteContract",
		Value: map[string]any{
			"contract":    contract,
			"execute_msg": map[string]any{directive: map[string]any{}},
		},
	}
}

// MintLog builds one per-message log of a random_mint transaction.
func MintLog(index int, contract, tokenID, spent string) Log {
	events := make([]Event, 7)
	for i := range events {
		events[i] = Event{Type: fmt.Sprintf("event_%d", i), Attributes: filler(8, "attr")}
	}
	events[0].Type = "coin_spent"
	events[0].Attributes[1] = Attr{Key: "amount", Value: spent}
	events[3].Attributes[3] = Attr{Key: "contract_address", Value: contract}
	events[6].Type = "wasm"
	events[6].Attributes[7] = Attr{Key: "token_id", Value: tokenID}
	return Log{MsgIndex: index, Events: events}
}

// MintTx builds a successful random_mint transaction with one message per
// token. spent[i] is the coin string logged for tokenIDs[i].
func MintTx(hash, contract string, tokenIDs, spent []string) Tx {
	var tx Tx
	tx.TxHash = hash
	tx.Timestamp = "2022-01-10T10:00:00Z"
	for i, id := range tokenIDs {
		tx.Tx.Value.Msg = append(tx.Tx.Value.Msg, executeMsg("terra1launchpad", "random_mint"))
		tx.Logs = append(tx.Logs, MintLog(i, contract, id, spent[i]))
	}
	return tx
}

// SaleTx builds a successful two-message execute_order transaction.
func SaleTx(hash, contract, denom, amount, tokenID, timestamp string) Tx {
	var tx Tx
	tx.TxHash = hash
	tx.Timestamp = timestamp
	tx.Tx.Value.Msg = []Msg{
		executeMsg(contract, "approve"),
		executeMsg("terra1marketplace", "execute_order"),
	}

	first := Log{MsgIndex: 0, Events: []Event{{Type: "message", Attributes: filler(2, "attr")}}}
	events := make([]Event, 7)
	for i := range events {
		events[i] = Event{Type: fmt.Sprintf("event_%d", i), Attributes: filler(12, "attr")}
	}
	events[6].Type = "wasm"
	events[6].Attributes[7] = Attr{Key: "denom", Value: denom}
	events[6].Attributes[9] = Attr{Key: "amount", Value: amount}
	events[6].Attributes[10] = Attr{Key: "nft_address", Value: contract}
	events[6].Attributes[11] = Attr{Key: "token_id", Value: tokenID}
	tx.Logs = []Log{first, {MsgIndex: 1, Events: events}}
	return tx
}

// FailedTx has messages but no logs.
func FailedTx(hash string) Tx {
	var tx Tx
	tx.TxHash = hash
	tx.Timestamp = "2022-01-10T10:00:00Z"
	tx.Tx.Value.Msg = []Msg{executeMsg("terra1launchpad", "random_mint")}
	return tx
}

// TransferTx is a successful transaction that is neither a mint nor a sale.
func TransferTx(hash string) Tx {
	var tx Tx
	tx.TxHash = hash
	tx.Timestamp = "2022-01-10T10:00:00Z"
	tx.Tx.Value.Msg = []Msg{{Type: "bank/MsgSend", Value: map[string]any{"amount": []any{}}}}
	tx.Logs = []Log{{MsgIndex: 0, Events: []Event{{Type: "transfer", Attributes: filler(3, "attr")}}}}
	return tx
}
