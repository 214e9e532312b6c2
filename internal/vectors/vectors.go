// Package vectors loads the mainnet spending vectors under testdata/vectors
// for use in tests across packages.
package vectors

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/validkeys/pkg/txdata"
)

// Vector is one real spending transaction together with the previous
// transactions it spends and the keys expected to verify for Input.
type Vector struct {
	Name  string `json:"name"`
	Tx    string `json:"tx"`
	Input int    `json:"input"`
	Kind  string `json:"kind"`

	// PrevTx is set for non-taproot vectors: the transaction whose output
	// Input spends.
	PrevTx     string `json:"prev_tx"`
	PrevValue  int64  `json:"prev_value"`
	PrevScript string `json:"prev_script"`

	// PrevTxs is set for taproot vectors: one previous transaction per
	// input of Tx.
	PrevTxs []string `json:"prev_txs"`

	LeafHash       string `json:"leaf_hash"`
	SighashAll     string `json:"sighash_all"`
	SighashDefault string `json:"sighash_default"`

	ExpectedKeys []string `json:"expected_keys"`
}

// Path returns the directory holding the JSON vector files.
func Path() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "testdata", "vectors")
}

// Load reads every vector from validkeys.json.
func Load(t testing.TB) []Vector {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(Path(), "validkeys.json"))
	require.NoError(t, err, "Failed to read test vectors file")

	var vectors []Vector
	require.NoError(t, json.Unmarshal(data, &vectors), "Failed to parse JSON")
	require.NotEmpty(t, vectors)

	return vectors
}

// Bytes hex-decodes s, failing the test on error.
func Bytes(t testing.TB, s string) []byte {
	t.Helper()

	b, err := hex.DecodeString(s)
	require.NoError(t, err, "invalid hex: %s", s)
	return b
}

// Decode returns the spending transaction and its prevout set.
func (v Vector) Decode(t testing.TB) (*wire.MsgTx, txdata.PrevoutSet) {
	t.Helper()

	tx, err := txdata.DecodeTransactionHex(v.Tx)
	require.NoError(t, err)

	if v.PrevTx != "" {
		prev, err := txdata.DecodeTransactionHex(v.PrevTx)
		require.NoError(t, err)

		set, err := txdata.PrevoutFromTx(tx, v.Input, prev)
		require.NoError(t, err)
		return tx, set
	}

	prevTxs := make([]*wire.MsgTx, len(v.PrevTxs))
	for i, raw := range v.PrevTxs {
		prev, err := txdata.DecodeTransactionHex(raw)
		require.NoError(t, err)
		prevTxs[i] = prev
	}

	set, err := txdata.PrevoutsFromTxs(tx, prevTxs)
	require.NoError(t, err)
	return tx, set
}

// RawPrevTxs returns the raw previous transactions aligned with the
// spending transaction's inputs. Non-taproot vectors only populate Input.
func (v Vector) RawPrevTxs(t testing.TB, numInputs int) [][]byte {
	t.Helper()

	raws := make([][]byte, numInputs)
	if v.PrevTx != "" {
		raws[v.Input] = Bytes(t, v.PrevTx)
		return raws
	}
	for i, raw := range v.PrevTxs {
		raws[i] = Bytes(t, raw)
	}
	return raws
}
