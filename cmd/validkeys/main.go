// validkeys CLI - reports which public keys signed a transaction input
//
// Given a spending transaction and the previous transactions it spends,
// validkeys walks the spending data of an input and prints every public key
// whose signature verifies.
//
// Example usage:
//
//	# Verify input 0, given the transaction whose output it spends
//	validkeys --tx 0100... --input 0 --prevtx 0100...
//
//	# Verify every input of a taproot spend, one previous tx per input
//	validkeys --tx 0200... --all --prevtx 0100... --prevtx 0200...
//
//	# Verify an input of a finalized PSBT
//	validkeys --psbt cHNidP8B... --input 1
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/suffix-labs/validkeys/pkg/api"
	"github.com/suffix-labs/validkeys/pkg/crypto"
	"github.com/suffix-labs/validkeys/pkg/sigcache"
	"github.com/suffix-labs/validkeys/pkg/txdata"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil
	}

	log := cfg.setupLogging(api.UseLogger)

	tx, prevouts, err := loadTransaction(cfg)
	if err != nil {
		return err
	}

	opts := []api.Option{api.WithSigCache(sigcache.New(cfg.SigCacheSize))}
	params := cfg.netParams()

	if !cfg.All {
		result, err := api.VerifySpendingInput(tx, cfg.Input, prevouts, opts...)
		if err != nil {
			return err
		}
		printResult(result, params)
		return nil
	}

	log.Debugf("Verifying %d inputs of %v", len(tx.TxIn), tx.TxHash())
	for _, report := range api.VerifyTransaction(context.Background(), tx, prevouts, opts...) {
		if report.Err != nil {
			fmt.Printf("Input %d: unverifiable input: %v\n", report.InputIndex, report.Err)
			continue
		}
		printResult(report.Result, params)
	}
	return nil
}

// loadTransaction returns the spending transaction and its prevouts, from
// either a PSBT or raw transactions.
func loadTransaction(cfg *config) (*wire.MsgTx, txdata.PrevoutSet, error) {
	if cfg.PSBT != "" {
		return txdata.DecodePacket([]byte(cfg.PSBT), true)
	}

	tx, err := txdata.DecodeTransactionHex(cfg.Tx)
	if err != nil {
		return nil, nil, fmt.Errorf("spending transaction: %w", err)
	}

	prevouts, err := loadPrevouts(cfg, tx)
	if err != nil {
		return nil, nil, err
	}
	return tx, prevouts, nil
}

// loadPrevouts decodes the --prevtx arguments into a prevout set aligned
// with tx.
func loadPrevouts(cfg *config, tx *wire.MsgTx) (txdata.PrevoutSet, error) {
	if len(cfg.PrevTxs) == 1 && len(tx.TxIn) > 1 {
		if cfg.All {
			return nil, fmt.Errorf("--all needs one --prevtx per input, got 1 for %d inputs",
				len(tx.TxIn))
		}
		if err := txdata.CheckInputIndex(tx, cfg.Input); err != nil {
			return nil, err
		}

		prevTx, err := txdata.DecodeTransactionHex(cfg.PrevTxs[0])
		if err != nil {
			return nil, fmt.Errorf("previous transaction: %w", err)
		}
		return txdata.PrevoutFromTx(tx, cfg.Input, prevTx)
	}

	prevTxs := make([]*wire.MsgTx, len(cfg.PrevTxs))
	for i, raw := range cfg.PrevTxs {
		prevTx, err := txdata.DecodeTransactionHex(raw)
		if err != nil {
			return nil, fmt.Errorf("previous transaction %d: %w", i, err)
		}
		prevTxs[i] = prevTx
	}
	return txdata.PrevoutsFromTxs(tx, prevTxs)
}

func printResult(result *api.Result, params *chaincfg.Params) {
	fmt.Printf("Input %d: %v\n", result.InputIndex, result.Kind)

	if len(result.Keys) == 0 {
		if result.Reason != nil {
			fmt.Printf("  %v (%v)\n", result.Status, result.Reason)
		} else {
			fmt.Printf("  %v\n", result.Status)
		}
		return
	}

	for i, key := range result.Keys {
		if result.Schemes[i] != crypto.SchemeECDSA {
			fmt.Printf("  %x\n", key)
			continue
		}

		addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(key), params)
		if err != nil {
			fmt.Printf("  %x\n", key)
			continue
		}
		fmt.Printf("  %x (%s)\n", key, addr.EncodeAddress())
	}
	if !result.Satisfied {
		fmt.Println("  signatures do not satisfy the script")
	}
}
