package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btclog"
	flags "github.com/jessevdk/go-flags"

	"github.com/suffix-labs/validkeys/pkg/sigcache"
)

const (
	defaultLogLevel = "info"
	logSubsystem    = "VKEY"
)

type config struct {
	Tx           string   `short:"t" long:"tx" description:"Hex-encoded spending transaction"`
	PSBT         string   `long:"psbt" description:"Base64-encoded finalized PSBT, instead of --tx and --prevtx"`
	Input        int      `short:"i" long:"input" description:"Index of the input to verify"`
	PrevTxs      []string `short:"p" long:"prevtx" description:"Hex-encoded previous transaction. Give one per input in input order, or a single one for the input under test"`
	All          bool     `short:"a" long:"all" description:"Verify every input (needs one --prevtx per input)"`
	TestNet      bool     `long:"testnet" description:"Format addresses for the test network"`
	SigCacheSize uint     `long:"sigcachesize" description:"Maximum number of verified signatures to cache"`
	DebugLevel   string   `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical, off}"`
}

// loadConfig parses the command line. It returns a nil config when help was
// requested.
func loadConfig() (*config, error) {
	cfg := config{
		SigCacheSize: sigcache.DefaultMaxEntries,
		DebugLevel:   defaultLogLevel,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, err
	}

	if _, ok := btclog.LevelFromString(cfg.DebugLevel); !ok {
		return nil, fmt.Errorf("invalid debug level %q", cfg.DebugLevel)
	}
	if cfg.Input < 0 {
		return nil, fmt.Errorf("input index must not be negative")
	}

	switch {
	case cfg.Tx == "" && cfg.PSBT == "":
		return nil, fmt.Errorf("one of --tx or --psbt is required")
	case cfg.Tx != "" && cfg.PSBT != "":
		return nil, fmt.Errorf("--tx and --psbt can't be used together")
	case cfg.Tx != "" && len(cfg.PrevTxs) == 0:
		return nil, fmt.Errorf("at least one --prevtx is required with --tx")
	}

	return &cfg, nil
}

// netParams returns the network addresses are formatted for.
func (c *config) netParams() *chaincfg.Params {
	if c.TestNet {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

// setupLogging installs a stdout backend at the configured level and hands
// the subsystem logger to the library.
func (c *config) setupLogging(use func(btclog.Logger)) btclog.Logger {
	backend := btclog.NewBackend(os.Stdout)
	logger := backend.Logger(logSubsystem)

	level, _ := btclog.LevelFromString(c.DebugLevel)
	logger.SetLevel(level)

	use(logger)
	return logger
}
