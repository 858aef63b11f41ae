package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"

	"QuantumLink/internal/attestation"
	"QuantumLink/internal/config"
	"QuantumLink/internal/logger"
)

func main() {
	logger.Init()

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run(args []string) error {
	flags, set, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(flags, set)
	if err != nil {
		return err
	}

	logger.InitWith(os.Stdout, logger.ParseLevel(cfg.Node.LogLevel))

	key, err := loadOrGenerateKey(cfg.Node.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	node, err := NewNode(&cfg)
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}

	printStartupInfo(&cfg, key)

	return node.Run()
}

// printStartupInfo displays the node identity and configuration at startup.
// The printed keys are what other operators list under [[validators]].
func printStartupInfo(cfg *config.Config, key ed25519.PrivateKey) {
	pubKey := key.Public().(ed25519.PublicKey)

	var blsHex string
	if kp, err := attestation.DeriveFromED25519(key); err == nil {
		pk := kp.PublicKey()
		blsHex = hex.EncodeToString(pk[:])
	}

	logger.Info("starting QuantumLink bridge",
		"pubkey", hex.EncodeToString(pubKey),
		"bls", blsHex,
		"http", cfg.Node.HTTPAddress,
		"data", cfg.Node.DataPath,
		"validators", len(cfg.Validators),
	)
}
