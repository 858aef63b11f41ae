package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"os"

	"QuantumLink/internal/config"
)

// Flags holds the command-line options. Flags that are set override the
// corresponding config file values.
type Flags struct {
	ConfigPath  string // ConfigPath is the TOML file, empty for defaults
	DataPath    string
	HTTPAddress string
	KeyPath     string
	LogLevel    string
}

// parseFlags parses command-line flags into Flags.
func parseFlags(args []string) (*Flags, map[string]bool, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("bridged", flag.ContinueOnError)

	fs.StringVar(&f.ConfigPath, "config", "", "TOML config file path")
	fs.StringVar(&f.DataPath, "data", "./data", "Data directory path")
	fs.StringVar(&f.HTTPAddress, "http", ":8080", "HTTP API address")
	fs.StringVar(&f.KeyPath, "key", "", "Ed25519 private key path (generates new if missing)")
	fs.StringVar(&f.LogLevel, "log-level", "info", "Minimum log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	return f, set, nil
}

// loadConfig reads the config file, if any, and applies the flags that were set.
func loadConfig(f *Flags, set map[string]bool) (config.Config, error) {
	cfg := config.Default()

	if f.ConfigPath != "" {
		var err error
		if cfg, err = config.ReadConfig(f.ConfigPath); err != nil {
			return cfg, err
		}
	}

	if set["data"] {
		cfg.Node.DataPath = f.DataPath
	}

	if set["http"] {
		cfg.Node.HTTPAddress = f.HTTPAddress
	}

	if set["key"] {
		cfg.Node.KeyPath = f.KeyPath
	}

	if set["log-level"] {
		cfg.Node.LogLevel = f.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config:\n%w", err)
	}

	return cfg, nil
}

// loadOrGenerateKey loads the private key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

// generateNewKey creates a new Ed25519 private key.
func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}
