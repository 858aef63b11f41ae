// Package config loads the bridge daemon configuration from a TOML file.
package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"QuantumLink/internal/bridge"
	"QuantumLink/internal/validator"
)

// BridgeConfig holds the state machine parameters.
type BridgeConfig struct {
	MaxTransactions  int    `toml:"max-transactions"`
	MaxAssets        int    `toml:"max-assets"`
	MaxValidators    int    `toml:"max-validators"`
	MinQuorum        int    `toml:"min-quorum"`
	Threshold        int    `toml:"threshold"` // Threshold is M; 0 picks the validator set suggestion
	MinLockAmount    uint64 `toml:"min-lock-amount"`
	MaxLockAmount    uint64 `toml:"max-lock-amount"`
	SourceChain      uint8  `toml:"source-chain"`
	DestinationChain uint8  `toml:"destination-chain"`
	Custody          string `toml:"custody"` // Custody is the hex custody address
	Admin            string `toml:"admin"`   // Admin is the hex ed25519 key allowed to pause
}

// ValidatorConfig is one validator set member.
type ValidatorConfig struct {
	Key string `toml:"key"` // Key is the hex ed25519 public key
	BLS string `toml:"bls"` // BLS is the hex compressed BLS public key
}

// BalanceConfig is one genesis balance on the local ledger.
type BalanceConfig struct {
	Address string `toml:"address"`
	Amount  uint64 `toml:"amount"`
}

// NodeConfig holds daemon runtime settings.
type NodeConfig struct {
	DataPath         string   `toml:"data-path"`
	HTTPAddress      string   `toml:"http-address"`
	KeyPath          string   `toml:"key-path"`
	LogLevel         string   `toml:"log-level"`
	Durable          bool     `toml:"durable"` // Durable fsyncs every journal commit
	SnapshotDir      string   `toml:"snapshot-dir"`
	SnapshotInterval Duration `toml:"snapshot-interval"`
	TickInterval     Duration `toml:"tick-interval"`
	VotePoolLimit    int      `toml:"vote-pool-limit"`
}

// Config is the full daemon configuration.
type Config struct {
	Node       NodeConfig        `toml:"node"`
	Bridge     BridgeConfig      `toml:"bridge"`
	Validators []ValidatorConfig `toml:"validators"`
	Genesis    []BalanceConfig   `toml:"genesis"`
}

// Duration is a time.Duration decoded from strings like "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q:\n%w", text, err)
	}

	d.Duration = v

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with the reference limits and local paths.
func Default() Config {
	limits := bridge.DefaultLimits()

	return Config{
		Node: NodeConfig{
			DataPath:         "./data",
			HTTPAddress:      ":8080",
			LogLevel:         "info",
			Durable:          true,
			SnapshotDir:      "./data/snapshots",
			SnapshotInterval: Duration{time.Minute},
			TickInterval:     Duration{time.Second},
			VotePoolLimit:    limits.MaxTransactions,
		},
		Bridge: BridgeConfig{
			MaxTransactions:  limits.MaxTransactions,
			MaxAssets:        limits.MaxAssets,
			MaxValidators:    limits.MaxValidators,
			MinQuorum:        limits.MinQuorum,
			SourceChain:      uint8(bridge.ChainQubic),
			DestinationChain: uint8(bridge.ChainSolana),
		},
	}
}

// ReadConfig decodes path over the defaults. Keys absent from the file keep
// their default value.
func ReadConfig(path string) (Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("decode %s:\n%w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}

	return cfg, nil
}

// Limits returns the capacity bounds.
func (c *Config) Limits() bridge.Limits {
	return bridge.Limits{
		MaxTransactions: c.Bridge.MaxTransactions,
		MaxAssets:       c.Bridge.MaxAssets,
		MaxValidators:   c.Bridge.MaxValidators,
		MinQuorum:       c.Bridge.MinQuorum,
	}
}

// Members decodes the validator set.
func (c *Config) Members() ([]validator.Member, error) {
	members := make([]validator.Member, len(c.Validators))

	for i, v := range c.Validators {
		key, err := validator.ParsePublicKey(v.Key)
		if err != nil {
			return nil, fmt.Errorf("validator %d:\n%w", i, err)
		}

		members[i].Key = key

		if v.BLS == "" {
			continue
		}

		bls, err := validator.ParseBLSKey(v.BLS)
		if err != nil {
			return nil, fmt.Errorf("validator %d:\n%w", i, err)
		}

		members[i].BLS = bls
	}

	return members, nil
}

// BridgeConfig builds the state machine configuration for a set of the
// given size. A zero threshold takes suggested.
func (c *Config) BridgeConfig(suggested int) (bridge.Config, error) {
	custody, err := ParseAddress(c.Bridge.Custody)
	if err != nil {
		return bridge.Config{}, fmt.Errorf("custody:\n%w", err)
	}

	threshold := c.Bridge.Threshold
	if threshold == 0 {
		threshold = suggested
	}

	return bridge.Config{
		Limits:           c.Limits(),
		Threshold:        threshold,
		MinLockAmount:    c.Bridge.MinLockAmount,
		MaxLockAmount:    c.Bridge.MaxLockAmount,
		SourceChain:      bridge.ChainID(c.Bridge.SourceChain),
		DestinationChain: bridge.ChainID(c.Bridge.DestinationChain),
		Custody:          custody,
	}, nil
}

// AdminKey decodes the admin key. ok is false when none is configured.
func (c *Config) AdminKey() (key bridge.PublicKey, ok bool, err error) {
	if c.Bridge.Admin == "" {
		return key, false, nil
	}

	key, err = validator.ParsePublicKey(c.Bridge.Admin)
	if err != nil {
		return key, false, fmt.Errorf("admin:\n%w", err)
	}

	return key, true, nil
}

// GenesisBalances decodes the genesis allocation. Repeated addresses are summed.
func (c *Config) GenesisBalances() (map[bridge.Address]uint64, error) {
	out := make(map[bridge.Address]uint64, len(c.Genesis))

	for i, b := range c.Genesis {
		addr, err := ParseAddress(b.Address)
		if err != nil {
			return nil, fmt.Errorf("genesis %d:\n%w", i, err)
		}

		sum := out[addr] + b.Amount
		if sum < b.Amount {
			return nil, fmt.Errorf("genesis %d: balance of %s overflows", i, addr)
		}

		out[addr] = sum
	}

	return out, nil
}

// Validate checks everything that can be checked without opening storage.
func (c *Config) Validate() error {
	if err := c.Limits().Validate(); err != nil {
		return err
	}

	members, err := c.Members()
	if err != nil {
		return err
	}

	set, err := validator.NewSet(members, c.Bridge.MaxValidators)
	if err != nil {
		return fmt.Errorf("validator set:\n%w", err)
	}

	bc, err := c.BridgeConfig(set.SuggestedThreshold())
	if err != nil {
		return err
	}

	if err := bc.Validate(set.Len()); err != nil {
		return err
	}

	if _, _, err := c.AdminKey(); err != nil {
		return err
	}

	if _, err := c.GenesisBalances(); err != nil {
		return err
	}

	if c.Node.SnapshotInterval.Duration < 0 || c.Node.TickInterval.Duration <= 0 {
		return fmt.Errorf("tick interval must be positive and snapshot interval non-negative")
	}

	if c.Node.VotePoolLimit <= 0 {
		return fmt.Errorf("vote pool limit must be positive, got %d", c.Node.VotePoolLimit)
	}

	return nil
}

// ParseAddress decodes a hex 32-byte address.
func ParseAddress(s string) (bridge.Address, error) {
	var addr bridge.Address

	b, err := hex.DecodeString(s)
	if err != nil {
		return addr, fmt.Errorf("decode address:\n%w", err)
	}

	if len(b) != len(addr) {
		return addr, fmt.Errorf("address must be %d bytes, got %d", len(addr), len(b))
	}

	copy(addr[:], b)

	return addr, nil
}
