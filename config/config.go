package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Address wraps a 20-byte account address to support YAML
// unmarshalling from hex strings (with or without a 0x prefix).
type Address struct {
	Bytes [20]byte
}

// UnmarshalYAML parses a hex-encoded address.
func (a *Address) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("address must be a hex string")
	}
	raw := strings.TrimPrefix(strings.TrimSpace(value.Value), "0x")
	if raw == "" {
		return nil
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("parse address %q: %w", value.Value, err)
	}
	if len(decoded) != 20 {
		return fmt.Errorf("address %q must be 20 bytes", value.Value)
	}
	copy(a.Bytes[:], decoded)
	return nil
}

// IsZero reports whether the address was left unset.
func (a Address) IsZero() bool { return a.Bytes == ([20]byte{}) }

// TokenConfig registers one fungible asset with the custody adapter.
type TokenConfig struct {
	Symbol string `yaml:"symbol"`
}

// FeeConfig selects the fee policy and its rate.
type FeeConfig struct {
	Policy string `yaml:"policy"`
	Rate   uint32 `yaml:"rate"`
}

// Config captures runtime configuration for swapd.
type Config struct {
	ListenAddress string        `yaml:"listen"`
	DatabasePath  string        `yaml:"database"`
	Environment   string        `yaml:"env"`
	Owner         Address       `yaml:"owner"`
	Vault         Address       `yaml:"vault"`
	Treasury      Address       `yaml:"treasury"`
	Fee           FeeConfig     `yaml:"fee"`
	Tokens        []TokenConfig `yaml:"tokens"`
}

// Default returns the configuration used when no file is supplied.
// An empty database path selects the in-memory store.
func Default() Config {
	return Config{
		ListenAddress: ":8090",
		Fee:           FeeConfig{Policy: "flat_bps", Rate: 0},
	}
}

// Load reads and validates a YAML configuration file, applying defaults
// for omitted fields.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: listen address required")
	}
	if c.Owner.IsZero() {
		return fmt.Errorf("config: owner address required")
	}
	if c.Vault.IsZero() {
		return fmt.Errorf("config: vault address required")
	}
	if c.Treasury.IsZero() {
		return fmt.Errorf("config: treasury address required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Fee.Policy)) {
	case "flat_bps", "dual_percent":
	default:
		return fmt.Errorf("config: unknown fee policy %q", c.Fee.Policy)
	}
	seen := make(map[string]struct{}, len(c.Tokens))
	for _, tok := range c.Tokens {
		symbol := strings.ToUpper(strings.TrimSpace(tok.Symbol))
		if symbol == "" {
			return fmt.Errorf("config: token symbol must not be empty")
		}
		if _, dup := seen[symbol]; dup {
			return fmt.Errorf("config: duplicate token symbol %s", symbol)
		}
		seen[symbol] = struct{}{}
	}
	return nil
}
