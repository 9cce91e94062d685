// Package config loads the settler configuration from a TOML file, a .env
// file and QRAFFLE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/tonkeeper/tongo/wallet"

	"qraffle/internal/logger"
)

const (
	EnvDatabasePath   = "QRAFFLE_DATABASE_PATH"
	EnvProgramID      = "QRAFFLE_PROGRAM_ID"
	EnvAdminKeypair   = "QRAFFLE_ADMIN_KEYPAIR"
	EnvAdminMnemonic  = "QRAFFLE_ADMIN_MNEMONIC"
	EnvAdminProceeds  = "QRAFFLE_ADMIN_PROCEEDS"
	EnvLogLevel       = "QRAFFLE_LOG_LEVEL"
	EnvMetricsAddress = "QRAFFLE_METRICS_ADDRESS"
)

var (
	ErrMissingProgramID = errors.New("config: program id is required")
	ErrMissingAdminKey  = errors.New("config: admin keypair or mnemonic is required")
	ErrAmbiguousAdmin   = errors.New("config: set either admin keypair or admin mnemonic, not both")
)

type Config struct {
	Database DatabaseConfig       `toml:"Database"`
	Logger   logger.Configuration `toml:"Logger"`
	Program  ProgramConfig        `toml:"Program"`
	Settler  SettlerConfig        `toml:"Settler"`
	Metrics  MetricsConfig        `toml:"Metrics"`
}

type DatabaseConfig struct {
	Path string `toml:"Path"`
}

type ProgramConfig struct {
	ID            string `toml:"ID"`
	AdminKeypair  string `toml:"AdminKeypair"`
	AdminMnemonic string `toml:"AdminMnemonic"`
	AdminProceeds string `toml:"AdminProceeds"`
}

type SettlerConfig struct {
	PollInterval time.Duration `toml:"PollInterval"`
}

type MetricsConfig struct {
	Address string `toml:"Address"`
}

func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "persistent.db"},
		Logger: logger.Configuration{
			LogFile:   "logs/settler.log",
			ErrorFile: "logs/settler.error.log",
			Level:     "info",
			Console:   true,
		},
		Settler: SettlerConfig{PollInterval: 30 * time.Second},
		Metrics: MetricsConfig{Address: ":9100"},
	}
}

// Load reads path over the defaults, then applies .env and the environment.
// An empty path or a missing .env file is not an error; a missing path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown keys: %v", path, undecoded)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	override(&c.Database.Path, EnvDatabasePath)
	override(&c.Program.ID, EnvProgramID)
	override(&c.Program.AdminKeypair, EnvAdminKeypair)
	override(&c.Program.AdminMnemonic, EnvAdminMnemonic)
	override(&c.Program.AdminProceeds, EnvAdminProceeds)
	override(&c.Logger.Level, EnvLogLevel)
	override(&c.Metrics.Address, EnvMetricsAddress)
}

func override(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok {
		*target = strings.TrimSpace(value)
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("config: database path is required")
	}
	if _, err := c.ProgramID(); err != nil {
		return err
	}
	if c.Program.AdminKeypair != "" && c.Program.AdminMnemonic != "" {
		return ErrAmbiguousAdmin
	}
	if c.Program.AdminProceeds != "" {
		if _, err := solana.PublicKeyFromBase58(c.Program.AdminProceeds); err != nil {
			return fmt.Errorf("config: admin proceeds: %w", err)
		}
	}
	if c.Settler.PollInterval <= 0 {
		return fmt.Errorf("config: settler poll interval must be positive, got %s", c.Settler.PollInterval)
	}
	return nil
}

func (c *Config) ProgramID() (solana.PublicKey, error) {
	if c.Program.ID == "" {
		return solana.PublicKey{}, ErrMissingProgramID
	}
	id, err := solana.PublicKeyFromBase58(c.Program.ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("config: program id: %w", err)
	}
	return id, nil
}

// AdminProceeds returns the token account the settler pays escrows into.
func (c *Config) AdminProceeds() (solana.PublicKey, error) {
	if c.Program.AdminProceeds == "" {
		return solana.PublicKey{}, errors.New("config: admin proceeds account is required")
	}
	return solana.PublicKeyFromBase58(c.Program.AdminProceeds)
}

// AdminKey loads the admin signing key from a solana-keygen JSON file or
// derives it from a mnemonic.
func (c *Config) AdminKey() (solana.PrivateKey, error) {
	switch {
	case c.Program.AdminKeypair != "" && c.Program.AdminMnemonic != "":
		return nil, ErrAmbiguousAdmin
	case c.Program.AdminKeypair != "":
		key, err := solana.PrivateKeyFromSolanaKeygenFile(c.Program.AdminKeypair)
		if err != nil {
			return nil, fmt.Errorf("config: admin keypair: %w", err)
		}
		return key, nil
	case c.Program.AdminMnemonic != "":
		pk, err := wallet.SeedToPrivateKey(c.Program.AdminMnemonic)
		if err != nil {
			return nil, fmt.Errorf("config: admin mnemonic: %w", err)
		}
		return solana.PrivateKey(pk), nil
	default:
		return nil, ErrMissingAdminKey
	}
}
