// Package config loads layered TOML configuration for payper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7402"
	DefaultDBFileName = ".payper.db"
	DefaultLogLevel   = "info"

	DefaultRPCURL   = "https://evm-t3.cronos.org"
	DefaultChainID  = 338
	DefaultCurrency = "ETH"

	DefaultVerifyTimeoutSeconds       = 15
	DefaultMaxUploadBytes       int64 = 100 * 1024 * 1024
	DefaultMultipartMaxMemory   int64 = 8 * 1024 * 1024

	DefaultAgentDownloadDir = "agent-downloads"

	configFileName           = ".payper.toml"
	configDirEnvKey          = "PAYPER_CONFIG_DIR"
	trustProjectConfigEnvKey = "PAYPER_TRUST_PROJECT_CONFIG"
)

// ChainConfig defines the ledger connection and verification policy.
type ChainConfig struct {
	RPCURL               string `toml:"rpc_url"`
	ChainID              int64  `toml:"chain_id"`
	Currency             string `toml:"currency"`
	MinConfirmations     uint64 `toml:"min_confirmations"`
	SingleUseProofs      bool   `toml:"single_use_proofs"`
	VerifyTimeoutSeconds int    `toml:"verify_timeout_seconds"`
}

// UploadConfig defines runtime configuration for asset uploads.
type UploadConfig struct {
	MaxUploadBytes     int64 `toml:"max_upload_bytes"`
	MultipartMaxMemory int64 `toml:"multipart_max_memory"`
}

// AgentConfig defines the buyer agent's behavior.
type AgentConfig struct {
	DownloadDir string `toml:"download_dir"`
	MaxPrice    string `toml:"max_price"`
}

// Config defines runtime configuration for payper.
type Config struct {
	APIURL                   string       `toml:"api_url"`
	DBPath                   string       `toml:"db_path"`
	DataDir                  string       `toml:"data_dir"`
	LogLevel                 string       `toml:"log_level"`
	Chain                    ChainConfig  `toml:"chain"`
	Uploads                  UploadConfig `toml:"uploads"`
	Agent                    AgentConfig  `toml:"agent"`
	TrustedProjectConfigPath string       `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL: DefaultAPIURL,
		DBPath: "",
		Chain: ChainConfig{
			RPCURL:               DefaultRPCURL,
			ChainID:              DefaultChainID,
			Currency:             DefaultCurrency,
			MinConfirmations:     0,
			SingleUseProofs:      false,
			VerifyTimeoutSeconds: DefaultVerifyTimeoutSeconds,
		},
		Uploads: UploadConfig{
			MaxUploadBytes:     DefaultMaxUploadBytes,
			MultipartMaxMemory: DefaultMultipartMaxMemory,
		},
		Agent: AgentConfig{
			DownloadDir: DefaultAgentDownloadDir,
		},
	}
}

// Load builds the effective configuration: defaults, then the global file
// (or PAYPER_CONFIG_DIR override), then an opted-in project file, then
// environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if apiURL := os.Getenv("PAYPER_API_URL"); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv("PAYPER_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if rpcURL := os.Getenv("PAYPER_RPC_URL"); rpcURL != "" {
		cfg.Chain.RPCURL = rpcURL
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

func (c *Config) normalizeDefaults() {
	if c.Chain.Currency == "" {
		c.Chain.Currency = DefaultCurrency
	}
	if c.Chain.VerifyTimeoutSeconds <= 0 {
		c.Chain.VerifyTimeoutSeconds = DefaultVerifyTimeoutSeconds
	}
	if c.Uploads.MaxUploadBytes <= 0 {
		c.Uploads.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Uploads.MultipartMaxMemory <= 0 {
		c.Uploads.MultipartMaxMemory = DefaultMultipartMaxMemory
	}
	if c.Agent.DownloadDir == "" {
		c.Agent.DownloadDir = DefaultAgentDownloadDir
	}
}

// BlobRoot returns the directory used for asset blob storage.
func (c *Config) BlobRoot() string {
	if c.DataDir != "" {
		return filepath.Join(c.DataDir, "blobs")
	}
	return filepath.Join(filepath.Dir(c.DBPath), ".payper", "blobs")
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"data_dir",
	"log_level",
	"chain.rpc_url",
	"chain.chain_id",
	"chain.currency",
	"chain.min_confirmations",
	"chain.single_use_proofs",
	"chain.verify_timeout_seconds",
	"uploads.max_upload_bytes",
	"uploads.multipart_max_memory",
	"agent.download_dir",
	"agent.max_price",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "data_dir":
		return c.DataDir, nil
	case "log_level":
		return c.LogLevel, nil
	case "chain.rpc_url":
		return c.Chain.RPCURL, nil
	case "chain.chain_id":
		return strconv.FormatInt(c.Chain.ChainID, 10), nil
	case "chain.currency":
		return c.Chain.Currency, nil
	case "chain.min_confirmations":
		return strconv.FormatUint(c.Chain.MinConfirmations, 10), nil
	case "chain.single_use_proofs":
		return strconv.FormatBool(c.Chain.SingleUseProofs), nil
	case "chain.verify_timeout_seconds":
		return strconv.Itoa(c.Chain.VerifyTimeoutSeconds), nil
	case "uploads.max_upload_bytes":
		return strconv.FormatInt(c.Uploads.MaxUploadBytes, 10), nil
	case "uploads.multipart_max_memory":
		return strconv.FormatInt(c.Uploads.MultipartMaxMemory, 10), nil
	case "agent.download_dir":
		return c.Agent.DownloadDir, nil
	case "agent.max_price":
		return c.Agent.MaxPrice, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// Set assigns a config key from its string representation.
func (c *Config) Set(key, value string) error {
	switch key {
	case "api_url":
		c.APIURL = value
	case "db_path":
		c.DBPath = value
	case "data_dir":
		c.DataDir = value
	case "log_level":
		c.LogLevel = value
	case "chain.rpc_url":
		c.Chain.RPCURL = value
	case "chain.chain_id":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chain id %q", value)
		}
		c.Chain.ChainID = parsed
	case "chain.currency":
		c.Chain.Currency = value
	case "chain.min_confirmations":
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid min confirmations %q", value)
		}
		c.Chain.MinConfirmations = parsed
	case "chain.single_use_proofs":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid single_use_proofs %q", value)
		}
		c.Chain.SingleUseProofs = parsed
	case "chain.verify_timeout_seconds":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid verify timeout %q", value)
		}
		c.Chain.VerifyTimeoutSeconds = parsed
	case "uploads.max_upload_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid max upload bytes %q", value)
		}
		c.Uploads.MaxUploadBytes = parsed
	case "uploads.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid multipart max memory %q", value)
		}
		c.Uploads.MultipartMaxMemory = parsed
	case "agent.download_dir":
		c.Agent.DownloadDir = value
	case "agent.max_price":
		c.Agent.MaxPrice = value
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// ProjectPath returns the path to the project-local config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
// Only the keys present in the file are written, so defaults stay live.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "chain.chain_id":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer", key)
		}
		return parsed, nil
	case "chain.min_confirmations":
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a non-negative integer", key)
		}
		return parsed, nil
	case "chain.single_use_proofs":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "chain.verify_timeout_seconds":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "uploads.max_upload_bytes", "uploads.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// Save writes the configuration to path as TOML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}
