// Package config loads runtime settings from the environment, an optional
// .env file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"chirp-backend/contracts"
	"chirp-backend/pinning"
)

const (
	DriverSanity   = "sanity"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Keys double as environment variable names.
const (
	KeyPort             = "PORT"
	KeyDatastoreDriver  = "DATASTORE_DRIVER"
	KeySanityProjectID  = "SANITY_PROJECT_ID"
	KeySanityDataset    = "SANITY_DATASET"
	KeySanityToken      = "SANITY_TOKEN"
	KeySanityAPIVersion = "SANITY_API_VERSION"
	KeySanityBaseURL    = "SANITY_BASE_URL"
	KeyDatabaseURL      = "DATABASE_URL"
	KeyPinataAPIKey     = "PINATA_API_KEY"
	KeyPinataSecretKey  = "PINATA_SECRET_API_KEY"
	KeyPinataBaseURL    = "PINATA_BASE_URL"
	KeyGatewayURL       = "IPFS_GATEWAY_URL"
	KeyRPCURL           = "RPC_URL"
	KeyKeystoreDir      = "KEYSTORE_DIR"
	KeyKeystorePass     = "KEYSTORE_PASSPHRASE"
	KeyContractAddress  = "NFT_CONTRACT_ADDRESS"
	KeyCORSOrigins      = "CORS_ORIGINS"
	KeyRateLimitRPS     = "RATE_LIMIT_RPS"
	KeyRateLimitBurst   = "RATE_LIMIT_BURST"
	KeyLogDevelopment   = "LOG_DEVELOPMENT"
)

type Config struct {
	Port string

	DatastoreDriver  string
	SanityProjectID  string
	SanityDataset    string
	SanityToken      string
	SanityAPIVersion string
	SanityBaseURL    string
	DatabaseURL      string

	PinataAPIKey    string
	PinataSecretKey string
	PinataBaseURL   string
	GatewayURL      string

	RPCURL             string
	KeystoreDir        string
	KeystorePassphrase string
	ContractAddress    string

	CORSOrigins    []string
	RateLimitRPS   int
	RateLimitBurst int
	LogDevelopment bool
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyDatastoreDriver, DriverSanity)
	v.SetDefault(KeySanityDataset, "production")
	v.SetDefault(KeySanityAPIVersion, "2024-03-05")
	v.SetDefault(KeyPinataBaseURL, pinning.DefaultBaseURL)
	v.SetDefault(KeyGatewayURL, pinning.DefaultGatewayURL)
	v.SetDefault(KeyRPCURL, "https://base-sepolia-rpc.publicnode.com")
	v.SetDefault(KeyContractAddress, contracts.DefaultProfileImageNFTAddress)
	v.SetDefault(KeyCORSOrigins, "http://localhost:3000,http://localhost:3001,http://localhost:3002")
	v.SetDefault(KeyRateLimitRPS, 10)
	v.SetDefault(KeyRateLimitBurst, 20)
	v.SetDefault(KeyLogDevelopment, false)
}

// LoadDotEnv reads .env into the process environment if it exists. It
// reports whether a file was loaded.
func LoadDotEnv(paths ...string) bool {
	return godotenv.Load(paths...) == nil
}

// Load reads every key from v, which must already have defaults, env
// binding and flags applied.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:               v.GetString(KeyPort),
		DatastoreDriver:    strings.ToLower(v.GetString(KeyDatastoreDriver)),
		SanityProjectID:    v.GetString(KeySanityProjectID),
		SanityDataset:      v.GetString(KeySanityDataset),
		SanityToken:        v.GetString(KeySanityToken),
		SanityAPIVersion:   v.GetString(KeySanityAPIVersion),
		SanityBaseURL:      v.GetString(KeySanityBaseURL),
		DatabaseURL:        v.GetString(KeyDatabaseURL),
		PinataAPIKey:       v.GetString(KeyPinataAPIKey),
		PinataSecretKey:    v.GetString(KeyPinataSecretKey),
		PinataBaseURL:      v.GetString(KeyPinataBaseURL),
		GatewayURL:         v.GetString(KeyGatewayURL),
		RPCURL:             v.GetString(KeyRPCURL),
		KeystoreDir:        v.GetString(KeyKeystoreDir),
		KeystorePassphrase: v.GetString(KeyKeystorePass),
		ContractAddress:    v.GetString(KeyContractAddress),
		CORSOrigins:        splitList(v.GetString(KeyCORSOrigins)),
		RateLimitRPS:       v.GetInt(KeyRateLimitRPS),
		RateLimitBurst:     v.GetInt(KeyRateLimitBurst),
		LogDevelopment:     v.GetBool(KeyLogDevelopment),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings needed by the selected driver are present.
func (c *Config) Validate() error {
	var errs []error
	switch c.DatastoreDriver {
	case DriverSanity:
		if c.SanityProjectID == "" && c.SanityBaseURL == "" {
			errs = append(errs, fmt.Errorf("%s is required for the %s driver", KeySanityProjectID, DriverSanity))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("%s is required for the %s driver", KeyDatabaseURL, DriverPostgres))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown %s %q", KeyDatastoreDriver, c.DatastoreDriver))
	}
	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyPort))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("%s and %s must be positive", KeyRateLimitRPS, KeyRateLimitBurst))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
