package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Schema externalizes the relational table and column names. The two store
// generations disagree on key types and relationships, so nothing is
// hard-coded; deployments override via environment.
type Schema struct {
	UserTable        string `mapstructure:"SCHEMA_USER_TABLE"`
	PatientTable     string `mapstructure:"SCHEMA_PATIENT_TABLE"`
	EncounterTable   string `mapstructure:"SCHEMA_ENCOUNTER_TABLE"`
	ObservationTable string `mapstructure:"SCHEMA_OBSERVATION_TABLE"`
	ConditionTable   string `mapstructure:"SCHEMA_CONDITION_TABLE"`

	UserKeyColumn          string `mapstructure:"SCHEMA_USER_KEY_COLUMN"`
	PatientKeyColumn       string `mapstructure:"SCHEMA_PATIENT_KEY_COLUMN"`
	EncounterDoctorColumn  string `mapstructure:"SCHEMA_ENCOUNTER_DOCTOR_COLUMN"`
	EncounterPatientColumn string `mapstructure:"SCHEMA_ENCOUNTER_PATIENT_COLUMN"`
}

type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	RegistryDatabaseURL string `mapstructure:"REGISTRY_DATABASE_URL"`
	RecordsDatabaseURL  string `mapstructure:"RECORDS_DATABASE_URL"`
	DBMaxConns          int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32  `mapstructure:"DB_MIN_CONNS"`

	DirectoryBaseURL      string `mapstructure:"DIRECTORY_BASE_URL"`
	DirectoryRealm        string `mapstructure:"DIRECTORY_REALM"`
	DirectoryClientID     string `mapstructure:"DIRECTORY_CLIENT_ID"`
	DirectoryClientSecret string `mapstructure:"DIRECTORY_CLIENT_SECRET"`

	AuthIssuer   string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL  string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience string `mapstructure:"AUTH_AUDIENCE"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	LookupConcurrency  int `mapstructure:"LOOKUP_CONCURRENCY"`
	PredicateChunkSize int `mapstructure:"PREDICATE_CHUNK_SIZE"`

	Schema Schema `mapstructure:",squash"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DIRECTORY_REALM", "clinic")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("LOOKUP_CONCURRENCY", 8)
	v.SetDefault("PREDICATE_CHUNK_SIZE", 1000)

	v.SetDefault("SCHEMA_USER_TABLE", "user_account")
	v.SetDefault("SCHEMA_PATIENT_TABLE", "patient")
	v.SetDefault("SCHEMA_ENCOUNTER_TABLE", "encounter")
	v.SetDefault("SCHEMA_OBSERVATION_TABLE", "observation")
	v.SetDefault("SCHEMA_CONDITION_TABLE", "condition_log")
	v.SetDefault("SCHEMA_USER_KEY_COLUMN", "user_id")
	v.SetDefault("SCHEMA_PATIENT_KEY_COLUMN", "patient_id")
	v.SetDefault("SCHEMA_ENCOUNTER_DOCTOR_COLUMN", "doctor_id")
	v.SetDefault("SCHEMA_ENCOUNTER_PATIENT_COLUMN", "patient_id")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV",
		"REGISTRY_DATABASE_URL", "RECORDS_DATABASE_URL",
		"DB_MAX_CONNS", "DB_MIN_CONNS",
		"DIRECTORY_BASE_URL", "DIRECTORY_REALM",
		"DIRECTORY_CLIENT_ID", "DIRECTORY_CLIENT_SECRET",
		"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE",
		"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"LOOKUP_CONCURRENCY", "PREDICATE_CHUNK_SIZE",
		"SCHEMA_USER_TABLE", "SCHEMA_PATIENT_TABLE",
		"SCHEMA_ENCOUNTER_TABLE", "SCHEMA_OBSERVATION_TABLE", "SCHEMA_CONDITION_TABLE",
		"SCHEMA_USER_KEY_COLUMN", "SCHEMA_PATIENT_KEY_COLUMN",
		"SCHEMA_ENCOUNTER_DOCTOR_COLUMN", "SCHEMA_ENCOUNTER_PATIENT_COLUMN",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.RegistryDatabaseURL == "" {
		return nil, fmt.Errorf("REGISTRY_DATABASE_URL is required")
	}
	if cfg.RecordsDatabaseURL == "" {
		return nil, fmt.Errorf("RECORDS_DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// the directory and the JWT issuer must be configured so real authentication
// and cross-store resolution are possible.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.AuthIssuer == "" {
			return fmt.Errorf("AUTH_ISSUER must be set when ENV=%q; refusing to start without authentication", c.Env)
		}
		if c.DirectoryBaseURL == "" {
			return fmt.Errorf("DIRECTORY_BASE_URL is required when ENV=%q", c.Env)
		}
		if c.DirectoryClientID == "" || c.DirectoryClientSecret == "" {
			return fmt.Errorf("DIRECTORY_CLIENT_ID and DIRECTORY_CLIENT_SECRET are required when ENV=%q", c.Env)
		}
	}
	if c.LookupConcurrency < 1 {
		return fmt.Errorf("LOOKUP_CONCURRENCY must be at least 1, got %d", c.LookupConcurrency)
	}
	if c.PredicateChunkSize < 1 {
		return fmt.Errorf("PREDICATE_CHUNK_SIZE must be at least 1, got %d", c.PredicateChunkSize)
	}
	return nil
}
