package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Graph backends accepted by GRAPH_BACKEND
const (
	GraphBackendPostgres = "postgres"
	GraphBackendNeo4j    = "neo4j"
)

type Config struct {
	Port                    string        `mapstructure:"PORT"`
	Env                     string        `mapstructure:"ENV"`
	LogLevel                string        `mapstructure:"LOG_LEVEL"`
	FirebaseCredentialsPath string        `mapstructure:"FIREBASE_CREDENTIALS_PATH"`
	PostgresConnStr         string        `mapstructure:"POSTGRES_CONN_STR"`
	MongoURI                string        `mapstructure:"MONGO_URI"`
	MongoDatabase           string        `mapstructure:"MONGO_DATABASE"`
	MetricsPort             string        `mapstructure:"METRICS_PORT"`
	JWTSecret               string        `mapstructure:"JWT_SECRET"`
	JWTTTL                  time.Duration `mapstructure:"JWT_TTL"`
	FeedPageSize            int           `mapstructure:"FEED_PAGE_SIZE"`
	GraphBackend            string        `mapstructure:"GRAPH_BACKEND"`
	Neo4jURI                string        `mapstructure:"NEO4J_URI"`
	Neo4jUser               string        `mapstructure:"NEO4J_USER"`
	Neo4jPassword           string        `mapstructure:"NEO4J_PASSWORD"`
	MigrateOnStart          bool          `mapstructure:"MIGRATE_ON_START"`
}

var defaults = map[string]any{
	"PORT":                      "8080",
	"ENV":                       "development",
	"LOG_LEVEL":                 "",
	"FIREBASE_CREDENTIALS_PATH": "",
	"POSTGRES_CONN_STR":         "",
	"MONGO_URI":                 "",
	"MONGO_DATABASE":            "socialmedia",
	"METRICS_PORT":              "9090",
	"JWT_SECRET":                "",
	"JWT_TTL":                   "72h",
	"FEED_PAGE_SIZE":            10,
	"GRAPH_BACKEND":             GraphBackendPostgres,
	"NEO4J_URI":                 "bolt://localhost:7687",
	"NEO4J_USER":                "neo4j",
	"NEO4J_PASSWORD":            "",
	"MIGRATE_ON_START":          true,
}

// devJWTSecret is only accepted when ENV=development.
const devJWTSecret = "supersecretjwtkey"

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.GraphBackend = strings.ToLower(strings.TrimSpace(cfg.GraphBackend))
	if cfg.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.JWTSecret = devJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks required keys and enumerations.
func (c *Config) Validate() error {
	var missing []string
	if c.PostgresConnStr == "" {
		missing = append(missing, "POSTGRES_CONN_STR")
	}
	if c.MongoURI == "" {
		missing = append(missing, "MONGO_URI")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	switch c.GraphBackend {
	case GraphBackendPostgres:
	case GraphBackendNeo4j:
		if c.Neo4jURI == "" {
			return fmt.Errorf("missing required config: NEO4J_URI")
		}
	default:
		return fmt.Errorf("unsupported GRAPH_BACKEND %q", c.GraphBackend)
	}

	if c.FeedPageSize <= 0 {
		return fmt.Errorf("FEED_PAGE_SIZE must be positive, got %d", c.FeedPageSize)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	return nil
}
