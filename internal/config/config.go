package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/IgorGrieder/link-registry/internal/infrastructure/validation"
	"github.com/IgorGrieder/link-registry/internal/processing/links"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Keys      KeysConfig
	Shortener ShortenerConfig
	Security  SecurityConfig
	OTel      OTelConfig
}

type AppConfig struct {
	Name     string
	Version  string
	Env      string
	LogLevel string
}

type ServerConfig struct {
	Port string
	Host string
}

type StorageConfig struct {
	Backend string `validate:"oneof=memory mongo postgres"`
}

type MongoDBConfig struct {
	URI      string
	Database string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
}

// DSN renders the libpq keyword/value connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Name, p.SSLMode)
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type KafkaConfig struct {
	Enabled      bool
	Brokers      []string `validate:"required_if=Enabled true"`
	Topic        string   `validate:"required_if=Enabled true"`
	WriteTimeout time.Duration

	BreakerFailures int
	BreakerCooldown time.Duration
}

type KeysConfig struct {
	Alphabet  string `validate:"required,keyalphabet"`
	Length    int    `validate:"gte=1,lte=32"`
	Forbidden []string
	Drawer    string `validate:"oneof=nanoid random"`
}

type ShortenerConfig struct {
	BaseURL        string
	RedirectStatus int `validate:"oneof=301 302"`
}

type SecurityConfig struct {
	APIKeys []string
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		App: AppConfig{
			Name:     GetEnv("APP_NAME", "link-registry"),
			Version:  GetEnv("APP_VERSION", "0.1.0"),
			Env:      GetEnv("APP_ENV", "development"),
			LogLevel: GetEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: GetEnv("APP_PORT", "8080"),
			Host: GetEnv("APP_HOST", "localhost"),
		},
		Storage: StorageConfig{
			Backend: GetEnv("STORAGE_BACKEND", "memory"),
		},
		MongoDB: MongoDBConfig{
			URI:      GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: GetEnv("MONGODB_DATABASE", "links"),
		},
		Postgres: PostgresConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "5432"),
			User:     GetEnv("DB_USER", "postgres"),
			Password: GetEnv("DB_PASSWORD", "postgres"),
			Name:     GetEnv("DB_NAME", "links"),
			SSLMode:  GetEnv("DB_SSL_MODE", "disable"),
			MaxConns: GetEnvInt("DB_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			Enabled:  GetEnvBool("REDIS_ENABLED", false),
			Addr:     GetEnv("REDIS_ADDR", "localhost:6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvInt("REDIS_DB", 0),
			CacheTTL: GetEnvDuration("REDIS_CACHE_TTL", time.Hour),
		},
		Kafka: KafkaConfig{
			Enabled:      GetEnvBool("KAFKA_ENABLED", false),
			Brokers:      SplitCSV(GetEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:        GetEnv("KAFKA_TOPIC", "links.generated"),
			WriteTimeout: GetEnvDuration("KAFKA_WRITE_TIMEOUT", 2*time.Second),

			BreakerFailures: GetEnvInt("KAFKA_BREAKER_FAILURES", 5),
			BreakerCooldown: GetEnvDuration("KAFKA_BREAKER_COOLDOWN", 30*time.Second),
		},
		Keys: KeysConfig{
			Alphabet:  GetEnvRaw("KEY_ALPHABET", links.DefaultKeyAlphabet),
			Length:    GetEnvInt("KEY_LENGTH", links.DefaultKeyLength),
			Forbidden: SplitCSV(GetEnv("FORBIDDEN_KEYS", "")),
			Drawer:    GetEnv("KEY_DRAWER", "nanoid"),
		},
		Shortener: ShortenerConfig{
			BaseURL:        GetEnv("SHORTENER_BASE_URL", "http://localhost:8080"),
			RedirectStatus: GetEnvInt("REDIRECT_STATUS", 302),
		},
		Security: SecurityConfig{
			APIKeys: SplitCSV(GetEnv("API_KEYS", "")),
		},
		OTel: OTelConfig{
			Enabled:  GetEnvBool("OTEL_ENABLED", false),
			Endpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section and the key configuration precondition.
func (c *Config) Validate() error {
	sections := []any{c.Storage, c.Kafka, c.Keys, c.Shortener}
	for _, s := range sections {
		if err := validation.Validate(s); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	if n := len(distinctRunes(c.Keys.Alphabet)); n < 2 {
		return fmt.Errorf("invalid configuration: KEY_ALPHABET needs at least 2 distinct characters (got %d)", n)
	}
	if c.Keys.CoversKeyspace() {
		return errors.New("invalid configuration: FORBIDDEN_KEYS covers every possible key")
	}
	return nil
}

// CoversKeyspace reports whether the forbidden set contains every key the
// alphabet and length can produce. Drawing would never terminate then.
func (k KeysConfig) CoversKeyspace() bool {
	alphabet := distinctRunes(k.Alphabet)

	drawable := make(map[string]struct{})
	for _, key := range k.Forbidden {
		if isDrawable(key, alphabet, k.Length) {
			drawable[key] = struct{}{}
		}
	}
	if len(drawable) == 0 {
		return false
	}

	keyspace := 1
	for range k.Length {
		keyspace *= len(alphabet)
		if keyspace > len(drawable) {
			return false
		}
	}
	return keyspace <= len(drawable)
}

func isDrawable(key string, alphabet map[rune]struct{}, length int) bool {
	n := 0
	for _, r := range key {
		if _, ok := alphabet[r]; !ok {
			return false
		}
		n++
	}
	return n == length
}

func distinctRunes(s string) map[rune]struct{} {
	set := make(map[rune]struct{})
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}
