package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Storage:   StorageConfig{Backend: "memory"},
		Kafka:     KafkaConfig{Enabled: false},
		Keys:      KeysConfig{Alphabet: "abcdefghijklmnopqrstuvwxyz0123456789", Length: 5, Drawer: "nanoid"},
		Shortener: ShortenerConfig{BaseURL: "http://localhost:8080", RedirectStatus: 302},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"postgres backend", func(c *Config) { c.Storage.Backend = "postgres" }, ""},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }, "Backend"},
		{"kafka enabled without brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Topic = "t" }, "Brokers"},
		{"kafka enabled with brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = []string{"localhost:9092"}
			c.Kafka.Topic = "links.generated"
		}, ""},
		{"empty alphabet", func(c *Config) { c.Keys.Alphabet = "" }, "Alphabet"},
		{"alphabet with slash", func(c *Config) { c.Keys.Alphabet = "ab/c" }, "Alphabet"},
		{"alphabet with space", func(c *Config) { c.Keys.Alphabet = "ab c" }, "Alphabet"},
		{"single distinct character", func(c *Config) { c.Keys.Alphabet = "aaa" }, "KEY_ALPHABET"},
		{"zero length", func(c *Config) { c.Keys.Length = 0 }, "Length"},
		{"unknown drawer", func(c *Config) { c.Keys.Drawer = "uuid" }, "Drawer"},
		{"redirect 307", func(c *Config) { c.Shortener.RedirectStatus = 307 }, "RedirectStatus"},
		{"forbidden set covers keyspace", func(c *Config) {
			c.Keys.Alphabet = "ab"
			c.Keys.Length = 2
			c.Keys.Forbidden = []string{"aa", "ab", "ba", "bb"}
		}, "FORBIDDEN_KEYS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestCoversKeyspace(t *testing.T) {
	tests := []struct {
		name string
		keys KeysConfig
		want bool
	}{
		{"no forbidden keys", KeysConfig{Alphabet: "ab", Length: 1}, false},
		{"partial cover", KeysConfig{Alphabet: "ab", Length: 1, Forbidden: []string{"a"}}, false},
		{"full cover", KeysConfig{Alphabet: "ab", Length: 1, Forbidden: []string{"a", "b"}}, true},
		{"duplicates do not count twice", KeysConfig{Alphabet: "ab", Length: 1, Forbidden: []string{"a", "a"}}, false},
		{"wrong length ignored", KeysConfig{Alphabet: "ab", Length: 1, Forbidden: []string{"a", "bb"}}, false},
		{"foreign characters ignored", KeysConfig{Alphabet: "ab", Length: 1, Forbidden: []string{"a", "c"}}, false},
		{"repeated alphabet letters", KeysConfig{Alphabet: "aab", Length: 1, Forbidden: []string{"a", "b"}}, true},
		{"large keyspace", KeysConfig{Alphabet: "abcdefghijklmnopqrstuvwxyz0123456789", Length: 12, Forbidden: []string{"admin"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.keys.CoversKeyspace(); got != tt.want {
				t.Errorf("CoversKeyspace() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "links", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=links sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
