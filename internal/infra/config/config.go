package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig is the process-wide configuration, loaded once at startup.
type AppConfig struct {
	App         AppSettings         `mapstructure:"app"`
	Postgres    PostgresSettings    `mapstructure:"postgres"`
	Redis       RedisSettings       `mapstructure:"redis"`
	Kafka       KafkaSettings       `mapstructure:"kafka"`
	JWT         JWTSettings         `mapstructure:"jwt"`
	Lockout     LockoutSettings     `mapstructure:"lockout"`
	Challenge   ChallengeSettings   `mapstructure:"challenge"`
	Audit       AuditSettings       `mapstructure:"audit"`
	Argon2      Argon2Settings      `mapstructure:"argon2"`
	Permissions PermissionsSettings `mapstructure:"permissions"`
}

type AppSettings struct {
	Name        string   `mapstructure:"name"`
	Env         string   `mapstructure:"env"`
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection and key prefixes.
type RedisSettings struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	DB              int    `mapstructure:"db"`
	Password        string `mapstructure:"password"`
	TLSEnabled      bool   `mapstructure:"tls_enabled"`
	AttemptPrefix   string `mapstructure:"attempt_prefix"`
	LockoutPrefix   string `mapstructure:"lockout_prefix"`
	ChallengePrefix string `mapstructure:"challenge_prefix"`
}

// KafkaSettings configures the audit event producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type JWTSettings struct {
	Secret          string        `mapstructure:"secret"`
	Issuer          string        `mapstructure:"issuer"`
	SessionTokenTTL time.Duration `mapstructure:"session_token_ttl"`
}

// LockoutSettings configure the login throttle: how many failures inside
// the rolling window trigger a lock, and how long the lock lasts.
type LockoutSettings struct {
	Window       time.Duration `mapstructure:"window"`
	MaxFailures  int           `mapstructure:"max_failures"`
	LockDuration time.Duration `mapstructure:"lock_duration"`
}

// ChallengeSettings configure one-time code issuance.
type ChallengeSettings struct {
	TTL         time.Duration `mapstructure:"ttl"`
	CodeLength  int           `mapstructure:"code_length"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// AuditSettings configure the local audit mirror.
type AuditSettings struct {
	MirrorSize int `mapstructure:"mirror_size"`
}

// Argon2Settings configure Argon2id password hashing parameters.
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// PermissionsSettings points at the static capability table. When the path
// is empty the built-in table ships with the binary.
type PermissionsSettings struct {
	TablePath string `mapstructure:"table_path"`
}

// Load reads configuration from environment variables with defaults.
func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("GUARD")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.cors_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.attempt_prefix",
		"redis.lockout_prefix",
		"redis.challenge_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"jwt.secret",
		"jwt.issuer",
		"jwt.session_token_ttl",
		"lockout.window",
		"lockout.max_failures",
		"lockout.lock_duration",
		"challenge.ttl",
		"challenge.code_length",
		"challenge.max_attempts",
		"audit.mirror_size",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"permissions.table_path",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "school-admin-guard")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.cors_origins", []string{"*"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "guard")
	v.SetDefault("postgres.password", "guard_password")
	v.SetDefault("postgres.database", "guard")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.attempt_prefix", "guard:login_attempts")
	v.SetDefault("redis.lockout_prefix", "guard:lockout")
	v.SetDefault("redis.challenge_prefix", "guard:challenge")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "guard")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "school-admin-guard")
	v.SetDefault("jwt.session_token_ttl", "15m")

	v.SetDefault("lockout.window", "15m")
	v.SetDefault("lockout.max_failures", 5)
	v.SetDefault("lockout.lock_duration", "15m")

	v.SetDefault("challenge.ttl", "300s")
	v.SetDefault("challenge.code_length", 6)
	v.SetDefault("challenge.max_attempts", 5)

	v.SetDefault("audit.mirror_size", 100)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("permissions.table_path", "")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "GUARD_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
