// config реализует конфигурацию guestbook-service: загрузка из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища сообщений.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config — корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Limits    LimitsConfig    `yaml:"limits"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// TimeoutConfig — сервисные таймауты (общий дедлайн обработки запроса).
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig — публичный HTTP-сервер (API + health/metrics).
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50090"`
	// TrustProxy — сервис за reverse proxy: IP клиента берётся из X-Forwarded-For/X-Real-IP.
	TrustProxy bool `yaml:"trust_proxy" env:"HTTP_TRUST_PROXY" env-default:"false"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// DBConfig — хранилище сообщений гостевой книги.
// Driver: mongo (по умолчанию) | postgres | memory (только для local/тестов, URL не нужен).
type DBConfig struct {
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"mongo"`
	URL    string `yaml:"url" env:"DATABASE_URL"`
}

// RedisConfig — общий лимитер запросов. Пустой URL -> лимитер в памяти процесса.
type RedisConfig struct {
	URL    string `yaml:"url" env:"REDIS_URL"`
	Prefix string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"guestbook:rl:"`
}

// AuthConfig — выпуск/проверка токенов операторов.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer    string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"guestbook-service"`
	Audience  []string      `yaml:"audience" env:"JWT_AUDIENCE" env-default:"guestbook-admin"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"12h"`
	Operators []Operator    `yaml:"operators"`
}

// Operator — учётная запись оператора (пара молодожёнов или доверенное лицо).
// PasswordHash — bcrypt-хэш; Capabilities, например ["guestbook:moderate"].
type Operator struct {
	ID           string   `yaml:"id"`
	Username     string   `yaml:"username"`
	Name         string   `yaml:"name"`
	PasswordHash string   `yaml:"password_hash"`
	Capabilities []string `yaml:"capabilities"`
}

// LimitsConfig — явные лимиты вместо неявных дефолтов схемы валидации.
type LimitsConfig struct {
	// Пагинация: page_size=0 -> берём Default; верхняя граница — Max.
	Default int32 `yaml:"default" env:"DEFAULT_LIMIT" env-default:"20"`
	Max     int32 `yaml:"max"     env:"MAX_LIMIT"     env-default:"100"`
	// Длина текста сообщения в рунах.
	MessageMaxLen int `yaml:"message_max_len" env:"MESSAGE_MAX_LEN" env-default:"1000"`
	// Длина имени гостя в рунах.
	NameMaxLen int `yaml:"name_max_len" env:"NAME_MAX_LEN" env-default:"100"`
	// Максимум идентификаторов в одной пакетной модерации.
	BulkMax int `yaml:"bulk_max" env:"BULK_MAX" env-default:"100"`
}

// RatePolicy — не более Requests запросов за Window на один ключ (IP клиента).
type RatePolicy struct {
	Requests int           `yaml:"requests" env:"REQUESTS"`
	Window   time.Duration `yaml:"window"   env:"WINDOW"`
}

// RateLimitConfig — политики лимитов по классам маршрутов. Requests=0 отключает лимит.
type RateLimitConfig struct {
	Submit   RatePolicy `yaml:"submit"   env-prefix:"RL_SUBMIT_"`
	Like     RatePolicy `yaml:"like"     env-prefix:"RL_LIKE_"`
	Moderate RatePolicy `yaml:"moderate" env-prefix:"RL_MODERATE_"`
	Login    RatePolicy `yaml:"login"    env-prefix:"RL_LOGIN_"`
}

// CORSConfig — origin'ы фронтенда свадебного сайта.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		cfg.applyDefaults()
		if err := cfg.validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return readFile(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return readFile(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return readFile("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}

// applyDefaults — дефолты политик лимитов (cleanenv не умеет env-default для вложенных
// структур без ENV-ключей).
func (c *Config) applyDefaults() {
	def := func(p *RatePolicy, n int, w time.Duration) {
		if p.Requests == 0 && p.Window == 0 {
			p.Requests, p.Window = n, w
		}
	}

	def(&c.RateLimit.Submit, 5, time.Minute)
	def(&c.RateLimit.Like, 60, time.Minute)
	def(&c.RateLimit.Moderate, 120, time.Minute)
	def(&c.RateLimit.Login, 10, time.Minute)
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	switch c.DB.Driver {
	case DriverMongo, DriverPostgres:
		if c.DB.URL == "" {
			return fmt.Errorf("db.url is required for driver %q", c.DB.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("db.driver must be one of mongo|postgres|memory, got %q", c.DB.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Auth.TokenTTL < time.Minute {
		return fmt.Errorf("auth.token_ttl must be at least 1m")
	}

	for i, op := range c.Auth.Operators {
		if op.ID == "" || op.Username == "" || op.PasswordHash == "" {
			return fmt.Errorf("auth.operators[%d]: id, username and password_hash are required", i)
		}
	}

	if c.Limits.Default <= 0 {
		return fmt.Errorf("limits.default must be > 0")
	}

	if c.Limits.Max <= 0 {
		return fmt.Errorf("limits.max must be > 0")
	}

	if c.Limits.Default > c.Limits.Max {
		return fmt.Errorf("limits.default must be <= limits.max")
	}

	if c.Limits.MessageMaxLen <= 0 || c.Limits.NameMaxLen <= 0 {
		return fmt.Errorf("limits.message_max_len and limits.name_max_len must be > 0")
	}

	if c.Limits.BulkMax <= 0 {
		return fmt.Errorf("limits.bulk_max must be > 0")
	}

	for name, p := range map[string]RatePolicy{
		"submit":   c.RateLimit.Submit,
		"like":     c.RateLimit.Like,
		"moderate": c.RateLimit.Moderate,
		"login":    c.RateLimit.Login,
	} {
		if p.Requests < 0 || (p.Requests > 0 && p.Window <= 0) {
			return fmt.Errorf("rate_limit.%s: requests must be >= 0 and window > 0", name)
		}
	}

	return nil
}
