package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	PlatformTelegram = "telegram"
	PlatformDiscord  = "discord"
)

// Config хранит все параметры запуска приложения.
type Config struct {
	Env            string
	LogLevel       string
	HTTPPort       string
	DatabaseURL    string
	GatewayBaseURL string

	BotPlatform      string
	TelegramBotToken string
	DiscordBotToken  string

	SessionIdleTimeout time.Duration
	DashboardCacheTTL  time.Duration
	DashboardScanLimit int

	SlackWebhookURL string
	RedisURL        string

	AllowedOrigins  []string
	RateLimitLimit  int64
	RateLimitPeriod time.Duration

	// parseErrors накапливает ошибки разбора чисел и длительностей для Validate.
	parseErrors []string
}

// Load читает переменные окружения и возвращает конфигурацию.
// Обязательные значения проверяет Validate.
func Load() *Config {
	// Загружаем .env только если он существует, иначе используем системные переменные.
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("config: .env не найден, используем переменные окружения: %v", err)
	}
	return fromEnv()
}

func fromEnv() *Config {
	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		DatabaseURL:      getDatabaseURL(),
		GatewayBaseURL:   strings.TrimRight(getEnv("GATEWAY_BASE_URL", ""), "/"),
		BotPlatform:      strings.ToLower(strings.TrimSpace(getEnv("BOT_PLATFORM", PlatformTelegram))),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		DiscordBotToken:  getEnv("DISCORD_BOT_TOKEN", ""),
		SlackWebhookURL:  getEnv("SLACK_WEBHOOK_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
	}

	originsStr := getEnv("CORS_ALLOWED_ORIGINS", "")
	if originsStr == "" {
		cfg.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:8501"}
	} else {
		for _, origin := range strings.Split(originsStr, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	cfg.SessionIdleTimeout = cfg.parseDuration("SESSION_IDLE_TIMEOUT", "30m")
	cfg.DashboardCacheTTL = cfg.parseDuration("DASHBOARD_CACHE_TTL", "10s")
	cfg.DashboardScanLimit = int(cfg.parseInt64("DASHBOARD_SCAN_LIMIT", "1000"))
	cfg.RateLimitLimit = cfg.parseInt64("RATE_LIMIT_LIMIT", "60")
	cfg.RateLimitPeriod = cfg.parseDuration("RATE_LIMIT_PERIOD", "1m")

	return cfg
}

// Validate проверяет обязательные параметры и возвращает одну ошибку
// со списком всех отсутствующих или некорректных переменных.
func (c *Config) Validate() error {
	var missing []string

	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.GatewayBaseURL == "" {
		missing = append(missing, "GATEWAY_BASE_URL")
	}

	switch c.BotPlatform {
	case PlatformTelegram:
		if c.TelegramBotToken == "" {
			missing = append(missing, "TELEGRAM_BOT_TOKEN")
		}
	case PlatformDiscord:
		if c.DiscordBotToken == "" {
			missing = append(missing, "DISCORD_BOT_TOKEN")
		}
	default:
		missing = append(missing, "BOT_PLATFORM")
	}

	invalid := append([]string(nil), c.parseErrors...)
	if c.GatewayBaseURL != "" {
		if u, err := url.Parse(c.GatewayBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			invalid = append(invalid, "GATEWAY_BASE_URL")
		}
	}
	if c.DashboardScanLimit <= 0 {
		invalid = append(invalid, "DASHBOARD_SCAN_LIMIT")
	}

	if len(missing) == 0 && len(invalid) == 0 {
		return nil
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "не заданы: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "некорректны: "+strings.Join(invalid, ", "))
	}
	return fmt.Errorf("config: %s", strings.Join(parts, "; "))
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// BotToken возвращает токен выбранной платформы.
func (c *Config) BotToken() string {
	if c.BotPlatform == PlatformDiscord {
		return c.DiscordBotToken
	}
	return c.TelegramBotToken
}

// getEnv возвращает значение переменной окружения или дефолт, пустое значение считается незаданным.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// getDatabaseURL возвращает DATABASE_URL либо из переменной, либо собирает из отдельных переменных.
func getDatabaseURL() string {
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		return dbURL
	}

	host := getEnv("POSTGRESQL_HOST", "")
	port := getEnv("POSTGRESQL_PORT", "5432")
	user := getEnv("POSTGRESQL_USER", "")
	password := getEnv("POSTGRESQL_PASSWORD", "")
	dbname := getEnv("POSTGRESQL_DBNAME", "")

	if host != "" && user != "" && dbname != "" {
		userInfo := url.UserPassword(user, password)
		return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=disable",
			userInfo.String(), host, port, dbname)
	}

	return ""
}

func (c *Config) parseDuration(key, fallback string) time.Duration {
	v := getEnv(key, fallback)
	dur, err := time.ParseDuration(v)
	if err != nil || dur <= 0 {
		c.parseErrors = append(c.parseErrors, key)
		dur, _ = time.ParseDuration(fallback)
	}
	return dur
}

func (c *Config) parseInt64(key, fallback string) int64 {
	v := getEnv(key, fallback)
	num, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		c.parseErrors = append(c.parseErrors, key)
		num, _ = strconv.ParseInt(fallback, 10, 64)
	}
	return num
}
