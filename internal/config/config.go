package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	DatabaseURL string
	// Upstream sources
	CBRURL          string
	BinanceURL      string
	UserAgent       string
	WatchCurrencies []string
	CryptoCodes     []string
	CryptoQuote     string
	CBRSource       string
	CryptoSource    string
	// Pipeline
	BaseCode         string
	FallbackBaseRate float64
	PollInterval     time.Duration
	FetchTimeout     time.Duration
	SubscriberWait   time.Duration
	// Bus / cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	UpdatesTopic  string
	RateCacheTTL  time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func floatDef(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func csv(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:      getEnv("ENV", "local"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnv("PORT", "8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CBRURL:          getEnv("CBR_URL", "https://www.cbr.ru/scripts/XML_daily.asp"),
		BinanceURL:      getEnv("BINANCE_URL", "https://api.binance.com/api/v3/ticker/price"),
		UserAgent:       getEnv("USER_AGENT", "moneyrates-service/1.0"),
		WatchCurrencies: csv(getEnv("WATCH_CURRENCIES", "USD,EUR,GBP,CNY,JPY")),
		CryptoCodes:     csv(getEnv("CRYPTO_CODES", "BTC,ETH,TON")),
		CryptoQuote:     getEnv("CRYPTO_QUOTE", "USDT"),
		CBRSource:       getEnv("CBR_SOURCE", "cbr"),
		CryptoSource:    getEnv("CRYPTO_SOURCE", "binance"),

		BaseCode:         getEnv("BASE_CODE", "USD"),
		FallbackBaseRate: floatDef(getEnv("FALLBACK_BASE_RATE", "80"), 80),
		PollInterval:     time.Duration(atoiDef(getEnv("POLL_INTERVAL_SECONDS", "30"), 30)) * time.Second,
		FetchTimeout:     time.Duration(atoiDef(getEnv("FETCH_TIMEOUT_SECONDS", "10"), 10)) * time.Second,
		SubscriberWait:   time.Duration(atoiDef(getEnv("SUBSCRIBER_WAIT_SECONDS", "10"), 10)) * time.Second,

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       atoiDef(getEnv("REDIS_DB", "0"), 0),
		UpdatesTopic:  getEnv("UPDATES_TOPIC", "items.updates"),
		RateCacheTTL:  time.Duration(atoiDef(getEnv("RATE_CACHE_TTL_MS", "86400000"), 86400000)) * time.Millisecond,
	}
}
