// Package config reads the server configuration from the environment.
//
// A .env file in the working directory is loaded first when present;
// variables already set in the process environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   int
	DBPath string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	KakaoClientID     string
	KakaoClientSecret string
	KakaoRedirectURI  string

	FrontendLoginSuccessURI string
	AllowedOrigins          []string

	// DevMode attributes anonymous review comments to the first account.
	DevMode  bool
	LogLevel slog.Level
}

const defaultDBPath = "data/yeogida.db"

// Load reads the given env files (".env" when none are named) and then the
// environment. A missing file is not an error.
func Load(files ...string) (*Config, error) {
	if err := LoadDotEnv(files...); err != nil {
		return nil, err
	}
	return FromEnv(os.Getenv)
}

// LoadDotEnv copies the files' variables into the process environment
// without overriding variables that are already set.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: loading %s: %w", f, err)
		}
	}
	return nil
}

// DBPath is the database location alone, for tools that never touch tokens
// or Kakao.
func DBPath(getenv func(string) string) string {
	if v := strings.TrimSpace(getenv("DB_PATH")); v != "" {
		return v
	}
	return defaultDBPath
}

// FromEnv builds a Config from getenv. Required: JWT_SECRET.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		DBPath:                  DBPath(getenv),
		JWTSecret:               getenv("JWT_SECRET"),
		KakaoClientID:           env("KAKAO_REST_API_KEY", ""),
		KakaoClientSecret:       env("KAKAO_CLIENT_SECRET", ""),
		FrontendLoginSuccessURI: env("FRONTEND_LOGIN_SUCCESS_URI", "http://localhost:3000/login/success"),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(env("PORT", "8080")); err != nil || cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: invalid PORT %q", getenv("PORT"))
	}
	if cfg.AccessTokenTTL, err = duration(env("ACCESS_TOKEN_TTL", "30m")); err != nil {
		return nil, fmt.Errorf("config: ACCESS_TOKEN_TTL: %w", err)
	}
	if cfg.RefreshTokenTTL, err = duration(env("REFRESH_TOKEN_TTL", "168h")); err != nil {
		return nil, fmt.Errorf("config: REFRESH_TOKEN_TTL: %w", err)
	}
	if cfg.DevMode, err = strconv.ParseBool(env("DEV_MODE", "false")); err != nil {
		return nil, fmt.Errorf("config: invalid DEV_MODE %q", getenv("DEV_MODE"))
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(env("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("config: invalid LOG_LEVEL %q", getenv("LOG_LEVEL"))
	}

	cfg.KakaoRedirectURI = env("KAKAO_REDIRECT_URI",
		fmt.Sprintf("http://localhost:%d/auth/kakao/callback", cfg.Port))

	for _, origin := range strings.Split(env("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	if len(cfg.JWTSecret) < 16 {
		return nil, errors.New("config: JWT_SECRET must be set to at least 16 characters")
	}
	return cfg, nil
}

func duration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", raw)
	}
	return d, nil
}
