package config

import (
	"encoding/base64"
	"errors"
	"log"
	"os"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
)

var errKeyGen = errors.New("could not generate random key material")

type Config struct {
	Port    string
	DBDSN   string
	LogFile string
	Env     string

	JWTSecret string
	// Keys sealing the OAuth state cookie.
	HashKey  []byte
	BlockKey []byte

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	SeedDemo bool
}

// Production reports whether error details must stay out of responses.
func (c Config) Production() bool { return c.Env == "production" }

// OAuthEnabled reports whether the Google provider has credentials.
func (c Config) OAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[config] no .env file found, using process environment")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "techshop.db"
	} // sqlite file in project root
	logFile := os.Getenv("LOG_FILE")
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
		log.Println("[config] JWT_SECRET not set, generated an ephemeral secret")
	}

	cfg := Config{
		Port:               port,
		DBDSN:              dsn,
		LogFile:            logFile,
		Env:                env,
		JWTSecret:          secret,
		HashKey:            keyFromEnv("SESSION_HASH_KEY", 64),
		BlockKey:           keyFromEnv("SESSION_BLOCK_KEY", 32),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		SeedDemo:           strings.ToLower(os.Getenv("SEED_DEMO")) != "false",
	}
	if cfg.GoogleRedirectURL == "" {
		cfg.GoogleRedirectURL = "http://localhost:" + port + "/api/auth/oauth/google/callback"
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s APP_ENV=%s OAUTH=%t SEED_DEMO=%t",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.Env, cfg.OAuthEnabled(), cfg.SeedDemo)
	return cfg
}

// keyFromEnv decodes a base64 key, falling back to a random one of n bytes.
func keyFromEnv(name string, n int) []byte {
	raw := os.Getenv(name)
	if raw != "" {
		if k, err := base64.URLEncoding.DecodeString(raw); err == nil {
			return k
		}
		log.Printf("[config] %s is not valid base64, generating a random key", name)
	}
	return securecookie.GenerateRandomKey(n)
}

// GeneratedKeys returns fresh .env lines for the session and token secrets.
func GeneratedKeys() (map[string]string, error) {
	hash := securecookie.GenerateRandomKey(64)
	block := securecookie.GenerateRandomKey(32)
	jwtKey := securecookie.GenerateRandomKey(32)
	if hash == nil || block == nil || jwtKey == nil {
		return nil, errKeyGen
	}
	return map[string]string{
		"SESSION_HASH_KEY":  base64.URLEncoding.EncodeToString(hash),
		"SESSION_BLOCK_KEY": base64.URLEncoding.EncodeToString(block),
		"JWT_SECRET":        base64.RawURLEncoding.EncodeToString(jwtKey),
	}, nil
}
