package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration of the HTTP server. Each field
// corresponds to an environment variable.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	BaseURL        string // public origin used to build checkout return URLs
	LandingURL     string // where browsers go when a return cannot be verified
	DB             DBConfig
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing
}

// DBConfig holds the MySQL connection parameters.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	LoadDotEnv()
	base := strings.TrimRight(must("APP_BASE_URL"), "/")
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		BaseURL:        base,
		LandingURL:     envStr("LANDING_URL", base+"/"),
		DB:             LoadDBConfig(),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
	}
}

// LoadDBConfig reads only the database settings; the operator CLI uses it
// without requiring the HTTP and payment variables.
func LoadDBConfig() DBConfig {
	LoadDotEnv()
	return DBConfig{
		User: must("DB_USER"),
		Pass: os.Getenv("DB_PASS"), // empty allowed
		Host: must("DB_HOST"),
		Port: must("DB_PORT"),
		Name: must("DB_NAME"),
	}
}

// LoadDotEnv reads a local .env file outside production. Variables already
// present in the environment win.
func LoadDotEnv() {
	if strings.EqualFold(os.Getenv("APP_ENV"), "prod") {
		return
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
