package config // package config loads application configuration from environment variables

import (
	"log"  // log is used to report configuration errors and halt execution
	"os"   // os provides access to environment variables
	"time" // time parses interval values
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Required values are enforced by must() at load
// time; tunables carry the defaults the product shipped with so a bare
// environment still behaves sensibly.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for admin password hashing
	AMQPURL        string // RabbitMQ connection URL (optional)
	AdminEmail     string // bootstrap admin email (optional)
	AdminPass      string // bootstrap admin password (optional)

	// Game tunables.
	PairTTL          time.Duration // how long a pairing stays open before the sweeper cancels it
	PassInterval     time.Duration // how often the matchmaking pass runs
	QuestionsPerUser int           // questions each participant answers about their partner
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),      // environment (dev/test/prod)
		Port:           must("APP_PORT"),     // port to bind the HTTP server
		DBUser:         must("DB_USER"),      // database user
		DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:         must("DB_HOST"),      // database host
		DBPort:         must("DB_PORT"),      // database port
		DBName:         must("DB_NAME"),      // database name
		JWTSecret:      must("JWT_SECRET"),   // secret used for signing JWTs
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 1440),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 30),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		AMQPURL:        firstEnv("RABBITMQ_URL", "AMQP_URL"),
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),    // seeds a bootstrap admin when set
		AdminPass:      os.Getenv("ADMIN_PASSWORD"), // together with ADMIN_EMAIL

		PairTTL:          envDur("GAME_PAIR_TTL", time.Hour),
		PassInterval:     envDur("GAME_PASS_INTERVAL", time.Minute),
		QuestionsPerUser: envInt("GAME_QUESTIONS_PER_USER", 3),
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

// firstEnv returns the first non-empty value among the given variables.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
