// Package config loads application configuration from environment
// variables.  A .env file in the working directory is read first when
// present; variables already set in the environment win.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string
	DBPass         string // optional
	DBHost         string
	DBPort         string
	DBName         string
	DBMigrate      bool   // create tables on startup
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int
	MaxStayDays    int    // longest stay a single booking may cover
	RabbitURL      string // empty disables event publishing
	ConsumerOn     bool   // run the booking log consumer in-process
	BookingLogPath string
	LogLevel       string
}

// LoadDotenv reads .env (or the files named in ENV_FILE, comma separated)
// into the process environment.  Missing files are ignored.
func LoadDotenv() {
	files := []string{".env"}
	if f := os.Getenv("ENV_FILE"); f != "" {
		files = splitList(f)
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Printf("config: cannot read %s: %v", f, err)
		}
	}
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	LoadDotenv()
	return Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		DBMigrate:      envBool("DB_MIGRATE", true),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		MaxStayDays:    envInt("MAX_STAY_DAYS", 3),
		RabbitURL:      rabbitURL(),
		ConsumerOn:     envBool("BOOKING_CONSUMER_ENABLED", true),
		BookingLogPath: envStr("BOOKING_LOG_PATH", "logs/booking.log"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
	}
}

// LoadDB reads only the database settings.  Used by command line tools
// that do not serve HTTP.
func LoadDB() Config {
	LoadDotenv()
	return Config{
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),
	}
}

func rabbitURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
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
