package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings splits list-valued variables
)

// Payment modes supported by the checkout subsystem.  The mode is a
// startup-level switch: request input can never select it.
const (
	PaymentModeLive       = "live"
	PaymentModeSimulation = "simulation"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and prices in minor currency units.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	BaseURL        string // public base URL used in redirect and mail links
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	PaymentMode         string // "live" or "simulation"
	StripeSecretKey     string // processor API key, required in live mode
	StripeWebhookSecret string // webhook signing secret, required in live mode

	Currency          string // ISO currency code for all charges
	PriceAdultCents   int    // per-adult price in minor units
	PriceStudentCents int    // per-student price in minor units
	PriceChildCents   int    // per-child price in minor units
	PriceInfantCents  int    // per-infant price in minor units

	Slots []string // bookable time slots, e.g. "10:00"

	AdminNotifyTo  []string // staff distribution list for notifications
	AdminNotifyCC  []string // optional CC list
	AdminNotifyBCC []string // optional BCC list
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Live payment mode
// fails closed here: the server refuses to start without processor
// credentials rather than silently degrading to simulation.
func Load() Config {
	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		BaseURL:        strings.TrimRight(envStr("BASE_URL", "http://localhost:"+os.Getenv("APP_PORT")), "/"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		PaymentMode:         envStr("PAYMENT_MODE", PaymentModeSimulation),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		Currency:          strings.ToLower(envStr("CURRENCY", "jpy")),
		PriceAdultCents:   envInt("PRICE_ADULT_CENTS", 2500),
		PriceStudentCents: envInt("PRICE_STUDENT_CENTS", 1500),
		PriceChildCents:   envInt("PRICE_CHILD_CENTS", 1000),
		PriceInfantCents:  envInt("PRICE_INFANT_CENTS", 0),

		Slots: splitCSV(envStr("SLOT_TIMES", "10:00,13:00,15:30")),

		AdminNotifyTo:  splitCSV(os.Getenv("ADMIN_NOTIFY_TO")),
		AdminNotifyCC:  splitCSV(os.Getenv("ADMIN_NOTIFY_CC")),
		AdminNotifyBCC: splitCSV(os.Getenv("ADMIN_NOTIFY_BCC")),
	}

	switch cfg.PaymentMode {
	case PaymentModeLive:
		if cfg.StripeSecretKey == "" || cfg.StripeWebhookSecret == "" {
			log.Fatalf("PAYMENT_MODE=live requires STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET")
		}
	case PaymentModeSimulation:
		// no credentials needed; redirect URLs are fabricated locally
	default:
		log.Fatalf("invalid PAYMENT_MODE: %q (want %q or %q)", cfg.PaymentMode, PaymentModeLive, PaymentModeSimulation)
	}
	return cfg
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
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// splitCSV turns a comma separated list into a slice, dropping empty parts.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
