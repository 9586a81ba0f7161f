// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS); everything here is
// specific to ContestHub.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: contesthub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Email/SMTP configuration. A blank host logs mail instead of sending it.
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string // From email address (e.g., noreply@contesthub.com)
	MailFromName string // From display name, also used as the site name in emails
	MailTimeout  time.Duration

	// Credential policy
	BcryptCost         int
	PasswordMinEntropy int // bits; 0 disables the entropy check
	LockoutMaxAttempts int

	// Password reset
	ResetTokenTTL      time.Duration
	ResetSweepInterval time.Duration

	// Per-IP limit on login, forgot and reset
	AuthRateLimit int // requests per minute; 0 disables
	AuthRateBurst int

	// Audit destinations: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// I/O deadlines
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
}
