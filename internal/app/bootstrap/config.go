// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/contesthub/internal/app/system/auditlog"
	"github.com/dalemusser/contesthub/internal/app/system/lockout"
	"github.com/dalemusser/contesthub/internal/app/system/mailer"
	"github.com/dalemusser/contesthub/internal/app/system/resettoken"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// devSessionKey is the shipped default. It is refused in production.
const devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for ContestHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: CONTESTHUB_MONGO_URI, CONTESTHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "contest_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "contesthub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 24h, 720h)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs mail instead of sending)"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@contesthub.com", Desc: "From email address"},
	{Name: "mail_from_name", Default: "ContestHub", Desc: "From display name"},
	{Name: "mail_timeout", Default: "10s", Desc: "Upper bound on a single mail send"},

	// Credential policy
	{Name: "bcrypt_cost", Default: 10, Desc: "bcrypt work factor (4-31)"},
	{Name: "password_min_entropy", Default: 0, Desc: "Minimum password entropy in bits (0 disables)"},
	{Name: "lockout_max_attempts", Default: lockout.DefaultMaxAttempts, Desc: "Failed logins allowed before an account locks"},

	// Password reset
	{Name: "reset_token_ttl", Default: "120m", Desc: "How long a password reset link stays valid"},
	{Name: "reset_sweep_interval", Default: "15m", Desc: "How often expired reset tokens are cleared"},

	// Rate limiting
	{Name: "auth_rate_limit", Default: 30, Desc: "Login/forgot/reset requests per minute per IP (0 disables)"},
	{Name: "auth_rate_burst", Default: 10, Desc: "Burst allowance for auth_rate_limit"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document reads and writes"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for list queries and multi-step flows"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, CONTESTHUB_* for app) and
// command-line flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CONTESTHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 30*24*time.Hour),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),
		MailTimeout:  appValues.Duration("mail_timeout", mailer.DefaultTimeout),

		BcryptCost:         appValues.Int("bcrypt_cost"),
		PasswordMinEntropy: appValues.Int("password_min_entropy"),
		LockoutMaxAttempts: appValues.Int("lockout_max_attempts"),

		ResetTokenTTL:      appValues.Duration("reset_token_ttl", resettoken.DefaultTTL),
		ResetSweepInterval: appValues.Duration("reset_sweep_interval", 15*time.Minute),

		AuthRateLimit: appValues.Int("auth_rate_limit"),
		AuthRateBurst: appValues.Int("auth_rate_burst"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateAppConfig(coreCfg.Env, appCfg)
}

// validateAppConfig holds the checks that do not depend on WAFFLE.
func validateAppConfig(env string, appCfg AppConfig) error {
	var errs []error

	if appCfg.MongoDatabase == "" {
		errs = append(errs, errors.New("mongo_database is required"))
	}
	if appCfg.SessionKey == "" {
		errs = append(errs, errors.New("session_key is required"))
	}
	if env == "prod" && appCfg.SessionKey == devSessionKey {
		errs = append(errs, errors.New("session_key must be changed from the development default in prod"))
	}
	if appCfg.BcryptCost != 0 && (appCfg.BcryptCost < bcrypt.MinCost || appCfg.BcryptCost > bcrypt.MaxCost) {
		errs = append(errs, fmt.Errorf("bcrypt_cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, appCfg.BcryptCost))
	}
	if appCfg.LockoutMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("lockout_max_attempts must be at least 1, got %d", appCfg.LockoutMaxAttempts))
	}
	if appCfg.PasswordMinEntropy < 0 {
		errs = append(errs, errors.New("password_min_entropy cannot be negative"))
	}
	if appCfg.AuthRateLimit < 0 || appCfg.AuthRateBurst < 0 {
		errs = append(errs, errors.New("auth_rate_limit and auth_rate_burst cannot be negative"))
	}
	if appCfg.MailSMTPHost != "" && appCfg.MailFrom == "" {
		errs = append(errs, errors.New("mail_from is required when mail_smtp_host is set"))
	}

	for key, v := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_admin": appCfg.AuditLogAdmin} {
		switch v {
		case "", auditlog.DestAll, auditlog.DestDB, auditlog.DestLog, auditlog.DestOff:
		default:
			errs = append(errs, fmt.Errorf("%s must be one of all, db, log, off; got %q", key, v))
		}
	}

	return errors.Join(errs...)
}
