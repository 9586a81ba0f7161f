// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditfeature "github.com/dalemusser/contesthub/internal/app/features/auditlog"
	authnfeature "github.com/dalemusser/contesthub/internal/app/features/authn"
	contestsfeature "github.com/dalemusser/contesthub/internal/app/features/contests"
	errorsfeature "github.com/dalemusser/contesthub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/contesthub/internal/app/features/health"
	validationfeature "github.com/dalemusser/contesthub/internal/app/features/validation"
	"github.com/dalemusser/contesthub/internal/app/store/accounts"
	"github.com/dalemusser/contesthub/internal/app/store/audit"
	contestsstore "github.com/dalemusser/contesthub/internal/app/store/contests"
	"github.com/dalemusser/contesthub/internal/app/system/auditlog"
	"github.com/dalemusser/contesthub/internal/app/system/auth"
	"github.com/dalemusser/contesthub/internal/app/system/authutil"
	"github.com/dalemusser/contesthub/internal/app/system/lockout"
	"github.com/dalemusser/contesthub/internal/app/system/mailer"
	"github.com/dalemusser/contesthub/internal/app/system/ratelimit"
	"github.com/dalemusser/contesthub/internal/app/system/resettoken"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. It builds the session manager and the
// account service, then mounts the feature routers:
//
//	/auth        signup, login, logout, forgot, reset, session, delete
//	/validate    username and email availability
//	/contest     contest create and list
//	/audit       admin view of the security audit trail
//	/health      liveness with a database ping
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser re-reads the account on each request so deletions and
	// role changes take effect immediately.
	sessionMgr.SetFetcher(accounts.NewFetcher(deps.MongoDatabase))

	mail := started.mail
	if mail == nil {
		mail = mailer.NewLogSender(appCfg.MailFromName, logger)
	}

	hasher := authutil.NewHasher(appCfg.BcryptCost)
	tokens := resettoken.New(appCfg.ResetTokenTTL)
	logger.Info("account security settings",
		zap.Int("bcrypt_cost", hasher.Cost()),
		zap.Duration("reset_token_ttl", tokens.TTL()),
		zap.Int("lockout_max_attempts", appCfg.LockoutMaxAttempts))

	accountStore := accounts.New(deps.MongoDatabase)
	svc := authnfeature.NewService(
		accountStore,
		mail,
		hasher,
		lockout.NewPolicy(appCfg.LockoutMaxAttempts),
		tokens,
		authnfeature.Config{
			MinPasswordEntropy: float64(appCfg.PasswordMinEntropy),
			MailTimeout:        appCfg.MailTimeout,
		},
		logger,
	)

	auditStore := audit.New(deps.MongoDatabase)
	auditLog := auditlog.New(auditStore, logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	var limit func(http.Handler) http.Handler
	if started.limiter != nil {
		limit = ratelimit.Middleware(started.limiter, logger)
	}

	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	authHandler := authnfeature.NewHandler(svc, sessionMgr, auditLog, logger)
	r.Mount("/auth", authnfeature.Routes(authHandler, sessionMgr, limit))

	validationHandler := validationfeature.NewHandler(accountStore, logger)
	r.Mount("/validate", validationfeature.Routes(validationHandler))

	contestsHandler := contestsfeature.NewHandler(contestsstore.New(deps.MongoDatabase), logger)
	r.Mount("/contest", contestsfeature.Routes(contestsHandler, sessionMgr))

	auditHandler := auditfeature.NewHandler(auditStore, logger)
	r.Mount("/audit", auditfeature.Routes(auditHandler, sessionMgr))

	return r, nil
}
