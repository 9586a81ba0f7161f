// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/contesthub/internal/app/features/authn"
	"github.com/dalemusser/contesthub/internal/app/store/accounts"
	"github.com/dalemusser/contesthub/internal/app/system/mailer"
	"github.com/dalemusser/contesthub/internal/app/system/ratelimit"
	"github.com/dalemusser/contesthub/internal/app/system/timeouts"
	"github.com/dalemusser/contesthub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// started holds what Startup builds for BuildHandler and Shutdown.
// WAFFLE runs the hooks in order on one goroutine.
var started struct {
	mail    authn.Mailer
	sweeper *workers.ResetTokenSweeper
	limiter *ratelimit.Limiter
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
	})

	started.mail = newMailer(appCfg, logger)

	started.sweeper = workers.NewResetTokenSweeper(accounts.New(deps.MongoDatabase), logger, appCfg.ResetSweepInterval)
	started.sweeper.Start()

	started.limiter = nil
	if appCfg.AuthRateLimit > 0 {
		perSecond := float64(appCfg.AuthRateLimit) / time.Minute.Seconds()
		started.limiter = ratelimit.New(perSecond, appCfg.AuthRateBurst, 10*time.Minute)
	}
	return nil
}

// newMailer picks SMTP when a relay is configured and a logging sender
// otherwise.
func newMailer(appCfg AppConfig, logger *zap.Logger) authn.Mailer {
	if appCfg.MailSMTPHost == "" {
		logger.Warn("mail_smtp_host not set; emails will be logged, not sent")
		return mailer.NewLogSender(appCfg.MailFromName, logger)
	}
	return mailer.NewSMTPSender(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
		SiteName: appCfg.MailFromName,
		Timeout:  appCfg.MailTimeout,
	}, logger)
}
