// internal/app/system/auditlog/logger.go
package auditlog

// Terminology: Account Identifiers
//   - userID / user_id: The MongoDB ObjectID (_id) of an account
//   - identifier: what the client typed to log in (username or email)

import (
	"context"
	"net/http"

	"github.com/dalemusser/contesthub/internal/app/store/audit"
	"github.com/dalemusser/contesthub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category of events.
const (
	DestAll = "all" // MongoDB + zap
	DestDB  = "db"  // MongoDB only
	DestLog = "log" // zap only
	DestOff = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, signup, reset).
	Auth string
	// Admin controls logging for admin actions (account deletion).
	Admin string
}

// Recorder persists events. *audit.Store satisfies it.
type Recorder interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via Recorder) and structured logs (via zap).
type Logger struct {
	store  Recorder
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store Recorder, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so handlers and tests can run without one.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "" {
		setting = DestAll
	}
	if setting == DestOff {
		return
	}

	if setting == DestAll || setting == DestLog {
		l.logToZap(event)
	}

	if (setting == DestAll || setting == DestDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func authEvent(r *http.Request, eventType string, userID *primitive.ObjectID) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAuth,
		EventType: eventType,
		UserID:    userID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func parseID(hex string) *primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &oid
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, identifier string) {
	e := authEvent(r, audit.EventLoginSuccess, &userID)
	e.Success = true
	e.Details = map[string]string{"identifier": identifier}
	l.Log(ctx, e)
}

// LoginFailed logs a refused login. eventType is one of the
// audit.EventLoginFailed* constants.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType, identifier, reason string) {
	e := authEvent(r, eventType, nil)
	e.FailureReason = reason
	e.Details = map[string]string{"identifier": identifier}
	l.Log(ctx, e)
}

// Logout logs a sign-out. userIDStr may be empty for an anonymous logout.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	e := authEvent(r, audit.EventLogout, parseID(userIDStr))
	e.Success = true
	l.Log(ctx, e)
}

// AccountCreated logs a signup.
func (l *Logger) AccountCreated(ctx context.Context, r *http.Request, userID primitive.ObjectID, username string, mailSent bool) {
	e := authEvent(r, audit.EventAccountCreated, &userID)
	e.Success = true
	e.Details = map[string]string{"username": username}
	if !mailSent {
		e.Details["mail"] = "failed"
	}
	l.Log(ctx, e)
}

// PasswordResetRequested logs a forgot-password request that issued a token.
func (l *Logger) PasswordResetRequested(ctx context.Context, r *http.Request, identifier string) {
	e := authEvent(r, audit.EventPasswordResetRequested, nil)
	e.Success = true
	e.Details = map[string]string{"identifier": identifier}
	l.Log(ctx, e)
}

// PasswordChanged logs a completed reset. method is "token" or "password".
func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID, method string) {
	e := authEvent(r, audit.EventPasswordChanged, &userID)
	e.Success = true
	e.Details = map[string]string{"method": method}
	l.Log(ctx, e)
}

// --- Admin Events ---

// AccountDeleted logs an admin deleting the account named by uid.
func (l *Logger) AccountDeleted(ctx context.Context, r *http.Request, actorIDStr, uid string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventAccountDeleted,
		ActorID:   parseID(actorIDStr),
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"uid": uid},
	})
}
