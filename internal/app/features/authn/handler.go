// internal/app/features/authn/handler.go
package authn

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apierr "github.com/dalemusser/contesthub/internal/app/features/errors"
	"github.com/dalemusser/contesthub/internal/app/store/accounts"
	"github.com/dalemusser/contesthub/internal/app/store/audit"
	"github.com/dalemusser/contesthub/internal/app/system/auditlog"
	"github.com/dalemusser/contesthub/internal/app/system/auth"
	"github.com/dalemusser/contesthub/internal/app/system/lockout"
	"github.com/dalemusser/contesthub/internal/app/system/timeouts"
	"github.com/dalemusser/contesthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Svc        *Service
	SessionMgr *auth.SessionManager
	Audit      *auditlog.Logger // nil disables audit events
	Log        *zap.Logger
}

func NewHandler(svc *Service, sessionMgr *auth.SessionManager, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:        svc,
		SessionMgr: sessionMgr,
		Audit:      auditLog,
		Log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/authenticate                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeAuthenticate returns the signed-in account, or the literal 0 when
// there is none.
func (h *Handler) ServeAuthenticate(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentAccount(w, r)
	if !ok {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("0"))
		return
	}
	apierr.JSON(w, http.StatusOK, acct.Public())
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/session                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentAccount(w, r)
	if !ok {
		apierr.Message(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	apierr.JSON(w, http.StatusOK, acct.Public())
}

// currentAccount loads the session user's account fresh from the store.
func (h *Handler) currentAccount(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	acct, err := h.Svc.Account(ctx, u.ID)
	if err != nil {
		if !errors.Is(err, accounts.ErrNotFound) {
			h.Log.Error("load session account", zap.String("user_id", u.ID), zap.Error(err))
		}
		return nil, false
	}
	return acct, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/register                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := apierr.Decode(w, r, &req); err != nil {
		apierr.Message(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Svc.Signup(ctx, SignupInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Name:     models.Name(req.Name),
	}, baseURL(r))
	if err != nil {
		h.writeError(w, "register", err)
		return
	}
	h.Audit.AccountCreated(r.Context(), r, res.Account.ID, res.Account.Local.Username, res.Message == MsgAccountCreated)
	apierr.JSON(w, http.StatusOK, accountResponse{User: res.Account.Public(), Message: res.Message})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/login                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := apierr.Decode(w, r, &req); err != nil {
		apierr.Message(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	acct, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		if event, reason, ok := loginFailure(err); ok {
			h.Audit.LoginFailed(r.Context(), r, event, req.Username, reason)
		}
		h.writeError(w, "login", err)
		return
	}

	if err := h.SessionMgr.Bind(w, r, acct); err != nil {
		h.Log.Error("bind session", zap.String("user_id", acct.ID.Hex()), zap.Error(err))
		apierr.Message(w, http.StatusInternalServerError, MsgSessionFailed)
		return
	}
	h.Audit.LoginSuccess(r.Context(), r, acct.ID, req.Username)
	apierr.JSON(w, http.StatusOK, acct.Public())
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/logout                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeLogout always answers 401 so clients route back to the login page.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.Audit.Logout(r.Context(), r, u.ID)
	}
	if err := h.SessionMgr.Unbind(w, r); err != nil {
		h.Log.Error("logout: expire session", zap.Error(err))
	}
	apierr.Message(w, http.StatusUnauthorized, "Unauthorized")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/forgot                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := apierr.Decode(w, r, &req); err != nil {
		apierr.Message(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	msg, err := h.Svc.Forgot(ctx, req.Email, baseURL(r))
	if err != nil {
		h.writeError(w, "forgot", err)
		return
	}
	h.Audit.PasswordResetRequested(r.Context(), r, req.Email)
	apierr.Message(w, http.StatusOK, msg)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/reset                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := apierr.Decode(w, r, &req); err != nil {
		apierr.Message(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	bind := func(acct *models.Account) error { return h.SessionMgr.Bind(w, r, acct) }
	res, err := h.Svc.Reset(ctx, ResetInput{
		ResetToken:  req.ResetToken,
		Username:    req.Username,
		Password:    req.Password,
		NewPassword: req.NewPassword,
	}, baseURL(r), bind)
	if err != nil {
		h.writeError(w, "reset", err)
		return
	}
	method := "password"
	if req.ResetToken != "" {
		method = "token"
	}
	h.Audit.PasswordChanged(r.Context(), r, res.Account.ID, method)
	apierr.JSON(w, http.StatusOK, accountResponse{User: res.Account.Public(), Message: res.Message})
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /auth/delete/{uid}                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Svc.Delete(ctx, uid); err != nil {
		h.writeError(w, "delete", err)
		return
	}
	if u, ok := auth.CurrentUser(r); ok {
		h.Audit.AccountDeleted(r.Context(), r, u.ID, uid)
	}
	w.WriteHeader(http.StatusNoContent)
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	status, msg := statusAndMessage(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error("auth request failed", zap.String("op", op), zap.Error(err))
	}
	apierr.Message(w, status, msg)
}

// loginFailure classifies a refused login for the audit trail. Shape
// errors are not audited.
func loginFailure(err error) (event, reason string, ok bool) {
	var (
		nerr *NotFoundError
		lerr *lockout.LockedError
	)
	switch {
	case errors.As(err, &nerr):
		return audit.EventLoginFailedUserNotFound, "user not found", true
	case errors.As(err, &lerr):
		return audit.EventLoginFailedLocked, "account locked", true
	case errors.Is(err, lockout.ErrInvalidCredentials):
		return audit.EventLoginFailedWrongPassword, "wrong password", true
	}
	return "", "", false
}

// baseURL is the scheme and host the client used, for links in emails.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
