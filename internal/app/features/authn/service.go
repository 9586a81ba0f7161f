// internal/app/features/authn/service.go
package authn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/contesthub/internal/app/store/accounts"
	"github.com/dalemusser/contesthub/internal/app/system/authutil"
	"github.com/dalemusser/contesthub/internal/app/system/inputval"
	"github.com/dalemusser/contesthub/internal/app/system/lockout"
	"github.com/dalemusser/contesthub/internal/app/system/mailer"
	"github.com/dalemusser/contesthub/internal/app/system/normalize"
	"github.com/dalemusser/contesthub/internal/app/system/resettoken"
	"github.com/dalemusser/contesthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// History results written by the service.
const (
	resultAccountCreated = "Account Created"
	resultResetPassword  = "Reset Password"
)

// AccountStore is the persistence the service needs. Lookups return
// accounts.ErrNotFound when nothing matches.
type AccountStore interface {
	FindByLogin(ctx context.Context, identifier string) (*models.Account, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error)
	FindByResetToken(ctx context.Context, token string, now time.Time) (*models.Account, error)
	Create(ctx context.Context, a *models.Account) error
	Save(ctx context.Context, a *models.Account) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	DeleteByIdentifier(ctx context.Context, uid string) (int64, error)
}

// Mailer sends one of the account emails.
type Mailer interface {
	Send(ctx context.Context, to string, tmpl mailer.Template, data mailer.Data) error
}

// Config tunes the service. Zero values select defaults.
type Config struct {
	MinPasswordEntropy float64
	MailTimeout        time.Duration
	Now                func() time.Time
}

// Service runs the credential lifecycle: signup, login, forgot and reset.
// It holds no per-request state.
type Service struct {
	store      AccountStore
	mail       Mailer
	hasher     *authutil.Hasher
	auth       lockout.Authenticator
	tokens     *resettoken.Issuer
	now        func() time.Time
	minEntropy float64
	mailWait   time.Duration
	log        *zap.Logger
}

func NewService(store AccountStore, mail Mailer, hasher *authutil.Hasher, policy lockout.Policy, tokens *resettoken.Issuer, cfg Config, logger *zap.Logger) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if policy.Now == nil {
		policy.Now = now
	}
	wait := cfg.MailTimeout
	if wait <= 0 {
		wait = mailer.DefaultTimeout
	}
	return &Service{
		store:      store,
		mail:       mail,
		hasher:     hasher,
		auth:       lockout.Authenticator{Policy: policy, Verifier: hasher},
		tokens:     tokens,
		now:        func() time.Time { return now().UTC() },
		minEntropy: cfg.MinPasswordEntropy,
		mailWait:   wait,
		log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Signup                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// SignupInput is a registration request.
type SignupInput struct {
	Username string
	Password string
	Email    string
	Name     models.Name
}

// Result is an account plus the message shown to the client.
type Result struct {
	Account *models.Account
	Message string
}

// Signup registers a new account and sends the welcome email. A failed email
// does not undo the signup; the account is tagged instead, and a failure to
// save the tag is returned as a PersistenceError.
func (s *Service) Signup(ctx context.Context, in SignupInput, baseURL string) (*Result, error) {
	username := normalize.Username(in.Username)
	if !inputval.UsernameBounds.Contains(username) {
		return nil, invalid(http.StatusConflict, "username", "Invalid username length.")
	}
	if err := s.checkPassword(in.Password, http.StatusConflict); err != nil {
		return nil, err
	}
	rawEmail := normalize.Email(in.Email)
	if !inputval.EmailBounds.Contains(rawEmail) {
		return nil, invalid(http.StatusConflict, "email", "Invalid email length.")
	}
	email := normalize.CanonicalEmail(rawEmail)
	if !inputval.IsValidEmail(rawEmail) || email == "" {
		return nil, invalid(http.StatusConflict, "email", "Invalid email address.")
	}
	name := normalize.PersonName(in.Name.First, in.Name.Last)
	if name.First == "" {
		return nil, invalid(http.StatusConflict, "name", "A first name is required.")
	}

	existing, err := s.store.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		if existing.Local.Username == username {
			return nil, &ConflictError{Field: "username", Value: username}
		}
		return nil, &ConflictError{Field: "email", Value: email}
	case !errors.Is(err, accounts.ErrNotFound):
		return nil, persist("lookup account", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	acct := &models.Account{
		Local: models.LocalCredentials{
			Username: username,
			Email:    email,
			Password: hash,
		},
		Name:    name,
		Role:    models.RoleUser,
		Created: now,
	}
	acct.RecordLogin(now, true, resultAccountCreated)

	if err := s.store.Create(ctx, acct); err != nil {
		switch {
		case errors.Is(err, accounts.ErrDuplicateUsername):
			return nil, &ConflictError{Field: "username", Value: username}
		case errors.Is(err, accounts.ErrDuplicateEmail):
			return nil, &ConflictError{Field: "email", Value: email}
		}
		return nil, persist("create account", err)
	}
	s.log.Info("account created",
		zap.String("user_id", acct.ID.Hex()),
		zap.String("username", username))

	if err := s.send(ctx, acct, mailer.TemplateRegister, baseURL+"/login"); err != nil {
		s.log.Warn("registration email failed",
			zap.String("user_id", acct.ID.Hex()),
			zap.Error(err))
		if acct.AddTag(models.TagRegistrationEmailFailed) {
			if err := s.store.Save(ctx, acct); err != nil {
				return nil, persist("tag account", err)
			}
		}
		return &Result{Account: acct, Message: MsgAccountCreatedNoMail}, nil
	}
	return &Result{Account: acct, Message: MsgAccountCreated}, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Login                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// Login checks credentials and records the attempt. The account is saved
// whatever the outcome; on success the caller binds the session.
func (s *Service) Login(ctx context.Context, identifier, password string) (*models.Account, error) {
	ident := normalize.Identifier(identifier)
	if !inputval.LoginBounds.Contains(ident) {
		return nil, invalid(http.StatusUnauthorized, "username", "Invalid username/email length.")
	}
	if !inputval.PasswordBounds.Contains(password) {
		return nil, invalid(http.StatusUnauthorized, "password", "Invalid password length.")
	}

	acct, err := s.store.FindByLogin(ctx, ident)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, &NotFoundError{Message: MsgUserNotFound, Status: http.StatusUnauthorized}
		}
		return nil, persist("lookup account", err)
	}

	loginErr := s.auth.Login(acct, password)
	if err := s.store.Save(ctx, acct); err != nil {
		return nil, persist("save login attempt", err)
	}
	if loginErr != nil {
		s.log.Info("login failed",
			zap.String("user_id", acct.ID.Hex()),
			zap.Int("attempts", acct.LoginAttempts),
			zap.Error(loginErr))
		return nil, loginErr
	}
	return acct, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Forgot / Reset                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// Forgot issues a reset token for the account named by identifier (username
// or email) and mails the reset link.
func (s *Service) Forgot(ctx context.Context, identifier, baseURL string) (string, error) {
	if strings.TrimSpace(identifier) == "" {
		return "", invalid(http.StatusBadRequest, "email", "An email or username is required.")
	}

	acct, err := s.store.FindByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return "", &NotFoundError{Message: fmt.Sprintf("Unable to find user %q", identifier), Status: http.StatusBadRequest}
		}
		return "", persist("lookup account", err)
	}

	token, err := s.tokens.Issue()
	if err != nil {
		return "", fmt.Errorf("issue reset token: %w", err)
	}
	acct.SetResetToken(token, s.tokens.Expiry(s.now()))
	if err := s.store.Save(ctx, acct); err != nil {
		return "", persist("save reset token", err)
	}

	if err := s.send(ctx, acct, mailer.TemplateForgot, baseURL+"/reset/"+token); err != nil {
		return "", &TransportError{Message: MsgSendFailed, Err: err}
	}
	s.log.Info("password reset requested", zap.String("user_id", acct.ID.Hex()))
	return "Password reset email sent to " + acct.Local.Email, nil
}

// ResetInput carries either a reset token or the current credentials, plus
// the new password.
type ResetInput struct {
	ResetToken  string
	Username    string
	Password    string
	NewPassword string
}

// Reset sets a new password. With a token it consumes the token; without one
// it re-authenticates through Login. bind is called once the new password is
// saved and before the confirmation email goes out.
func (s *Service) Reset(ctx context.Context, in ResetInput, baseURL string, bind func(*models.Account) error) (*Result, error) {
	status := http.StatusBadRequest
	if in.ResetToken == "" {
		status = http.StatusUnauthorized
	}
	if err := s.checkPassword(in.NewPassword, status); err != nil {
		return nil, err
	}

	var acct *models.Account
	if in.ResetToken != "" {
		a, err := s.store.FindByResetToken(ctx, in.ResetToken, s.now())
		if err != nil {
			if errors.Is(err, accounts.ErrNotFound) {
				return nil, ErrTokenInvalid
			}
			return nil, persist("lookup reset token", err)
		}
		acct = a
	} else {
		a, err := s.Login(ctx, in.Username, in.Password)
		if err != nil {
			return nil, err
		}
		acct = a
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acct.Local.Password = hash
	acct.ResetLockout()
	acct.ClearResetToken()
	acct.RecordLogin(s.now(), true, resultResetPassword)
	if err := s.store.Save(ctx, acct); err != nil {
		return nil, persist("save new password", err)
	}
	s.log.Info("password reset", zap.String("user_id", acct.ID.Hex()))

	if bind != nil {
		if err := bind(acct); err != nil {
			return nil, &TransportError{Message: MsgSessionFailed, Err: err}
		}
	}

	msg := MsgResetDone + MsgResetMailSent
	if err := s.send(ctx, acct, mailer.TemplateReset, baseURL+"/forgot"); err != nil {
		s.log.Warn("reset confirmation email failed",
			zap.String("user_id", acct.ID.Hex()),
			zap.Error(err))
		msg = MsgResetDone + MsgResetMailFailed
	}
	return &Result{Account: acct, Message: msg}, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Account lookup / delete                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// Account loads the account for a session user ID.
func (s *Service) Account(ctx context.Context, userID string) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, accounts.ErrNotFound
	}
	return s.store.GetByID(ctx, oid)
}

// Delete removes the account whose username, email or ID equals uid.
// Deleting a missing account is not an error.
func (s *Service) Delete(ctx context.Context, uid string) error {
	n, err := s.store.DeleteByIdentifier(ctx, uid)
	if err != nil {
		return persist("delete account", err)
	}
	s.log.Info("account delete", zap.String("uid", uid), zap.Int64("deleted", n))
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// checkPassword validates a new password, reporting failures with status.
func (s *Service) checkPassword(pw string, status int) error {
	err := authutil.ValidatePassword(pw, s.minEntropy)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authutil.ErrPasswordWeak):
		return invalid(status, "password", "Password is too weak. Use a longer password or mix in other character types.")
	default:
		return invalid(status, "password", "Invalid password length.")
	}
}

func (s *Service) send(ctx context.Context, acct *models.Account, tmpl mailer.Template, link string) error {
	ctx, cancel := context.WithTimeout(ctx, s.mailWait)
	defer cancel()
	return s.mail.Send(ctx, acct.Local.Email, tmpl, mailer.Data{
		Name:     acct.Name.First,
		Username: acct.Local.Username,
		Link:     link,
	})
}
