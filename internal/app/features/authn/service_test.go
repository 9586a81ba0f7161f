package authn

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/contesthub/internal/app/system/authutil"
	"github.com/dalemusser/contesthub/internal/app/system/lockout"
	"github.com/dalemusser/contesthub/internal/app/system/mailer"
	"github.com/dalemusser/contesthub/internal/app/system/resettoken"
	"github.com/dalemusser/contesthub/internal/domain/models"
	"github.com/dalemusser/contesthub/internal/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testBaseURL = "https://contests.example.com"

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type serviceEnv struct {
	svc   *Service
	store *memStore
	mail  *testutil.MailRecorder
	clock *testClock
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	env := &serviceEnv{
		store: newMemStore(),
		mail:  &testutil.MailRecorder{},
		clock: &testClock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)},
	}
	env.svc = NewService(
		env.store,
		env.mail,
		authutil.NewHasher(bcrypt.MinCost),
		lockout.NewPolicy(lockout.DefaultMaxAttempts),
		resettoken.New(resettoken.DefaultTTL),
		Config{Now: env.clock.Now},
		zap.NewNop(),
	)
	return env
}

func (e *serviceEnv) signup(t *testing.T, username, email string) *models.Account {
	t.Helper()
	res, err := e.svc.Signup(context.Background(), SignupInput{
		Username: username,
		Password: "longpassword1",
		Email:    email,
		Name:     models.Name{First: "Test", Last: "User"},
	}, testBaseURL)
	if err != nil {
		t.Fatalf("Signup(%q): %v", username, err)
	}
	return res.Account
}

/*─────────────────────────────────────────────────────────────────────────────*
| Signup                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func TestSignup_CreatesAccountAndSendsMail(t *testing.T) {
	env := newServiceEnv(t)

	res, err := env.svc.Signup(context.Background(), SignupInput{
		Username: "  Bob123 ",
		Password: "longpassword1",
		Email:    "Bob@Example.com",
		Name:     models.Name{First: "Bob Smith"},
	}, testBaseURL)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if res.Message != MsgAccountCreated {
		t.Errorf("Message = %q, want %q", res.Message, MsgAccountCreated)
	}

	stored := env.store.get("bob123")
	if stored == nil {
		t.Fatal("account not stored under normalized username")
	}
	if stored.Local.Email != "bob@example.com" {
		t.Errorf("Email = %q, want bob@example.com", stored.Local.Email)
	}
	if stored.Local.Password == "longpassword1" || !strings.HasPrefix(stored.Local.Password, "$2") {
		t.Errorf("password not hashed: %q", stored.Local.Password)
	}
	if stored.Name != (models.Name{First: "Bob", Last: "Smith"}) {
		t.Errorf("Name = %+v, want Bob Smith split", stored.Name)
	}
	if stored.Role != models.RoleUser {
		t.Errorf("Role = %v, want %v", stored.Role, models.RoleUser)
	}
	if len(stored.Logins) != 1 || stored.Logins[0].Result != "Account Created" {
		t.Errorf("Logins = %+v, want one Account Created event", stored.Logins)
	}

	m, ok := env.mail.Last()
	if !ok {
		t.Fatal("expected a welcome email")
	}
	if m.To != "bob@example.com" || m.Template != mailer.TemplateRegister {
		t.Errorf("mail = %+v, want register mail to bob@example.com", m)
	}
	if m.Data.Link != testBaseURL+"/login" {
		t.Errorf("Link = %q, want %q", m.Data.Link, testBaseURL+"/login")
	}
}

func TestSignup_ConflictIsCaseInsensitive(t *testing.T) {
	env := newServiceEnv(t)
	env.signup(t, "bob123", "bob@example.com")

	_, err := env.svc.Signup(context.Background(), SignupInput{
		Username: "BOB123",
		Password: "longpassword1",
		Email:    "other@example.com",
		Name:     models.Name{First: "Bob"},
	}, testBaseURL)

	var cerr *ConflictError
	if !errors.As(err, &cerr) || cerr.Field != "username" {
		t.Fatalf("err = %v, want username conflict", err)
	}
	status, msg := statusAndMessage(err)
	if status != http.StatusConflict || msg != "An account already exists with username bob123" {
		t.Errorf("statusAndMessage = (%d, %q)", status, msg)
	}
}

func TestSignup_EmailConflictUsesCanonicalForm(t *testing.T) {
	env := newServiceEnv(t)
	env.signup(t, "janedoe", "jane.doe@gmail.com")

	_, err := env.svc.Signup(context.Background(), SignupInput{
		Username: "janedoe2",
		Password: "longpassword1",
		Email:    "JaneDoe+contests@googlemail.com",
		Name:     models.Name{First: "Jane"},
	}, testBaseURL)

	var cerr *ConflictError
	if !errors.As(err, &cerr) || cerr.Field != "email" {
		t.Fatalf("err = %v, want email conflict", err)
	}
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   SignupInput
		want string
	}{
		{"short username", SignupInput{Username: "ab", Password: "longpassword1", Email: "a@example.com", Name: models.Name{First: "A"}}, "Invalid username length."},
		{"long username", SignupInput{Username: strings.Repeat("a", 17), Password: "longpassword1", Email: "a@example.com", Name: models.Name{First: "A"}}, "Invalid username length."},
		{"short password", SignupInput{Username: "abc", Password: "short", Email: "a@example.com", Name: models.Name{First: "A"}}, "Invalid password length."},
		{"short email", SignupInput{Username: "abc", Password: "longpassword1", Email: "a@b", Name: models.Name{First: "A"}}, "Invalid email length."},
		{"bad email", SignupInput{Username: "abc", Password: "longpassword1", Email: "not-an-email", Name: models.Name{First: "A"}}, "Invalid email address."},
		{"no name", SignupInput{Username: "abc", Password: "longpassword1", Email: "a@example.com"}, "A first name is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newServiceEnv(t)
			_, err := env.svc.Signup(context.Background(), tt.in, testBaseURL)
			status, msg := statusAndMessage(err)
			if status != http.StatusConflict || msg != tt.want {
				t.Errorf("statusAndMessage = (%d, %q), want (409, %q)", status, msg, tt.want)
			}
			if len(env.store.byID) != 0 {
				t.Error("no account should be stored")
			}
		})
	}
}

func TestSignup_MailFailureTagsAccount(t *testing.T) {
	env := newServiceEnv(t)
	env.mail.Err = errors.New("smtp down")

	res, err := env.svc.Signup(context.Background(), SignupInput{
		Username: "bob123",
		Password: "longpassword1",
		Email:    "bob@example.com",
		Name:     models.Name{First: "Bob"},
	}, testBaseURL)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if res.Message != MsgAccountCreatedNoMail {
		t.Errorf("Message = %q, want %q", res.Message, MsgAccountCreatedNoMail)
	}
	if stored := env.store.get("bob123"); stored == nil || !stored.HasTag(models.TagRegistrationEmailFailed) {
		t.Errorf("stored account = %+v, want %s tag", stored, models.TagRegistrationEmailFailed)
	}
}

func TestSignup_TagSaveFailure(t *testing.T) {
	env := newServiceEnv(t)
	env.mail.Err = errors.New("smtp down")
	env.store.saveErr = errors.New("write concern failed")

	_, err := env.svc.Signup(context.Background(), SignupInput{
		Username: "bob123",
		Password: "longpassword1",
		Email:    "bob@example.com",
		Name:     models.Name{First: "Bob"},
	}, testBaseURL)

	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "tag account" {
		t.Fatalf("err = %v, want PersistenceError for tag account", err)
	}
	if status, msg := statusAndMessage(err); status != http.StatusInternalServerError || msg != MsgInternal {
		t.Errorf("statusAndMessage = (%d, %q), want (500, %q)", status, msg, MsgInternal)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Login                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func TestLogin_ByUsernameOrEmail(t *testing.T) {
	env := newServiceEnv(t)
	env.signup(t, "bob123", "bob@example.com")

	for _, ident := range []string{"bob123", " BOB123", "Bob@Example.com"} {
		acct, err := env.svc.Login(context.Background(), ident, "longpassword1")
		if err != nil {
			t.Fatalf("Login(%q): %v", ident, err)
		}
		if acct.Local.Username != "bob123" {
			t.Errorf("Login(%q) username = %q", ident, acct.Local.Username)
		}
	}
	if got := env.store.get("bob123"); got.LastLogin == nil || !got.LastLogin.Equal(env.clock.t) {
		t.Errorf("LastLogin = %v, want %v", got.LastLogin, env.clock.t)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	env := newServiceEnv(t)

	_, err := env.svc.Login(context.Background(), "nobody", "longpassword1")
	status, msg := statusAndMessage(err)
	if status != http.StatusUnauthorized || msg != MsgUserNotFound {
		t.Errorf("statusAndMessage = (%d, %q), want (401, %q)", status, msg, MsgUserNotFound)
	}
}

func TestLogin_ShapeChecks(t *testing.T) {
	env := newServiceEnv(t)

	_, err := env.svc.Login(context.Background(), "ab", "longpassword1")
	if status, msg := statusAndMessage(err); status != http.StatusUnauthorized || msg != "Invalid username/email length." {
		t.Errorf("short identifier = (%d, %q), want 401", status, msg)
	}
	_, err = env.svc.Login(context.Background(), "bob123", "short")
	if status, msg := statusAndMessage(err); status != http.StatusUnauthorized || msg != "Invalid password length." {
		t.Errorf("short password = (%d, %q), want 401", status, msg)
	}
}

func TestLogin_WrongPasswordIsPersisted(t *testing.T) {
	env := newServiceEnv(t)
	env.signup(t, "bob123", "bob@example.com")

	_, err := env.svc.Login(context.Background(), "bob123", "wrongpassword")
	status, msg := statusAndMessage(err)
	if status != http.StatusUnauthorized || msg != lockout.InvalidCredentialsMessage {
		t.Errorf("statusAndMessage = (%d, %q)", status, msg)
	}
	stored := env.store.get("bob123")
	if stored.LoginAttempts != 1 {
		t.Errorf("LoginAttempts = %d, want 1", stored.LoginAttempts)
	}
	if last := stored.Logins[len(stored.Logins)-1]; last.Success {
		t.Error("expected failed login event")
	}
}

func TestLogin_LocksOnEleventhFailure(t *testing.T) {
	env := newServiceEnv(t)
	env.signup(t, "bob123", "bob@example.com")
	env.store.update("bob123", func(a *models.Account) { a.LoginAttempts = 10 })

	_, err := env.svc.Login(context.Background(), "bob123", "wrongpassword")
	var lerr *lockout.LockedError
	if !errors.As(err, &lerr) {
		t.Fatalf("err = %v, want *lockout.LockedError", err)
	}
	status, msg := statusAndMessage(err)
	if status != http.StatusUnauthorized || !strings.Contains(msg, "in 40 seconds") {
		t.Errorf("statusAndMessage = (%d, %q), want 401 mentioning 40 seconds", status, msg)
	}
	stored := env.store.get("bob123")
	if stored.LoginAttempts != 11 || stored.LockUntil == nil {
		t.Fatalf("lock state = (%d, %v), want (11, set)", stored.LoginAttempts, stored.LockUntil)
	}

	// correct password is refused while locked
	env.clock.Advance(10 * time.Second)
	if _, err := env.svc.Login(context.Background(), "bob123", "longpassword1"); !errors.As(err, &lerr) {
		t.Fatalf("err = %v, want still locked", err)
	}

	env.clock.Advance(31 * time.Second)
	if _, err := env.svc.Login(context.Background(), "bob123", "longpassword1"); err != nil {
		t.Fatalf("Login after lock expiry: %v", err)
	}
	stored = env.store.get("bob123")
	if stored.LoginAttempts != 0 || stored.LockUntil != nil {
		t.Errorf("lock state = (%d, %v), want cleared", stored.LoginAttempts, stored.LockUntil)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Forgot / Reset                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func tokenFromMail(t *testing.T, mail *testutil.MailRecorder) string {
	t.Helper()
	m, ok := mail.Last()
	if !ok || m.Template != mailer.TemplateForgot {
		t.Fatalf("last mail = %+v, want forgot mail", m)
	}
	prefix := testBaseURL + "/reset/"
	if !strings.HasPrefix(m.Data.Link, prefix) {
		t.Fatalf("Link = %q, want prefix %q", m.Data.Link, prefix)
	}
	return strings.TrimPrefix(m.Data.Link, prefix)
}

func TestForgotReset_RoundTrip(t *testing.T) {
	env := newServiceEnv(t)
	env.signup(t, "bob123", "bob@example.com")
	ctx := context.Background()

	msg, err := env.svc.Forgot(ctx, "bob@example.com", testBaseURL)
	if err != nil {
		t.Fatalf("Forgot: %v", err)
	}
	if msg != "Password reset email sent to bob@example.com" {
		t.Errorf("message = %q", msg)
	}
	token := tokenFromMail(t, env.mail)
	if stored := env.store.get("bob123"); stored.ResetPasswordToken != token {
		t.Errorf("stored token = %q, want %q", stored.ResetPasswordToken, token)
	}

	var bound *models.Account
	res, err := env.svc.Reset(ctx, ResetInput{ResetToken: token, NewPassword: "brandnewpassword"}, testBaseURL,
		func(a *models.Account) error { bound = a; return nil })
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if bound == nil || bound.Local.Username != "bob123" {
		t.Errorf("bound = %+v, want bob123", bound)
	}
	if res.Message != MsgResetDone+MsgResetMailSent {
		t.Errorf("Message = %q", res.Message)
	}
	if m, _ := env.mail.Last(); m.Template != mailer.TemplateReset || m.Data.Link != testBaseURL+"/forgot" {
		t.Errorf("confirmation mail = %+v", m)
	}

	stored := env.store.get("bob123")
	if stored.ResetPasswordToken != "" || stored.ResetPasswordExpires != nil {
		t.Error("reset token should be cleared")
	}
	if _, err := env.svc.Login(ctx, "bob123", "longpassword1"); !errors.Is(err, lockout.ErrInvalidCredentials) {
		t.Errorf("old password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := env.svc.Login(ctx, "bob123", "brandnewpassword"); err != nil {
		t.Errorf("new password: %v", err)
	}
}

func TestReset_TokenIsSingleUse(t *testing.T) {
	env := newServiceEnv(t)
	env.signup(t, "bob123", "bob@example.com")
	ctx := context.Background()

	if _, err := env.svc.Forgot(ctx, "bob123", testBaseURL); err != nil {
		t.Fatalf("Forgot: %v", err)
	}
	token := tokenFromMail(t, env.mail)

	if _, err := env.svc.Reset(ctx, ResetInput{ResetToken: token, NewPassword: "brandnewpassword"}, testBaseURL, nil); err != nil {
		t.Fatalf("first Reset: %v", err)
	}
	_, err := env.svc.Reset(ctx, ResetInput{ResetToken: token, NewPassword: "anotherpassword"}, testBaseURL, nil)
	status, msg := statusAndMessage(err)
	if status != http.StatusBadRequest || msg != MsgTokenInvalid {
		t.Errorf("statusAndMessage = (%d, %q), want (400, %q)", status, msg, MsgTokenInvalid)
	}
}

func TestReset_ExpiredToken(t *testing.T) {
	env := newServiceEnv(t)
	env.signup(t, "bob123", "bob@example.com")
	ctx := context.Background()

	if _, err := env.svc.Forgot(ctx, "bob123", testBaseURL); err != nil {
		t.Fatalf("Forgot: %v", err)
	}
	token := tokenFromMail(t, env.mail)

	env.clock.Advance(resettoken.DefaultTTL + time.Second)
	if _, err := env.svc.Reset(ctx, ResetInput{ResetToken: token, NewPassword: "brandnewpassword"}, testBaseURL, nil); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestReset_ClearsLockout(t *testing.T) {
	env := newServiceEnv(t)
	env.signup(t, "bob123", "bob@example.com")
	until := env.clock.t.Add(time.Hour)
	env.store.update("bob123", func(a *models.Account) {
		a.LoginAttempts = 15
		a.LockUntil = &until
	})
	ctx := context.Background()

	if _, err := env.svc.Forgot(ctx, "bob123", testBaseURL); err != nil {
		t.Fatalf("Forgot: %v", err)
	}
	token := tokenFromMail(t, env.mail)
	if _, err := env.svc.Reset(ctx, ResetInput{ResetToken: token, NewPassword: "brandnewpassword"}, testBaseURL, nil); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	stored := env.store.get("bob123")
	if stored.LoginAttempts != 0 || stored.LockUntil != nil {
		t.Errorf("lock state = (%d, %v), want cleared", stored.LoginAttempts, stored.LockUntil)
	}
}

func TestReset_WithCurrentCredentials(t *testing.T) {
	env := newServiceEnv(t)
	env.signup(t, "bob123", "bob@example.com")
	ctx := context.Background()

	_, err := env.svc.Reset(ctx, ResetInput{Username: "bob123", Password: "wrongpassword", NewPassword: "brandnewpassword"}, testBaseURL, nil)
	if !errors.Is(err, lockout.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}

	if _, err := env.svc.Reset(ctx, ResetInput{Username: "bob123", Password: "longpassword1", NewPassword: "brandnewpassword"}, testBaseURL, nil); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := env.svc.Login(ctx, "bob123", "brandnewpassword"); err != nil {
		t.Errorf("new password: %v", err)
	}
}

func TestReset_WeakNewPassword(t *testing.T) {
	env := newServiceEnv(t)

	tests := []struct {
		name string
		in   ResetInput
		want int
	}{
		{"with token", ResetInput{ResetToken: "abc", NewPassword: "short"}, http.StatusBadRequest},
		{"with password", ResetInput{Username: "bob123", Password: "longpassword1", NewPassword: "short"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Reset(context.Background(), tt.in, testBaseURL, nil)
			status, msg := statusAndMessage(err)
			if status != tt.want || msg != "Invalid password length." {
				t.Errorf("statusAndMessage = (%d, %q), want (%d, Invalid password length.)", status, msg, tt.want)
			}
		})
	}
}

func TestReset_MailFailureIsTolerated(t *testing.T) {
	env := newServiceEnv(t)
	env.signup(t, "bob123", "bob@example.com")
	ctx := context.Background()

	if _, err := env.svc.Forgot(ctx, "bob123", testBaseURL); err != nil {
		t.Fatalf("Forgot: %v", err)
	}
	token := tokenFromMail(t, env.mail)

	env.mail.Err = errors.New("smtp down")
	res, err := env.svc.Reset(ctx, ResetInput{ResetToken: token, NewPassword: "brandnewpassword"}, testBaseURL, nil)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if res.Message != MsgResetDone+MsgResetMailFailed {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestReset_BindFailure(t *testing.T) {
	env := newServiceEnv(t)
	env.signup(t, "bob123", "bob@example.com")
	ctx := context.Background()

	_, err := env.svc.Reset(ctx, ResetInput{Username: "bob123", Password: "longpassword1", NewPassword: "brandnewpassword"}, testBaseURL,
		func(*models.Account) error { return errors.New("cookie store broken") })
	status, msg := statusAndMessage(err)
	if status != http.StatusInternalServerError || msg != MsgSessionFailed {
		t.Errorf("statusAndMessage = (%d, %q)", status, msg)
	}
}

func TestForgot_UnknownUser(t *testing.T) {
	env := newServiceEnv(t)

	_, err := env.svc.Forgot(context.Background(), "nobody", testBaseURL)
	status, msg := statusAndMessage(err)
	if status != http.StatusBadRequest || msg != `Unable to find user "nobody"` {
		t.Errorf("statusAndMessage = (%d, %q)", status, msg)
	}
}

func TestForgot_Empty(t *testing.T) {
	env := newServiceEnv(t)

	_, err := env.svc.Forgot(context.Background(), "   ", testBaseURL)
	if status, _ := statusAndMessage(err); status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestForgot_MailFailure(t *testing.T) {
	env := newServiceEnv(t)
	env.signup(t, "bob123", "bob@example.com")
	env.mail.Err = errors.New("smtp down")

	_, err := env.svc.Forgot(context.Background(), "bob123", testBaseURL)
	status, msg := statusAndMessage(err)
	if status != http.StatusInternalServerError || msg != MsgSendFailed {
		t.Errorf("statusAndMessage = (%d, %q), want (500, %q)", status, msg, MsgSendFailed)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Account / Delete                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func TestAccount_BadID(t *testing.T) {
	env := newServiceEnv(t)
	if _, err := env.svc.Account(context.Background(), "not-an-id"); err == nil {
		t.Error("expected error for malformed id")
	}
}

func TestDelete(t *testing.T) {
	env := newServiceEnv(t)
	acct := env.signup(t, "bob123", "bob@example.com")
	env.signup(t, "alice1", "alice@example.com")
	ctx := context.Background()

	if err := env.svc.Delete(ctx, "BOB123"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := env.svc.Account(ctx, acct.ID.Hex()); err == nil {
		t.Error("expected account to be gone")
	}
	if env.store.get("alice1") == nil {
		t.Error("other accounts must be untouched")
	}
	if err := env.svc.Delete(ctx, "bob123"); err != nil {
		t.Errorf("Delete of missing account = %v, want nil", err)
	}
}
