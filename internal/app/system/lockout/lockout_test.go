package lockout

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/contesthub/internal/domain/models"
)

// fakeClock is a settable clock for policy tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func newPolicy(c *fakeClock) Policy {
	return Policy{MaxAttempts: 10, Now: c.Now}
}

// plainVerifier treats the stored hash as the plaintext.
type plainVerifier struct{}

func (plainVerifier) Verify(plaintext, hash string) bool { return hash != "" && plaintext == hash }

func newAuthenticator(c *fakeClock) Authenticator {
	return Authenticator{Policy: newPolicy(c), Verifier: plainVerifier{}}
}

func accountWithPassword(pw string) *models.Account {
	return &models.Account{Local: models.LocalCredentials{Username: "bob123", Password: pw}}
}

func TestLockDuration_ExponentialGrowth(t *testing.T) {
	p := Policy{MaxAttempts: 10}

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{5, 40 * time.Second}, // floored exponent
		{11, 40 * time.Second},
		{12, 50 * time.Second},
		{13, 70 * time.Second},
		{14, 110 * time.Second},
	}

	for _, tt := range tests {
		if got := p.LockDuration(tt.attempts); got != tt.want {
			t.Errorf("LockDuration(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestLockDuration_Capped(t *testing.T) {
	p := Policy{MaxAttempts: 10}
	if got, want := p.LockDuration(1000), p.LockDuration(10+maxExponent); got != want {
		t.Errorf("LockDuration(1000) = %v, want cap %v", got, want)
	}
}

func TestIsLocked_LazyExpiry(t *testing.T) {
	c := newClock()
	p := newPolicy(c)

	until := c.t.Add(40 * time.Second)
	acct := &models.Account{LoginAttempts: 11, LockUntil: &until}

	c.Advance(39 * time.Second)
	if !p.IsLocked(acct) {
		t.Fatal("expected account to be locked before T+D")
	}
	if acct.LockUntil == nil {
		t.Fatal("active lock should not be cleared")
	}

	c.Advance(1 * time.Second)
	if p.IsLocked(acct) {
		t.Fatal("expected account to be unlocked at T+D")
	}
	if acct.LockUntil != nil {
		t.Error("expected expired lock to be cleared on read")
	}
	if acct.LoginAttempts != 11 {
		t.Errorf("LoginAttempts = %d, want 11 (expiry does not reset the counter)", acct.LoginAttempts)
	}
}

func TestRegisterFailure_DoesNotCountWhileLocked(t *testing.T) {
	c := newClock()
	p := newPolicy(c)

	until := c.t.Add(time.Minute)
	acct := &models.Account{LoginAttempts: 11, LockUntil: &until}

	if !p.RegisterFailure(acct) {
		t.Error("expected account to still be locked")
	}
	if acct.LoginAttempts != 11 {
		t.Errorf("LoginAttempts = %d, want 11", acct.LoginAttempts)
	}
	if !acct.LockUntil.Equal(until) {
		t.Errorf("LockUntil changed to %v", acct.LockUntil)
	}
}

func TestLogin_Success(t *testing.T) {
	c := newClock()
	a := newAuthenticator(c)
	acct := accountWithPassword("longpassword1")
	acct.LoginAttempts = 4

	if err := a.Login(acct, "longpassword1"); err != nil {
		t.Fatalf("Login returned %v", err)
	}
	if acct.LoginAttempts != 0 {
		t.Errorf("LoginAttempts = %d, want 0", acct.LoginAttempts)
	}
	if acct.LastLogin == nil || !acct.LastLogin.Equal(c.t) {
		t.Errorf("LastLogin = %v, want %v", acct.LastLogin, c.t)
	}
	if n := len(acct.Logins); n != 1 || !acct.Logins[0].Success || acct.Logins[0].Result != ResultLoginSuccessful {
		t.Errorf("Logins = %+v, want one successful event", acct.Logins)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	c := newClock()
	a := newAuthenticator(c)
	acct := accountWithPassword("longpassword1")

	err := a.Login(acct, "nope-nope-nope")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login returned %v, want ErrInvalidCredentials", err)
	}
	if acct.LoginAttempts != 1 {
		t.Errorf("LoginAttempts = %d, want 1", acct.LoginAttempts)
	}
	if acct.LockUntil != nil {
		t.Error("did not expect a lock after one failure")
	}
	if len(acct.Logins) != 1 || acct.Logins[0].Success {
		t.Fatalf("Logins = %+v, want one failed event", acct.Logins)
	}
	if acct.Logins[0].Result != InvalidCredentialsMessage {
		t.Errorf("Result = %q, want %q", acct.Logins[0].Result, InvalidCredentialsMessage)
	}
}

func TestLogin_LocksAfterMaxAttempts(t *testing.T) {
	c := newClock()
	a := newAuthenticator(c)
	acct := accountWithPassword("longpassword1")
	acct.LoginAttempts = 10

	err := a.Login(acct, "wrong-password")

	var lerr *LockedError
	if !errors.As(err, &lerr) {
		t.Fatalf("Login returned %v, want *LockedError", err)
	}
	if acct.LoginAttempts != 11 {
		t.Errorf("LoginAttempts = %d, want 11", acct.LoginAttempts)
	}
	if acct.LockUntil == nil || !acct.LockUntil.Equal(c.t.Add(40*time.Second)) {
		t.Errorf("LockUntil = %v, want now+40s", acct.LockUntil)
	}
	if !strings.Contains(lerr.Message(), "in 40 seconds") {
		t.Errorf("Message() = %q, want it to mention 40 seconds", lerr.Message())
	}
	if last := acct.Logins[len(acct.Logins)-1]; last.Success || last.Result != lerr.Message() {
		t.Errorf("last event = %+v, want failed with lock message", last)
	}
}

func TestLogin_CorrectPasswordWhileLocked(t *testing.T) {
	c := newClock()
	a := newAuthenticator(c)
	acct := accountWithPassword("longpassword1")
	until := c.t.Add(50 * time.Second)
	acct.LoginAttempts = 12
	acct.LockUntil = &until

	c.Advance(20 * time.Second)
	err := a.Login(acct, "longpassword1")

	var lerr *LockedError
	if !errors.As(err, &lerr) {
		t.Fatalf("Login returned %v, want *LockedError", err)
	}
	if lerr.Remaining != 30*time.Second {
		t.Errorf("Remaining = %v, want 30s", lerr.Remaining)
	}
	if acct.LoginAttempts != 12 {
		t.Errorf("LoginAttempts = %d, want 12", acct.LoginAttempts)
	}
	if acct.LastLogin != nil {
		t.Error("LastLogin should not be set on a locked attempt")
	}
}

func TestLogin_RelocksWithLongerDurationAfterExpiry(t *testing.T) {
	c := newClock()
	a := newAuthenticator(c)
	acct := accountWithPassword("longpassword1")
	acct.LoginAttempts = 10

	_ = a.Login(acct, "wrong-password") // 11 -> 40s
	c.Advance(41 * time.Second)
	err := a.Login(acct, "wrong-password") // expired, 12 -> 50s

	var lerr *LockedError
	if !errors.As(err, &lerr) {
		t.Fatalf("Login returned %v, want *LockedError", err)
	}
	if acct.LoginAttempts != 12 {
		t.Errorf("LoginAttempts = %d, want 12", acct.LoginAttempts)
	}
	if lerr.Remaining != 50*time.Second {
		t.Errorf("Remaining = %v, want 50s", lerr.Remaining)
	}
}

func TestLogin_SuccessAfterLockExpiresResets(t *testing.T) {
	c := newClock()
	a := newAuthenticator(c)
	acct := accountWithPassword("longpassword1")
	until := c.t.Add(40 * time.Second)
	acct.LoginAttempts = 11
	acct.LockUntil = &until

	c.Advance(40 * time.Second)
	if err := a.Login(acct, "longpassword1"); err != nil {
		t.Fatalf("Login returned %v", err)
	}
	if acct.LoginAttempts != 0 || acct.LockUntil != nil {
		t.Errorf("lock state = (%d, %v), want (0, nil)", acct.LoginAttempts, acct.LockUntil)
	}
}

func TestLogin_AttemptsNeverDecreaseOnFailure(t *testing.T) {
	c := newClock()
	a := newAuthenticator(c)
	acct := accountWithPassword("longpassword1")

	prev := 0
	for i := 0; i < 30; i++ {
		_ = a.Login(acct, "wrong-password")
		if acct.LoginAttempts < prev {
			t.Fatalf("attempt %d: LoginAttempts went from %d to %d", i, prev, acct.LoginAttempts)
		}
		prev = acct.LoginAttempts
		c.Advance(5 * time.Second)
	}
	if len(acct.Logins) != 30 {
		t.Errorf("len(Logins) = %d, want 30", len(acct.Logins))
	}
}

func TestHumanizeDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "1 second"},
		{time.Second, "1 second"},
		{39*time.Second + 200*time.Millisecond, "40 seconds"},
		{40 * time.Second, "40 seconds"},
		{70 * time.Second, "2 minutes"},
		{time.Hour, "1 hour"},
		{26 * time.Hour, "2 days"},
	}
	for _, tt := range tests {
		if got := HumanizeDuration(tt.in); got != tt.want {
			t.Errorf("HumanizeDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
