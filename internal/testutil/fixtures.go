package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/contesthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateAccount inserts an account with a bcrypt hash of password.
// Username and email are stored as given, so pass them lowercase.
func (f *Fixtures) CreateAccount(ctx context.Context, username, email, password string, role models.Role) models.Account {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash fixture password: %v", err)
	}

	now := time.Now().UTC()
	a := models.Account{
		ID: primitive.NewObjectID(),
		Local: models.LocalCredentials{
			Username: username,
			Email:    email,
			Password: string(hash),
		},
		Name:     models.Name{First: "Test", Last: "User"},
		Role:     role,
		Logins:   []models.LoginEvent{},
		Created:  now,
		Modified: now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test account: %v", err)
	}
	return a
}

// CreateUser inserts a regular account.
func (f *Fixtures) CreateUser(ctx context.Context, username, email string) models.Account {
	f.t.Helper()
	return f.CreateAccount(ctx, username, email, "longpassword1", models.RoleUser)
}

// CreateAdmin inserts an admin account.
func (f *Fixtures) CreateAdmin(ctx context.Context, username, email string) models.Account {
	f.t.Helper()
	return f.CreateAccount(ctx, username, email, "longpassword1", models.RoleAdmin)
}

// CreateContest inserts a contest created by owner. Extra members join with
// the member role.
func (f *Fixtures) CreateContest(ctx context.Context, name string, owner primitive.ObjectID, members ...primitive.ObjectID) models.Contest {
	f.t.Helper()

	c := models.NewContest(name, "", owner, time.Now())
	for _, m := range members {
		c.Members = append(c.Members, models.ContestMember{
			User:          m,
			Notifications: []models.MemberNotification{},
			Role:          models.MemberRoleMember,
		})
	}

	if _, err := f.db.Collection("contests").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test contest: %v", err)
	}
	return *c
}
