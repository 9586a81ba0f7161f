// internal/app/store/accounts/store.go
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/contesthub/internal/app/system/normalize"
	"github.com/dalemusser/contesthub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no account matches.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateUsername is returned when the username is already taken.
	ErrDuplicateUsername = errors.New("an account with this username already exists")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("an account with this email already exists")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var a models.Account
	if err := s.c.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetByID loads an account by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// FindByLogin resolves what a user typed at login, which may be a username or
// an email. Emails match both as typed and in canonical form.
func (s *Store) FindByLogin(ctx context.Context, identifier string) (*models.Account, error) {
	ident := normalize.Identifier(identifier)
	or := []bson.M{
		{"local.username": ident},
		{"local.email": ident},
	}
	if canon := normalize.CanonicalEmail(ident); canon != "" && canon != ident {
		or = append(or, bson.M{"local.email": canon})
	}
	return s.findOne(ctx, bson.M{"$or": or})
}

// FindByUsernameOrEmail returns an account holding either the username or
// the email. Both are matched in normalized form.
func (s *Store) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error) {
	var or []bson.M
	if u := normalize.Username(username); u != "" {
		or = append(or, bson.M{"local.username": u})
	}
	if e := normalize.CanonicalEmail(email); e != "" {
		or = append(or, bson.M{"local.email": e})
	}
	if len(or) == 0 {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"$or": or})
}

// FindByResetToken returns the account holding token, provided it has not
// expired as of now.
func (s *Store) FindByResetToken(ctx context.Context, token string, now time.Time) (*models.Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{
		"resetPasswordToken":   token,
		"resetPasswordExpires": bson.M{"$gt": now.UTC()},
	})
}

// Create inserts a new account. Username and email are normalized, and the
// ID and timestamps are assigned when missing.
func (s *Store) Create(ctx context.Context, a *models.Account) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.Local.Username = normalize.Username(a.Local.Username)
	a.Local.Email = normalize.CanonicalEmail(a.Local.Email)
	if a.Role == 0 {
		a.Role = models.RoleUser
	}
	if a.Logins == nil {
		a.Logins = []models.LoginEvent{}
	}
	now := time.Now().UTC()
	if a.Created.IsZero() {
		a.Created = now
	}
	a.Modified = now

	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return duplicateErr(err)
		}
		return err
	}
	return nil
}

// duplicateErr picks the sentinel from the index named in the server error.
func duplicateErr(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "uniq_users_username") || strings.Contains(msg, "local.username") {
		return ErrDuplicateUsername
	}
	return ErrDuplicateEmail
}

// Save replaces the stored document with a, bumping its modified time.
// The whole document is written, so concurrent saves are last-write-wins.
func (s *Store) Save(ctx context.Context, a *models.Account) error {
	a.Touch(time.Now())
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return duplicateErr(err)
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByIdentifier hard-deletes the account whose username or email equals
// the lowercased uid, or whose _id is uid. It returns the number deleted.
func (s *Store) DeleteByIdentifier(ctx context.Context, uid string) (int64, error) {
	ident := normalize.Identifier(uid)
	or := []bson.M{
		{"local.username": ident},
		{"local.email": ident},
	}
	if oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(uid)); err == nil {
		or = append(or, bson.M{"_id": oid})
	}
	res, err := s.c.DeleteOne(ctx, bson.M{"$or": or})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// UsernameExists reports whether the username is taken.
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, bson.M{"local.username": normalize.Username(username)})
}

// EmailExists reports whether the email, in canonical form, is registered.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	e := normalize.CanonicalEmail(email)
	if e == "" {
		return false, nil
	}
	return s.exists(ctx, bson.M{"local.email": e})
}

func (s *Store) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := s.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearExpiredResetTokens removes reset token pairs that expired at or before
// now. It returns the number of accounts modified.
func (s *Store) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"resetPasswordExpires": bson.M{"$lte": now.UTC()}},
		bson.M{"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpires": ""}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
