// internal/app/store/contests/store.go
package contests

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/contesthub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound    = errors.New("contest not found")
	ErrDuplicateID = errors.New("a contest with this id already exists")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("contests")}
}

// Create inserts c. Missing timestamps are filled in.
func (s *Store) Create(ctx context.Context, c *models.Contest) error {
	now := time.Now().UTC()
	if c.Created.IsZero() {
		c.Created = now
	}
	if c.Modified.IsZero() {
		c.Modified = c.Created
	}
	if c.Members == nil {
		c.Members = []models.ContestMember{}
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateID
		}
		return err
	}
	return nil
}

// GetByID loads a contest by its UUID.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Contest, error) {
	var c models.Contest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns every contest, newest first.
func (s *Store) List(ctx context.Context) ([]models.Contest, error) {
	return s.find(ctx, bson.M{})
}

// ListForUser returns the contests userID created or is a member of, newest first.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Contest, error) {
	return s.find(ctx, bson.M{"$or": []bson.M{
		{"members.user": userID},
		{"createdBy": userID},
	}})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Contest, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Contest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
