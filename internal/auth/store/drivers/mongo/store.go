// Package mongo stores principals in a MongoDB collection. Documents keep the
// hash under "password" so accounts created by the previous deployment still
// authenticate.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/medmigrate/internal/auth/domain"
	"github.com/aussiebroadwan/medmigrate/internal/auth/store"
	"github.com/aussiebroadwan/medmigrate/pkg/idx"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// UsernameIndex is the unique index that makes username insertion atomic.
const UsernameIndex = "username_unique"

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// NewStore uses collection in db for principals. The store takes ownership of
// client and disconnects it on Close.
func NewStore(client *mongo.Client, db, collection string) *Store {
	return &Store{
		client: client,
		coll:   client.Database(db).Collection(collection),
	}
}

func (s *Store) Principals() store.Principals { return &principalsRepo{coll: s.coll} }

// ApplyMigrations creates the unique username index. CreateOne is a no-op when
// an identical index already exists.
func (s *Store) ApplyMigrations(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(UsernameIndex),
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type principalDoc struct {
	ObjectID  primitive.ObjectID `bson:"_id,omitempty"`
	ID        string             `bson:"id,omitempty"`
	Username  string             `bson:"username"`
	Password  string             `bson:"password"`
	CreatedAt time.Time          `bson:"created_at,omitempty"`
}

type principalsRepo struct {
	coll *mongo.Collection
}

func (r *principalsRepo) GetPrincipalByUsername(ctx context.Context, username string) (domain.Principal, error) {
	var doc principalDoc
	err := r.coll.FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Principal{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Principal{}, err
	}

	id := idx.ID(doc.ID)
	if id.IsZero() {
		// Documents from the previous deployment only carry _id.
		id = idx.ID(doc.ObjectID.Hex())
	}

	return domain.Principal{
		ID:           id.String(),
		Username:     doc.Username,
		PasswordHash: doc.Password,
		CreatedAt:    doc.CreatedAt.UTC(),
	}, nil
}

func (r *principalsRepo) CreatePrincipal(ctx context.Context, p domain.Principal) error {
	id, err := idx.Parse(p.ID)
	if err != nil {
		return fmt.Errorf("mongo: principal id %q: %w", p.ID, err)
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = id.Time()
	}

	_, err = r.coll.InsertOne(ctx, principalDoc{
		ID:        id.String(),
		Username:  p.Username,
		Password:  p.PasswordHash,
		CreatedAt: createdAt.UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *principalsRepo) CountPrincipals(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}
