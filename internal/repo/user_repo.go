package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tazhibayda/tours-service/internal/domain"
	"github.com/tazhibayda/tours-service/internal/query"
)

// ErrDuplicateEmail surfaces the unique index violation on users.email.
var ErrDuplicateEmail = errors.New("email already registered")

// sensitiveProjection is the default read shape: the password hash is only
// reincluded on explicit request (login, update-password verification).
var sensitiveProjection = bson.M{"password": 0}

func (s *Store) EnsureUserIndexes(ctx context.Context) error {
	_, err := s.users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.CreatedAt = time.Now().UTC()
	res, err := s.users().InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

// FindUserByEmail returns nil, nil when no user matches. withPassword
// reincludes the hash for verification paths.
func (s *Store) FindUserByEmail(ctx context.Context, email string, withPassword bool) (*domain.User, error) {
	return s.findOneUser(ctx, bson.M{"email": email}, withPassword)
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID, withPassword bool) (*domain.User, error) {
	return s.findOneUser(ctx, bson.M{"_id": id}, withPassword)
}

// FindUserByResetToken matches the at-rest token hash and requires the
// expiry to still be in the future.
func (s *Store) FindUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	return s.findOneUser(ctx, bson.M{
		"password_reset_token":   tokenHash,
		"password_reset_expires": bson.M{"$gt": now.UTC()},
	}, false)
}

func (s *Store) findOneUser(ctx context.Context, filter bson.M, withPassword bool) (*domain.User, error) {
	opts := options.FindOne()
	if !withPassword {
		opts.SetProjection(sensitiveProjection)
	}
	var u domain.User
	err := s.users().FindOne(ctx, filter, opts).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	_, err := s.users().UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"password_reset_token":   tokenHash,
		"password_reset_expires": expires.UTC(),
	}})
	return err
}

// ClearResetToken is the compensation step when the reset email cannot be
// delivered, and part of the happy path after a successful reset.
func (s *Store) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.users().UpdateByID(ctx, id, bson.M{"$unset": bson.M{
		"password_reset_token":   "",
		"password_reset_expires": "",
	}})
	return err
}

// UpdatePassword stores a new hash, stamps password_changed_at and drops any
// pending reset token. The stamp is backdated one second so a token issued
// in the same second as the change still counts as stale.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	_, err := s.users().UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"password":            hash,
			"password_changed_at": time.Now().UTC().Add(-time.Second),
		},
		"$unset": bson.M{
			"password_reset_token":   "",
			"password_reset_expires": "",
		},
	})
	return err
}

func (s *Store) ListUsers(ctx context.Context, f *query.Features) ([]domain.User, error) {
	cur, err := s.users().Find(ctx, f.FilterDocument(), f.FindOptions())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	users := []domain.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}
