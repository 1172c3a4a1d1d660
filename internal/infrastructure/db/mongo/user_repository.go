package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xapps/user-management-service/internal/core/domain"
)

const usersCollection = "users"

type MongoUserRepository struct {
	coll *mongo.Collection
	seq  *sequences
}

func NewUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(usersCollection), seq: newSequences(db)}
}

type mongoUser struct {
	ID           int64  `bson:"_id"`
	Surname      string `bson:"surname"`
	Lastname     string `bson:"lastname"`
	Username     string `bson:"username"`
	PasswordHash string `bson:"protected_password"`
}

func (u mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:           u.ID,
		Surname:      u.Surname,
		Lastname:     u.Lastname,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
	}
}

// EnsureIndexes creates the unique username index. The pre-insert
// existence check in the service is only a fast path; this index is the
// authoritative uniqueness guard under concurrent creates.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create username index: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *MongoUserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	cursor, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []domain.User
	for cursor.Next(ctx) {
		var mu mongoUser
		if err := cursor.Decode(&mu); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, *mu.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
		}
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return mu.toDomain(), nil
}

func (r *MongoUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %q: %w", username, domain.ErrUserNotFound)
		}
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}
	return mu.toDomain(), nil
}

func (r *MongoUserRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("count user %d: %w", id, err)
	}
	return n > 0, nil
}

func (r *MongoUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"username": username})
	if err != nil {
		return false, fmt.Errorf("count username %q: %w", username, err)
	}
	return n > 0, nil
}

func (r *MongoUserRepository) ExistsByUsernameExcluding(ctx context.Context, id int64, username string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"username": username, "_id": bson.M{"$ne": id}})
	if err != nil {
		return false, fmt.Errorf("count username %q: %w", username, err)
	}
	return n > 0, nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	id, err := r.seq.next(ctx, usersCollection)
	if err != nil {
		return err
	}

	doc := mongoUser{
		ID:           id,
		Surname:      user.Surname,
		Lastname:     user.Lastname,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("username %q: %w", user.Username, domain.ErrDuplicateUsername)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.ID = id
	return nil
}

func (r *MongoUserRepository) Update(ctx context.Context, user *domain.User) error {
	doc := mongoUser{
		ID:           user.ID,
		Surname:      user.Surname,
		Lastname:     user.Lastname,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("username %q: %w", user.Username, domain.ErrDuplicateUsername)
		}
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}
	if res.MatchedCount != 1 {
		return fmt.Errorf("update user %d matched %d documents: %w", user.ID, res.MatchedCount, domain.ErrDatabase)
	}
	return nil
}

func (r *MongoUserRepository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if res.DeletedCount != 1 {
		return fmt.Errorf("delete user %d removed %d documents: %w", id, res.DeletedCount, domain.ErrDatabase)
	}
	return nil
}
