package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xapps/user-management-service/internal/core/domain"
)

const userRolesCollection = "users_roles"

type MongoUserRoleRepository struct {
	coll *mongo.Collection
}

func NewUserRoleRepository(db *mongo.Database) *MongoUserRoleRepository {
	return &MongoUserRoleRepository{coll: db.Collection(userRolesCollection)}
}

type mongoUserRole struct {
	UserID int64 `bson:"user_id"`
	RoleID int64 `bson:"role_id"`
}

// EnsureIndexes creates the compound unique index that mirrors the
// user_id+role_id primary key of the relation.
func (r *MongoUserRoleRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "role_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create assignment index: %w", err)
	}
	return nil
}

func (r *MongoUserRoleRepository) CreateAll(ctx context.Context, assignments []domain.UserRoleAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(assignments))
	for _, a := range assignments {
		docs = append(docs, mongoUserRole{UserID: a.UserID, RoleID: a.RoleID})
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert assignments: %w", err)
	}
	return nil
}

// DeleteByUserID removes every assignment row for the user. Deleting
// zero rows is not an error: a user may legitimately hold no roles
// after an earlier partial write.
func (r *MongoUserRoleRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("delete assignments for user %d: %w", userID, err)
	}
	return nil
}
