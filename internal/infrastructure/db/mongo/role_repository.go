package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/xapps/user-management-service/internal/core/domain"
)

const rolesCollection = "roles"

type MongoRoleRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
	seq  *sequences
}

func NewRoleRepository(db *mongo.Database) *MongoRoleRepository {
	return &MongoRoleRepository{db: db, coll: db.Collection(rolesCollection), seq: newSequences(db)}
}

type mongoRole struct {
	ID   int64  `bson:"_id"`
	Name string `bson:"value"`
}

func (r mongoRole) toDomain() domain.Role {
	return domain.Role{ID: r.ID, Name: domain.RoleName(r.Name)}
}

func (r *MongoRoleRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count roles: %w", err)
	}
	return n, nil
}

func (r *MongoRoleRepository) FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	var mr mongoRole
	if err := r.coll.FindOne(ctx, bson.M{"value": string(name)}).Decode(&mr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("role %q: %w", name, domain.ErrRoleNotFound)
		}
		return nil, fmt.Errorf("find role %q: %w", name, err)
	}
	role := mr.toDomain()
	return &role, nil
}

// FindByNames resolves every name or fails: a request naming a role that
// does not exist is a validation error, not a shorter result set.
func (r *MongoRoleRepository) FindByNames(ctx context.Context, names []domain.RoleName) ([]domain.Role, error) {
	values := make([]string, 0, len(names))
	for _, n := range names {
		values = append(values, string(n))
	}

	cursor, err := r.coll.Find(ctx, bson.M{"value": bson.M{"$in": values}})
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	defer cursor.Close(ctx)

	found := make(map[domain.RoleName]domain.Role)
	for cursor.Next(ctx) {
		var mr mongoRole
		if err := cursor.Decode(&mr); err != nil {
			return nil, fmt.Errorf("decode role: %w", err)
		}
		role := mr.toDomain()
		found[role.Name] = role
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	roles := make([]domain.Role, 0, len(names))
	for _, n := range names {
		role, ok := found[n]
		if !ok {
			return nil, fmt.Errorf("role %q: %w", n, domain.ErrUnknownRole)
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// FindByUserID returns the roles assigned to a user. A user with no
// assignment rows fails with domain.ErrRoleNotFound: every live user is
// expected to hold at least one role.
func (r *MongoRoleRepository) FindByUserID(ctx context.Context, userID int64) ([]domain.Role, error) {
	cursor, err := r.db.Collection(userRolesCollection).Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("find assignments for user %d: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var roleIDs []int64
	for cursor.Next(ctx) {
		var ur mongoUserRole
		if err := cursor.Decode(&ur); err != nil {
			return nil, fmt.Errorf("decode assignment: %w", err)
		}
		roleIDs = append(roleIDs, ur.RoleID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	if len(roleIDs) == 0 {
		return nil, fmt.Errorf("roles for user %d: %w", userID, domain.ErrRoleNotFound)
	}

	roleCursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": roleIDs}})
	if err != nil {
		return nil, fmt.Errorf("find roles for user %d: %w", userID, err)
	}
	defer roleCursor.Close(ctx)

	var roles []domain.Role
	for roleCursor.Next(ctx) {
		var mr mongoRole
		if err := roleCursor.Decode(&mr); err != nil {
			return nil, fmt.Errorf("decode role: %w", err)
		}
		roles = append(roles, mr.toDomain())
	}
	if err := roleCursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

func (r *MongoRoleRepository) CreateAll(ctx context.Context, roles []domain.Role) ([]domain.Role, error) {
	docs := make([]interface{}, 0, len(roles))
	created := make([]domain.Role, 0, len(roles))
	for _, role := range roles {
		id, err := r.seq.next(ctx, rolesCollection)
		if err != nil {
			return nil, err
		}
		docs = append(docs, mongoRole{ID: id, Name: string(role.Name)})
		created = append(created, domain.Role{ID: id, Name: role.Name})
	}

	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("insert roles: %w", err)
	}
	return created, nil
}
