package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"stays/internal/models"
)

const usersCollection = "users"

// IUserService exposes the profile operations the marketplace needs.
type IUserService interface {
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	FindByIDs(ctx context.Context, userIDs []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error)
	// ApplyHostGrant marks the user as a host. Applying the same grant twice is a no-op,
	// and host_since keeps the earliest grant time.
	ApplyHostGrant(ctx context.Context, grant models.HostGrant) error
}

type userService struct {
	db *mongo.Database
}

// NewUserService creates a new UserService.
func NewUserService(db *mongo.Database) IUserService {
	return &userService{db: db}
}

func (s *userService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", userID.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("error finding user by ID %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

func (s *userService) FindByIDs(ctx context.Context, userIDs []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	users := make(map[primitive.ObjectID]*models.User, len(userIDs))
	if len(userIDs) == 0 {
		return users, nil
	}
	cursor, err := s.db.Collection(usersCollection).Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	defer cursor.Close(ctx)

	var found []models.User
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for i := range found {
		users[found[i].ID] = &found[i]
	}
	return users, nil
}

func (s *userService) ApplyHostGrant(ctx context.Context, grant models.HostGrant) error {
	grantedAt := grant.GrantedAt
	if grantedAt.IsZero() {
		grantedAt = time.Now()
	}
	update := bson.M{
		"$set": bson.M{"is_host": true, "updated_at": time.Now().UTC()},
		"$min": bson.M{"host_since": grantedAt.UTC()},
	}
	result, err := s.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"_id": grant.UserID}, update)
	if err != nil {
		return fmt.Errorf("failed to apply host grant to user %s: %w", grant.UserID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", grant.UserID.Hex(), ErrNotFound)
	}
	return nil
}
