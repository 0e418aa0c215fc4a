package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/follow-graph/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrAlreadyFollowing = errors.New("already following")
	ErrFollowNotFound   = errors.New("follow relationship not found")
)

const (
	followsCollection = "follows"
	usersCollection   = "users"

	// FollowUniqueIndex backs the one-edge-per-pair invariant
	FollowUniqueIndex = "uniq_follow_author"
)

// FollowRepository defines the interface for follow edge operations
type FollowRepository interface {
	FindFollow(ctx context.Context, followID, authorID primitive.ObjectID) (*models.Follow, error)
	CreateFollow(ctx context.Context, follow *models.Follow) error
	DeleteFollow(ctx context.Context, followID, authorID primitive.ObjectID) error
	IsFollowing(ctx context.Context, followID, authorID primitive.ObjectID) (bool, error)
	GetFollowers(ctx context.Context, userID primitive.ObjectID) ([]models.FollowUserDoc, error)
	GetFollowing(ctx context.Context, userID primitive.ObjectID) ([]models.FollowUserDoc, error)
	CountFollowers(ctx context.Context, userID primitive.ObjectID) (int64, error)
	CountFollowing(ctx context.Context, userID primitive.ObjectID) (int64, error)
	DeleteUserEdges(ctx context.Context, userID primitive.ObjectID) (followers, following []primitive.ObjectID, err error)
	EnsureIndexes(ctx context.Context) error
}

// MongoFollowRepository implements FollowRepository for MongoDB
type MongoFollowRepository struct {
	collection *mongo.Collection
}

// NewMongoFollowRepository creates a new MongoFollowRepository
func NewMongoFollowRepository(db *mongo.Database) *MongoFollowRepository {
	return &MongoFollowRepository{collection: db.Collection(followsCollection)}
}

// EnsureIndexes creates the unique (followId, authorId) index and a lookup
// index on authorId for following queries.
func (r *MongoFollowRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "followId", Value: 1}, {Key: "authorId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(FollowUniqueIndex),
		},
		{
			Keys:    bson.D{{Key: "authorId", Value: 1}},
			Options: options.Index().SetName("author_idx"),
		},
	})
	return err
}

// FindFollow returns the edge authorID -> followID, or ErrFollowNotFound
func (r *MongoFollowRepository) FindFollow(ctx context.Context, followID, authorID primitive.ObjectID) (*models.Follow, error) {
	var follow models.Follow
	err := r.collection.FindOne(ctx, bson.M{"followId": followID, "authorId": authorID}).Decode(&follow)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFollowNotFound
		}
		return nil, err
	}
	return &follow, nil
}

// CreateFollow inserts a new edge. A unique index violation means a
// concurrent request created the same edge first.
func (r *MongoFollowRepository) CreateFollow(ctx context.Context, follow *models.Follow) error {
	follow.ID = primitive.NewObjectID()
	follow.CreatedAt = time.Now()
	if _, err := r.collection.InsertOne(ctx, follow); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyFollowing
		}
		return err
	}
	return nil
}

func (r *MongoFollowRepository) DeleteFollow(ctx context.Context, followID, authorID primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"followId": followID, "authorId": authorID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrFollowNotFound
	}
	return nil
}

func (r *MongoFollowRepository) IsFollowing(ctx context.Context, followID, authorID primitive.ObjectID) (bool, error) {
	_, err := r.FindFollow(ctx, followID, authorID)
	if err != nil {
		if errors.Is(err, ErrFollowNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetFollowers lists the users following userID, oldest edge first
func (r *MongoFollowRepository) GetFollowers(ctx context.Context, userID primitive.ObjectID) ([]models.FollowUserDoc, error) {
	return r.lookupUsers(ctx, "followId", userID, "authorId")
}

// GetFollowing lists the users userID follows, oldest edge first
func (r *MongoFollowRepository) GetFollowing(ctx context.Context, userID primitive.ObjectID) ([]models.FollowUserDoc, error) {
	return r.lookupUsers(ctx, "authorId", userID, "followId")
}

func (r *MongoFollowRepository) CountFollowers(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"followId": userID})
}

func (r *MongoFollowRepository) CountFollowing(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"authorId": userID})
}

// DeleteUserEdges removes every edge touching userID on either side and
// returns the users on the other end: who followed userID and whom userID
// followed.
func (r *MongoFollowRepository) DeleteUserEdges(ctx context.Context, userID primitive.ObjectID) (followers, following []primitive.ObjectID, err error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"followId": userID},
		bson.M{"authorId": userID},
	}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	var edges []models.Follow
	if err := cursor.All(ctx, &edges); err != nil {
		return nil, nil, err
	}

	if _, err := r.collection.DeleteMany(ctx, filter); err != nil {
		return nil, nil, err
	}

	for _, e := range edges {
		if e.FollowID == userID {
			followers = append(followers, e.AuthorID)
		} else {
			following = append(following, e.FollowID)
		}
	}
	return followers, following, nil
}

// lookupUsers matches edges on matchField and joins the user on the other side
func (r *MongoFollowRepository) lookupUsers(ctx context.Context, matchField string, userID primitive.ObjectID, joinField string) ([]models.FollowUserDoc, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{matchField: userID}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         usersCollection,
			"localField":   joinField,
			"foreignField": "_id",
			"as":           "userDoc",
		}}},
		{{Key: "$project", Value: bson.M{
			"username": bson.M{"$arrayElemAt": bson.A{"$userDoc.username", 0}},
			"email":    bson.M{"$arrayElemAt": bson.A{"$userDoc.email", 0}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []models.FollowUserDoc{}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

var _ FollowRepository = (*MongoFollowRepository)(nil)
