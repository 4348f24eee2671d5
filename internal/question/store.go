package question

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/codeclash-dev/DuelWssManagerService/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no question exists for the requested id.
var ErrNotFound = errors.New("question not found")

// Store reads problem definitions and their hidden test cases. The engine
// never writes questions.
type Store interface {
	GetByID(ctx context.Context, questionID int) (*model.Question, error)
	RandomID(bucket model.DifficultyBucket) int
}

type MongoStore struct {
	questions *mongo.Collection
	rng       *rand.Rand
}

func NewMongoStore(client *mongo.Client, dbName string, rng *rand.Rand) *MongoStore {
	return &MongoStore{
		questions: client.Database(dbName).Collection("questions"),
		rng:       rng,
	}
}

func (s *MongoStore) GetByID(ctx context.Context, questionID int) (*model.Question, error) {
	var q model.Question
	err := s.questions.FindOne(ctx, bson.M{"question_id": questionID}).Decode(&q)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load question %d: %w", questionID, err)
	}
	return &q, nil
}

// RandomID picks a question id pseudo-uniformly from the bucket's id range.
func (s *MongoStore) RandomID(bucket model.DifficultyBucket) int {
	span := bucket.MaxID - bucket.MinID + 1
	if span <= 1 {
		return bucket.MinID
	}
	return bucket.MinID + s.rng.Intn(span)
}
