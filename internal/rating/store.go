package rating

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/codeclash-dev/DuelWssManagerService/internal/model"
	"github.com/redis/go-redis/v9"
)

// ErrNoRecord is returned when a user has never played a rated match.
var ErrNoRecord = errors.New("rating record not found")

const appliedKeyTTL = 24 * time.Hour

// RedisStore keeps rating records as JSON blobs plus a ZSET for the
// leaderboard read path.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func ratingKey(userID string) string { return fmt.Sprintf("rating:%s", userID) }

const leaderboardKey = "ratings:leaderboard"

func (s *RedisStore) Get(ctx context.Context, userID string) (*model.RatingRecord, error) {
	data, err := s.client.Get(ctx, ratingKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("failed to get rating record: %w", err)
	}

	var record model.RatingRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rating record: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) Save(ctx context.Context, record *model.RatingRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal rating record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, ratingKey(record.UserID), data, 0)
	pipe.ZAdd(ctx, leaderboardKey, redis.Z{
		Score:  float64(record.CurrentRating),
		Member: record.UserID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

// MarkApplied reserves a match id for settlement. Returns false when some
// earlier call already settled it.
func (s *RedisStore) MarkApplied(ctx context.Context, matchID string) (bool, error) {
	return s.client.SetNX(ctx, fmt.Sprintf("match:applied:%s", matchID), "1", appliedKeyTTL).Result()
}

// LeaderboardEntry is one row of the global rating leaderboard.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"userId"`
	Rating int    `json:"rating"`
}

// TopRatings returns the highest-rated users, best first.
func (s *RedisStore) TopRatings(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		userID, _ := row.Member.(string)
		entries = append(entries, LeaderboardEntry{
			Rank:   i + 1,
			UserID: userID,
			Rating: int(row.Score),
		})
	}
	return entries, nil
}
