package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"quiz-tournament-service/internal/app"
	"quiz-tournament-service/internal/domain"
)

// ContentRepository caches quiz content in Redis and falls back to a loader on
// cache miss. Content is stored as a hash per tournament:
//
//	HSET tournament:{id}:quiz quiz {json} questions {json}
type ContentRepository struct {
	client *redis.Client
	loader app.QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewContentRepository(client *redis.Client, loader app.QuizLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ContentRepository) GetQuiz(ctx context.Context, tournamentID int64) (domain.QuizContent, error) {
	key := contentKey(tournamentID)
	if content, ok := r.fromCache(ctx, key); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// re-check, another caller may have filled it
		if content, ok := r.fromCache(ctx, key); ok {
			return content, nil
		}

		content, err := r.loader.LoadQuiz(ctx, tournamentID)
		if err != nil {
			return domain.QuizContent{}, err
		}

		quizJSON, err := json.Marshal(content.Quiz)
		if err != nil {
			return domain.QuizContent{}, fmt.Errorf("encode quiz: %w", err)
		}
		questionsJSON, err := json.Marshal(content.Questions)
		if err != nil {
			return domain.QuizContent{}, fmt.Errorf("encode questions: %w", err)
		}

		pipe := r.client.Pipeline()
		pipe.HSet(ctx, key, "quiz", quizJSON, "questions", questionsJSON)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		// a failed cache write only costs a reload
		_, _ = pipe.Exec(ctx)

		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

func (r *ContentRepository) Invalidate(ctx context.Context, tournamentID int64) error {
	if err := r.client.Del(ctx, contentKey(tournamentID)).Err(); err != nil {
		return fmt.Errorf("invalidate quiz content: %w", err)
	}
	return nil
}

func (r *ContentRepository) fromCache(ctx context.Context, key string) (domain.QuizContent, bool) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		return domain.QuizContent{}, false
	}
	var content domain.QuizContent
	if err := json.Unmarshal([]byte(fields["quiz"]), &content.Quiz); err != nil {
		return domain.QuizContent{}, false
	}
	if err := json.Unmarshal([]byte(fields["questions"]), &content.Questions); err != nil {
		return domain.QuizContent{}, false
	}
	return content, true
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func contentKey(tournamentID int64) string {
	return "tournament:" + strconv.FormatInt(tournamentID, 10) + ":quiz"
}
