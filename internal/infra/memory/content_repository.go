package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quiz-tournament-service/internal/app"
	"quiz-tournament-service/internal/domain"
)

// ContentRepository caches quiz content with TTL to avoid repeated store hits.
type ContentRepository struct {
	loader app.QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[int64]cachedContent
}

type cachedContent struct {
	content   domain.QuizContent
	expiresAt time.Time
}

func NewContentRepository(loader app.QuizLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedContent),
	}
}

func (r *ContentRepository) GetQuiz(ctx context.Context, tournamentID int64) (domain.QuizContent, error) {
	if content, ok := r.lookup(tournamentID); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(strconv.FormatInt(tournamentID, 10), func() (interface{}, error) {
		if content, ok := r.lookup(tournamentID); ok {
			return content, nil
		}

		content, err := r.loader.LoadQuiz(ctx, tournamentID)
		if err != nil {
			return domain.QuizContent{}, err
		}

		r.mu.Lock()
		r.cache[tournamentID] = cachedContent{
			content:   content,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

func (r *ContentRepository) Invalidate(_ context.Context, tournamentID int64) error {
	r.mu.Lock()
	delete(r.cache, tournamentID)
	r.mu.Unlock()
	r.sf.Forget(strconv.FormatInt(tournamentID, 10))
	return nil
}

func (r *ContentRepository) lookup(tournamentID int64) (domain.QuizContent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[tournamentID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.QuizContent{}, false
	}
	return entry.content, true
}

// ttlWithJitter must be called with mu held for writing.
func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
