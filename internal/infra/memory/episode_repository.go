package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"onepercent-quiz-service/internal/domain"
)

// EpisodeLoader fetches episode content from a backing store (e.g., Postgres).
type EpisodeLoader interface {
	LoadEpisode(ctx context.Context, key domain.EpisodeKey) (domain.Episode, error)
}

// EpisodeRepository caches episodes with TTL to avoid repeated DB hits.
type EpisodeRepository struct {
	loader EpisodeLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[domain.EpisodeKey]cachedEpisode
}

type cachedEpisode struct {
	episode   domain.Episode
	expiresAt time.Time
}

func NewEpisodeRepository(loader EpisodeLoader, ttl time.Duration) *EpisodeRepository {
	return &EpisodeRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[domain.EpisodeKey]cachedEpisode),
	}
}

func (r *EpisodeRepository) GetEpisode(ctx context.Context, key domain.EpisodeKey) (domain.Episode, error) {
	if episode, ok := r.cached(key, r.clock()); ok {
		return episode, nil
	}

	result, err, _ := r.sf.Do(key.String(), func() (interface{}, error) {
		now := r.clock()
		if episode, ok := r.cached(key, now); ok {
			return episode, nil
		}

		episode, err := r.loader.LoadEpisode(ctx, key)
		if err != nil {
			return domain.Episode{}, err
		}

		r.mu.Lock()
		r.cache[key] = cachedEpisode{
			episode:   episode,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return episode, nil
	})
	if err != nil {
		return domain.Episode{}, err
	}
	return result.(domain.Episode), nil
}

func (r *EpisodeRepository) cached(key domain.EpisodeKey, now time.Time) (domain.Episode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	if !ok || !entry.expiresAt.After(now) {
		return domain.Episode{}, false
	}
	return entry.episode, true
}

func (r *EpisodeRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticEpisodeLoader is a simple loader backed by an in-memory slice (useful for tests/demos).
type StaticEpisodeLoader struct {
	episodes map[domain.EpisodeKey]domain.Episode
}

func NewStaticEpisodeLoader(episodes []domain.Episode) *StaticEpisodeLoader {
	byKey := make(map[domain.EpisodeKey]domain.Episode, len(episodes))
	for _, ep := range episodes {
		byKey[ep.Key] = ep
	}
	return &StaticEpisodeLoader{episodes: byKey}
}

func (l *StaticEpisodeLoader) LoadEpisode(_ context.Context, key domain.EpisodeKey) (domain.Episode, error) {
	if episode, ok := l.episodes[key]; ok {
		return episode, nil
	}
	return domain.Episode{}, domain.ErrEpisodeNotFound
}
