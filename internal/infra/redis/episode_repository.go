package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"onepercent-quiz-service/internal/domain"
)

// EpisodeLoader fetches episode content from a backing store (e.g., Postgres).
type EpisodeLoader interface {
	LoadEpisode(ctx context.Context, key domain.EpisodeKey) (domain.Episode, error)
}

// EpisodeRepository caches whole episodes in Redis as JSON and falls back to a loader on cache miss.
// Episodes are stored as: SET quiz:episode:{country}:{season}:{episode} {json} EX ttl
type EpisodeRepository struct {
	client *redis.Client
	loader EpisodeLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewEpisodeRepository(client *redis.Client, loader EpisodeLoader, ttl time.Duration) *EpisodeRepository {
	return &EpisodeRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *EpisodeRepository) GetEpisode(ctx context.Context, key domain.EpisodeKey) (domain.Episode, error) {
	cacheKey := r.episodeKey(key)
	if episode, ok := r.fromCache(ctx, cacheKey); ok {
		return episode, nil
	}

	result, err, _ := r.sf.Do(cacheKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if episode, ok := r.fromCache(ctx, cacheKey); ok {
			return episode, nil
		}

		episode, err := r.loader.LoadEpisode(ctx, key)
		if err != nil {
			return domain.Episode{}, err
		}

		data, err := json.Marshal(episode)
		if err != nil {
			return domain.Episode{}, fmt.Errorf("marshal episode: %w", err)
		}
		if err := r.client.Set(ctx, cacheKey, data, r.ttlWithJitter()).Err(); err != nil {
			log.Warn().Err(err).Str("episode", key.String()).Msg("episode cache write failed")
		}
		return episode, nil
	})
	if err != nil {
		return domain.Episode{}, err
	}
	return result.(domain.Episode), nil
}

func (r *EpisodeRepository) fromCache(ctx context.Context, cacheKey string) (domain.Episode, bool) {
	data, err := r.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", cacheKey).Msg("episode cache read failed")
		}
		return domain.Episode{}, false
	}
	var episode domain.Episode
	if err := json.Unmarshal(data, &episode); err != nil {
		log.Warn().Err(err).Str("key", cacheKey).Msg("discarding corrupt cached episode")
		return domain.Episode{}, false
	}
	return episode, true
}

func (r *EpisodeRepository) episodeKey(key domain.EpisodeKey) string {
	return fmt.Sprintf("quiz:episode:%s:%d:%d", key.Country, key.Season, key.Episode)
}

func (r *EpisodeRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
