package repository

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/entity"
	"github.com/InbalMary/mistertoy-mongo-backend/internal/domain/repository"
	"github.com/InbalMary/mistertoy-mongo-backend/pkg/logger"
)

const (
	labelsCacheKey     = "toy:labels"
	labelStatsCacheKey = "toy:label-stats"
)

// cachedToyRepository keeps label discovery and label stats in redis.
// Writes that can change labels, prices or stock drop both keys.
type cachedToyRepository struct {
	repository.ToyRepository
	rdb *redis.Client
	ttl time.Duration
}

func NewCachedToyRepository(next repository.ToyRepository, rdb *redis.Client, ttl time.Duration) repository.ToyRepository {
	return &cachedToyRepository{
		ToyRepository: next,
		rdb:           rdb,
		ttl:           ttl,
	}
}

func (r *cachedToyRepository) Create(ctx context.Context, toy *entity.Toy) error {
	if err := r.ToyRepository.Create(ctx, toy); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *cachedToyRepository) Update(ctx context.Context, id string, patch entity.ToyPatch) error {
	if err := r.ToyRepository.Update(ctx, id, patch); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *cachedToyRepository) Delete(ctx context.Context, id string, ownerID string) (int64, error) {
	n, err := r.ToyRepository.Delete(ctx, id, ownerID)
	if err != nil {
		return n, err
	}
	if n > 0 {
		r.invalidate(ctx)
	}
	return n, nil
}

func (r *cachedToyRepository) Labels(ctx context.Context) ([]string, error) {
	var labels []string
	if r.get(ctx, labelsCacheKey, &labels) {
		return labels, nil
	}

	labels, err := r.ToyRepository.Labels(ctx)
	if err != nil {
		return nil, err
	}
	r.set(ctx, labelsCacheKey, labels)
	return labels, nil
}

func (r *cachedToyRepository) LabelStats(ctx context.Context) ([]entity.LabelStat, error) {
	var cached map[string]entity.LabelStat
	if r.get(ctx, labelStatsCacheKey, &cached) {
		out := make([]entity.LabelStat, 0, len(cached))
		for label, stat := range cached {
			stat.Label = label
			out = append(out, stat)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
		return out, nil
	}

	labelStats, err := r.ToyRepository.LabelStats(ctx)
	if err != nil {
		return nil, err
	}

	byLabel := make(map[string]entity.LabelStat, len(labelStats))
	for _, s := range labelStats {
		byLabel[s.Label] = s
	}
	r.set(ctx, labelStatsCacheKey, byLabel)
	return labelStats, nil
}

func (r *cachedToyRepository) get(ctx context.Context, key string, dst interface{}) bool {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("cannot read cache %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.Warn("cannot decode cache %s: %v", key, err)
		return false
	}
	return true
}

func (r *cachedToyRepository) set(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		logger.Warn("cannot write cache %s: %v", key, err)
	}
}

func (r *cachedToyRepository) invalidate(ctx context.Context) {
	if err := r.rdb.Del(ctx, labelsCacheKey, labelStatsCacheKey).Err(); err != nil {
		logger.Warn("cannot invalidate label cache: %v", err)
	}
}
