package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/newsmeme/internal/apperr"
	"github.com/d60-Lab/newsmeme/internal/cache"
	"github.com/d60-Lab/newsmeme/internal/model"
	"github.com/d60-Lab/newsmeme/internal/repository"
	"github.com/d60-Lab/newsmeme/internal/tagindex"
	"github.com/d60-Lab/newsmeme/pkg/logger"
)

const topTagsKey = "tags:top"

type TagService interface {
	// SetTags 在调用方事务内写入标签字符串并整体替换关联
	SetTags(ctx context.Context, tx *repository.Store, post *model.Post, raw string) error
	Cloud(ctx context.Context) ([]tagindex.CloudTag, error)
	// Top 按 public 帖子数排序的前 N 个标签，读缓存
	Top(ctx context.Context) ([]tagindex.Count, error)
	Get(ctx context.Context, slug string) (*model.Tag, error)
	Invalidate(ctx context.Context)
	// Warm 重新计算并写入 Top 缓存
	Warm(ctx context.Context) error
}

type tagService struct {
	store   *repository.Store
	cache   cache.Cache
	ttl     time.Duration
	topN    int
	shuffle tagindex.Shuffler
}

func NewTagService(store *repository.Store, c cache.Cache, ttl time.Duration, topN int) TagService {
	if c == nil {
		c = cache.Nop{}
	}
	if topN <= 0 {
		topN = 10
	}
	return &tagService{store: store, cache: c, ttl: ttl, topN: topN}
}

func (s *tagService) SetTags(ctx context.Context, tx *repository.Store, post *model.Post, raw string) error {
	labels, err := tagindex.Labels(raw)
	if err != nil {
		return apperr.ValidationFields("invalid tags", map[string]string{"tags": err.Error()})
	}
	ids := make([]int64, 0, len(labels))
	for _, l := range labels {
		tag, err := tx.Tags.FindOrCreate(ctx, l)
		if err != nil {
			return err
		}
		ids = append(ids, tag.ID)
	}
	if err := tx.Posts.Update(ctx, post.ID, map[string]interface{}{"tags": raw}); err != nil {
		return err
	}
	post.Tags = raw
	return tx.Tags.ReplacePostTags(ctx, post.ID, ids)
}

func (s *tagService) Cloud(ctx context.Context) ([]tagindex.CloudTag, error) {
	counts, err := s.store.Tags.Counts(ctx, 0)
	if err != nil {
		return nil, err
	}
	return tagindex.Cloud(counts, s.shuffle), nil
}

func (s *tagService) Top(ctx context.Context) ([]tagindex.Count, error) {
	var top []tagindex.Count
	hit, err := s.cache.Get(ctx, topTagsKey, &top)
	if err != nil {
		logger.Warn("read top tags cache failed", zap.Error(err))
	}
	if hit {
		return top, nil
	}
	return s.load(ctx)
}

func (s *tagService) load(ctx context.Context) ([]tagindex.Count, error) {
	top, err := s.store.Tags.Counts(ctx, s.topN)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, topTagsKey, top, s.ttl); err != nil {
		logger.Warn("write top tags cache failed", zap.Error(err))
	}
	return top, nil
}

func (s *tagService) Get(ctx context.Context, slug string) (*model.Tag, error) {
	return s.store.Tags.GetBySlug(ctx, tagindex.Slugify(slug))
}

func (s *tagService) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, topTagsKey); err != nil {
		logger.Warn("invalidate top tags cache failed", zap.Error(err))
	}
}

func (s *tagService) Warm(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}
