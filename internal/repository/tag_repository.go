package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/newsmeme/internal/model"
	"github.com/d60-Lab/newsmeme/internal/tagindex"
)

type TagRepository interface {
	// FindOrCreate 按 slug 查找，不存在则创建
	FindOrCreate(ctx context.Context, label tagindex.Label) (*model.Tag, error)
	// ReplacePostTags 删除帖子全部关联后重新插入
	ReplacePostTags(ctx context.Context, postID int64, tagIDs []int64) error
	ListByPost(ctx context.Context, postID int64) ([]*model.Tag, error)
	// Counts 至少关联一篇 public 帖子的标签及其帖子数，limit <= 0 表示不限
	Counts(ctx context.Context, limit int) ([]tagindex.Count, error)
	GetBySlug(ctx context.Context, slug string) (*model.Tag, error)
}

type tagRepository struct{ db *gorm.DB }

func NewTagRepository(db *gorm.DB) TagRepository { return &tagRepository{db: db} }

func (r *tagRepository) FindOrCreate(ctx context.Context, label tagindex.Label) (*model.Tag, error) {
	db := r.db.WithContext(ctx)
	tag := &model.Tag{Slug: label.Slug, Name: label.Name}
	res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).Create(tag)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 || tag.ID == 0 {
		// 已存在：重新读取
		tag = &model.Tag{}
		if err := db.Where("slug = ?", label.Slug).First(tag).Error; err != nil {
			return nil, notFound(err, "tag")
		}
	}
	return tag, nil
}

func (r *tagRepository) ReplacePostTags(ctx context.Context, postID int64, tagIDs []int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("post_id = ?", postID).Delete(&model.PostTag{}).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]model.PostTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, model.PostTag{PostID: postID, TagID: id})
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *tagRepository) ListByPost(ctx context.Context, postID int64) ([]*model.Tag, error) {
	tags := make([]*model.Tag, 0)
	err := r.db.WithContext(ctx).
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Where("post_tags.post_id = ?", postID).
		Order("tags.id ASC").
		Find(&tags).Error
	return tags, err
}

func (r *tagRepository) Counts(ctx context.Context, limit int) ([]tagindex.Count, error) {
	db := r.db.WithContext(ctx).
		Table("tags").
		Select("tags.id AS id, tags.slug AS slug, tags.name AS name, COUNT(DISTINCT posts.id) AS num_posts").
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Joins("JOIN posts ON posts.id = post_tags.post_id AND posts.access = ?", model.AccessPublic).
		Group("tags.id, tags.slug, tags.name").
		Order("num_posts DESC").
		Order("tags.id ASC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	counts := make([]tagindex.Count, 0)
	err := db.Scan(&counts).Error
	return counts, err
}

func (r *tagRepository) GetBySlug(ctx context.Context, slug string) (*model.Tag, error) {
	db := r.db.WithContext(ctx)
	var tag model.Tag
	if err := db.Where("slug = ?", slug).First(&tag).Error; err != nil {
		return nil, notFound(err, "tag")
	}
	if err := db.Table("post_tags").
		Joins("JOIN posts ON posts.id = post_tags.post_id").
		Where("post_tags.tag_id = ? AND posts.access = ?", tag.ID, model.AccessPublic).
		Count(&tag.NumPosts).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}
