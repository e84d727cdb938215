package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/newsmeme/internal/model"
)

// CommentQuery 某用户的评论列表，按所属帖子的可见性过滤
type CommentQuery struct {
	Viewer   *model.User
	AuthorID int64
	Page     int
	PerPage  int
}

type CommentRepository interface {
	Create(ctx context.Context, c *model.Comment) error
	// Get 预加载作者、所属帖子及帖子作者
	Get(ctx context.Context, id int64) (*model.Comment, error)
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	// ListByPost 按 id 升序，供评论树构建
	ListByPost(ctx context.Context, postID int64) ([]*model.Comment, error)
	ListByAuthor(ctx context.Context, q CommentQuery) ([]*model.Comment, int64, error)
	ListAllByAuthor(ctx context.Context, authorID int64) ([]*model.Comment, error)
	CountByPost(ctx context.Context, postID int64) (int64, error)
	DeleteByIDs(ctx context.Context, ids []int64) error
}

type commentRepository struct{ db *gorm.DB }

func NewCommentRepository(db *gorm.DB) CommentRepository { return &commentRepository{db: db} }

func (r *commentRepository) Create(ctx context.Context, c *model.Comment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

func (r *commentRepository) Get(ctx context.Context, id int64) (*model.Comment, error) {
	var c model.Comment
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Post").
		Preload("Post.Author").
		First(&c, id).Error; err != nil {
		return nil, notFound(err, "comment")
	}
	return &c, nil
}

func (r *commentRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Updates(fields).Error
}

func (r *commentRepository) ListByPost(ctx context.Context, postID int64) ([]*model.Comment, error) {
	comments := make([]*model.Comment, 0)
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) ListByAuthor(ctx context.Context, q CommentQuery) ([]*model.Comment, int64, error) {
	sub := restricted(r.db.Model(&model.Post{}).Select("posts.id"), q.Viewer)
	db := r.db.WithContext(ctx).Model(&model.Comment{}).
		Where("comments.author_id = ?", q.AuthorID).
		Where("comments.post_id IN (?)", sub)

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if q.PerPage > 0 {
		db = db.Offset((page - 1) * q.PerPage).Limit(q.PerPage)
	}
	comments := make([]*model.Comment, 0)
	err := db.Preload("Author").Preload("Post").Preload("Post.Author").
		Order("comments.id DESC").
		Find(&comments).Error
	return comments, total, err
}

func (r *commentRepository) ListAllByAuthor(ctx context.Context, authorID int64) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := r.db.WithContext(ctx).Where("author_id = ?", authorID).Order("id ASC").Find(&comments).Error
	return comments, err
}

func (r *commentRepository) CountByPost(ctx context.Context, postID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

func (r *commentRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Comment{}).Error
}
