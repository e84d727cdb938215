package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/newsmeme/internal/model"
)

type PostFilter int

const (
	FilterNone PostFilter = iota
	// FilterPopular score > 0
	FilterPopular
	// FilterDeadpool score <= 0
	FilterDeadpool
)

type PostSort int

const (
	SortLatest PostSort = iota
	SortHottest
)

// PostQuery 帖子列表条件；Viewer 为空表示匿名
type PostQuery struct {
	Viewer     *model.User
	PublicOnly bool
	Filter     PostFilter
	Sort       PostSort
	AuthorID   int64
	TagID      int64
	Keywords   []string
	Page       int
	PerPage    int
}

type PostRepository interface {
	Create(ctx context.Context, p *model.Post) error
	Get(ctx context.Context, id int64) (*model.Post, error)
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	// Delete 删除帖子及其评论与标签关联
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, q PostQuery) ([]*model.Post, int64, error)
	IDsByAuthor(ctx context.Context, authorID int64) ([]int64, error)
	// LinkTaken 链接是否已被其他 public 帖子使用
	LinkTaken(ctx context.Context, link string, exceptID int64) (bool, error)
}

type postRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (r *postRepository) Get(ctx context.Context, id int64) (*model.Post, error) {
	var p model.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&p, id).Error; err != nil {
		return nil, notFound(err, "post")
	}
	return &p, nil
}

func (r *postRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Updates(fields).Error
}

func (r *postRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("post_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
		return err
	}
	if err := db.Where("post_id = ?", id).Delete(&model.PostTag{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Post{}).Error
}

func (r *postRepository) List(ctx context.Context, q PostQuery) ([]*model.Post, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.Post{})
	if q.PublicOnly {
		db = db.Where("posts.access = ?", model.AccessPublic)
	} else {
		db = restricted(db, q.Viewer)
	}
	switch q.Filter {
	case FilterPopular:
		db = db.Where("posts.score > 0")
	case FilterDeadpool:
		db = db.Where("posts.score <= 0")
	}
	if q.AuthorID != 0 {
		db = db.Where("posts.author_id = ?", q.AuthorID)
	}
	if q.TagID != 0 {
		db = db.Where("posts.id IN (SELECT post_id FROM post_tags WHERE tag_id = ?)", q.TagID)
	}
	db = matchKeywords(db, q.Keywords)

	var total int64
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch q.Sort {
	case SortHottest:
		db = db.Order("posts.num_comments DESC").Order("posts.score DESC").Order("posts.id DESC")
	default:
		db = db.Order("posts.created_at DESC").Order("posts.id DESC")
	}
	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = 1
	}
	if perPage > 0 {
		db = db.Offset((page - 1) * perPage).Limit(perPage)
	}

	posts := make([]*model.Post, 0)
	if err := db.Preload("Author").Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) IDsByAuthor(ctx context.Context, authorID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).Where("author_id = ?", authorID).Pluck("id", &ids).Error
	return ids, err
}

func (r *postRepository) LinkTaken(ctx context.Context, link string, exceptID int64) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("link = ? AND access = ? AND id <> ?", link, model.AccessPublic, exceptID).
		Count(&cnt).Error
	return cnt > 0, err
}
