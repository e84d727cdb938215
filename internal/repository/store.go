package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/newsmeme/internal/apperr"
)

// Store 聚合全部仓储；Transaction 内的仓储绑定到同一个 tx
type Store struct {
	db *gorm.DB

	Users    UserRepository
	Follows  FollowRepository
	Fans     FanRepository
	Posts    PostRepository
	Comments CommentRepository
	Tags     TagRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Users:    NewUserRepository(db),
		Follows:  NewFollowRepository(db),
		Fans:     NewFanRepository(db),
		Posts:    NewPostRepository(db),
		Comments: NewCommentRepository(db),
		Tags:     NewTagRepository(db),
	}
}

func (s *Store) DB() *gorm.DB { return s.db }

// Transaction fn 返回错误时回滚
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// notFound 把 gorm.ErrRecordNotFound 转换为领域错误
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what)
	}
	return err
}
