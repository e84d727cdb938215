package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/newsmeme/internal/model"
)

// FollowRepository follows 表：followerID 的 following 集合
type FollowRepository interface {
	Create(ctx context.Context, followerID, followeeID int64) error
	Delete(ctx context.Context, followerID, followeeID int64) error
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	ListFollowings(ctx context.Context, followerID int64, offset, limit int) ([]int64, error)
	FolloweeIDs(ctx context.Context, followerID int64) ([]int64, error)
	DeleteByUser(ctx context.Context, userID int64) error
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository { return &followRepository{db: db} }

func (r *followRepository) Create(ctx context.Context, followerID, followeeID int64) error {
	f := &model.Follow{ID: uuid.New().String(), FollowerID: followerID, FolloweeID: followeeID}
	// 幂等：重复关注不报错
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *followRepository) Delete(ctx context.Context, followerID, followeeID int64) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&model.Follow{}).Error
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// ListFollowings 按被关注者用户名排序分页
func (r *followRepository) ListFollowings(ctx context.Context, followerID int64, offset, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Table("follows").
		Select("follows.followee_id").
		Joins("JOIN users ON users.id = follows.followee_id").
		Where("follows.follower_id = ?", followerID).
		Order("users.username ASC").
		Offset(offset).Limit(limit).
		Scan(&ids).Error
	return ids, err
}

func (r *followRepository) FolloweeIDs(ctx context.Context, followerID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ?", followerID).
		Pluck("followee_id", &ids).Error
	return ids, err
}

// DeleteByUser 删除用户作为任一端的全部关注边
func (r *followRepository) DeleteByUser(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? OR followee_id = ?", userID, userID).
		Delete(&model.Follow{}).Error
}
