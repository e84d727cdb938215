package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/newsmeme/internal/model"
)

// FanRepository fans 表：userID 的 followers 集合，与 follows 在同一事务内维护
type FanRepository interface {
	Create(ctx context.Context, userID, fanID int64) error
	Delete(ctx context.Context, userID, fanID int64) error
	ListFans(ctx context.Context, userID int64, offset, limit int) ([]int64, error)
	FanIDs(ctx context.Context, userID int64) ([]int64, error)
	DeleteByUser(ctx context.Context, userID int64) error
}

type fanRepository struct{ db *gorm.DB }

func NewFanRepository(db *gorm.DB) FanRepository { return &fanRepository{db: db} }

func (r *fanRepository) Create(ctx context.Context, userID, fanID int64) error {
	f := &model.Fan{ID: uuid.New().String(), UserID: userID, FanID: fanID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *fanRepository) Delete(ctx context.Context, userID, fanID int64) error {
	return r.db.WithContext(ctx).Where("user_id = ? AND fan_id = ?", userID, fanID).Delete(&model.Fan{}).Error
}

func (r *fanRepository) ListFans(ctx context.Context, userID int64, offset, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Table("fans").
		Select("fans.fan_id").
		Joins("JOIN users ON users.id = fans.fan_id").
		Where("fans.user_id = ?", userID).
		Order("users.username ASC").
		Offset(offset).Limit(limit).
		Scan(&ids).Error
	return ids, err
}

func (r *fanRepository) FanIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Fan{}).Where("user_id = ?", userID).Pluck("fan_id", &ids).Error
	return ids, err
}

func (r *fanRepository) DeleteByUser(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Where("user_id = ? OR fan_id = ?", userID, userID).Delete(&model.Fan{}).Error
}
