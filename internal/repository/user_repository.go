package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/newsmeme/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetByLogin 按用户名或邮箱查找
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	GetByActivationKey(ctx context.Context, key string) (*model.User, error)
	UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error)
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
	ListByRole(ctx context.Context, min model.Role) ([]*model.User, error)
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
}

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error
}

func (r *userRepository) first(ctx context.Context, query string, args ...interface{}) (*model.User, error) {
	u := model.NewUser("", "")
	if err := r.db.WithContext(ctx).Where(query, args...).First(u).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *userRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	return r.first(ctx, "username = ? OR email = ?", login, login)
}

func (r *userRepository) GetByActivationKey(ctx context.Context, key string) (*model.User, error) {
	return r.first(ctx, "activation_key = ?", key)
}

func (r *userRepository) taken(ctx context.Context, column, value string, exceptID int64) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where(column+" = ? AND id <> ?", value, exceptID).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error) {
	return r.taken(ctx, "username", username, exceptID)
}

func (r *userRepository) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	return r.taken(ctx, "email", email, exceptID)
}

// ListByIDs 按用户名排序
func (r *userRepository) ListByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	users := make([]*model.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("username ASC").Find(&users).Error
	return users, err
}

func (r *userRepository) ListByRole(ctx context.Context, min model.Role) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).Where("role >= ?", min).Order("id ASC").Find(&users).Error
	return users, err
}

func (r *userRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{}).Error
}
