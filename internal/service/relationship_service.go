package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/newsmeme/internal/apperr"
	"github.com/d60-Lab/newsmeme/internal/cache"
	"github.com/d60-Lab/newsmeme/internal/model"
	"github.com/d60-Lab/newsmeme/internal/policy"
	"github.com/d60-Lab/newsmeme/internal/repository"
	"github.com/d60-Lab/newsmeme/internal/socialgraph"
	"github.com/d60-Lab/newsmeme/pkg/logger"
)

var (
	ErrFollowSelf = apperr.Validation("cannot follow self")
)

// RelationshipService 关系链服务
type RelationshipService interface {
	Follow(ctx context.Context, actor policy.Identity, targetID int64) error
	Unfollow(ctx context.Context, actor policy.Identity, targetID int64) error
	ListFollowing(ctx context.Context, userID int64, page, pageSize int) ([]*model.User, error)
	ListFans(ctx context.Context, userID int64, page, pageSize int) ([]*model.User, error)
	Friends(ctx context.Context, userID int64) ([]*model.User, error)
	// Hydrate 加载 u 的 followers / following 集合
	Hydrate(ctx context.Context, u *model.User) error
}

type relationshipService struct {
	store  *repository.Store
	fans   *cache.FanIndex
	mailer Mailer
}

// NewRelationshipService fans 为空时粉丝列表直接查库
func NewRelationshipService(store *repository.Store, fans *cache.FanIndex, mailer Mailer) RelationshipService {
	return &relationshipService{store: store, fans: fans, mailer: mailer}
}

// FanLoader 供 cache.FanIndex 回源：按用户名排序的全部粉丝 id
func FanLoader(store *repository.Store) cache.FanLoader {
	return func(ctx context.Context, userID int64) ([]int64, error) {
		return store.Fans.ListFans(ctx, userID, 0, -1)
	}
}

func hydrate(ctx context.Context, store *repository.Store, u *model.User) error {
	following, err := store.Follows.FolloweeIDs(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("load following: %w", err)
	}
	followers, err := store.Fans.FanIDs(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("load followers: %w", err)
	}
	u.Following = model.NewIDSet(following...)
	u.Followers = model.NewIDSet(followers...)
	return nil
}

func (s *relationshipService) Hydrate(ctx context.Context, u *model.User) error {
	return hydrate(ctx, s.store, u)
}

func (s *relationshipService) Follow(ctx context.Context, actor policy.Identity, targetID int64) error {
	if !actor.IsAuthenticated() {
		return apperr.AuthenticationRequired("login required to follow")
	}
	if actor.ID() == targetID {
		return ErrFollowSelf
	}
	var (
		target  *model.User
		created bool
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if target, err = tx.Users.GetByID(ctx, targetID); err != nil {
			return err
		}
		exists, err := tx.Follows.Exists(ctx, actor.ID(), target.ID)
		if err != nil || exists {
			return err
		}
		if err := hydrate(ctx, tx, target); err != nil {
			return err
		}
		socialgraph.Follow(actor.User, target)
		if err := tx.Follows.Create(ctx, actor.ID(), target.ID); err != nil {
			return err
		}
		created = true
		return tx.Fans.Create(ctx, target.ID, actor.ID())
	})
	if err != nil || !created {
		return err
	}
	s.invalidateFans(ctx, target.ID)
	notify(ctx, s.mailer, Message{
		To:      []string{target.Email},
		Subject: fmt.Sprintf("%s is now following you", actor.User.Username),
		Body:    fmt.Sprintf("%s is now following you on newsmeme.", actor.User.Username),
	})
	return nil
}

func (s *relationshipService) Unfollow(ctx context.Context, actor policy.Identity, targetID int64) error {
	if !actor.IsAuthenticated() {
		return apperr.AuthenticationRequired("login required to unfollow")
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		target, err := tx.Users.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if err := hydrate(ctx, tx, target); err != nil {
			return err
		}
		socialgraph.Unfollow(actor.User, target)
		if err := tx.Follows.Delete(ctx, actor.ID(), target.ID); err != nil {
			return err
		}
		return tx.Fans.Delete(ctx, target.ID, actor.ID())
	})
	if err != nil {
		return err
	}
	s.invalidateFans(ctx, targetID)
	return nil
}

func (s *relationshipService) invalidateFans(ctx context.Context, userID int64) {
	if s.fans == nil {
		return
	}
	if err := s.fans.Invalidate(ctx, userID); err != nil {
		logger.Warn("invalidate fan index failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func paging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return (page - 1) * pageSize, pageSize
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID int64, page, pageSize int) ([]*model.User, error) {
	if _, err := s.store.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	offset, limit := paging(page, pageSize)
	ids, err := s.store.Follows.ListFollowings(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	return s.store.Users.ListByIDs(ctx, ids)
}

func (s *relationshipService) ListFans(ctx context.Context, userID int64, page, pageSize int) ([]*model.User, error) {
	if _, err := s.store.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	offset, limit := paging(page, pageSize)
	var (
		ids []int64
		err error
	)
	if s.fans != nil {
		ids, err = s.fans.Page(ctx, userID, offset, limit)
	} else {
		ids, err = s.store.Fans.ListFans(ctx, userID, offset, limit)
	}
	if err != nil {
		return nil, err
	}
	return s.store.Users.ListByIDs(ctx, ids)
}

func (s *relationshipService) Friends(ctx context.Context, userID int64) ([]*model.User, error) {
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := hydrate(ctx, s.store, u); err != nil {
		return nil, err
	}
	return s.store.Users.ListByIDs(ctx, socialgraph.Friends(u).Slice())
}
