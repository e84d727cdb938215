// Package socialgraph 维护用户的 followers / following 集合并派生好友关系。
// 只修改内存中的集合，持久化由调用方负责。
package socialgraph

import "github.com/d60-Lab/newsmeme/internal/model"

// Follow a 关注 b；幂等。不拦截 a == b，服务层负责拒绝自关注
func Follow(a, b *model.User) {
	b.Followers.Add(a.ID)
	a.Following.Add(b.ID)
}

// Unfollow 未关注时为空操作
func Unfollow(a, b *model.User) {
	b.Followers.Remove(a.ID)
	a.Following.Remove(b.ID)
}

func IsFollowing(a, b *model.User) bool {
	return a.Following.Has(b.ID)
}

// Friends 互相关注的用户集合
func Friends(u *model.User) model.IDSet {
	return u.Following.Intersect(u.Followers)
}

// IsFriend a 与 userID 互相关注
func IsFriend(a *model.User, userID int64) bool {
	return a.Following.Has(userID) && a.Followers.Has(userID)
}
