package socialgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/d60-Lab/newsmeme/internal/model"
)

func newUser(id int64) *model.User {
	u := model.NewUser("", "")
	u.ID = id
	return u
}

func TestFollowUnfollow(t *testing.T) {
	a, b := newUser(1), newUser(2)

	Follow(a, b)
	assert.True(t, IsFollowing(a, b))
	assert.False(t, IsFollowing(b, a))
	assert.True(t, b.Followers.Has(a.ID))

	Follow(a, b)
	assert.Equal(t, 1, a.Following.Len())
	assert.Equal(t, 1, b.Followers.Len())

	Unfollow(a, b)
	assert.False(t, IsFollowing(a, b))
	assert.False(t, b.Followers.Has(a.ID))

	// 未关注时取消关注为空操作
	Unfollow(a, b)
	assert.Equal(t, 0, a.Following.Len())
}

func TestFriendsRequireMutualFollow(t *testing.T) {
	a, b, c := newUser(1), newUser(2), newUser(3)

	Follow(a, b)
	assert.False(t, IsFriend(a, b.ID))
	assert.Empty(t, Friends(a))

	Follow(b, a)
	assert.True(t, IsFriend(a, b.ID))
	assert.True(t, IsFriend(b, a.ID))
	assert.Equal(t, []int64{2}, Friends(a).Slice())

	Follow(a, c)
	assert.False(t, IsFriend(a, c.ID))
	assert.Equal(t, []int64{2}, Friends(a).Slice())

	Unfollow(b, a)
	assert.False(t, IsFriend(a, b.ID))
}

func TestFollowOnZeroValueUser(t *testing.T) {
	a := &model.User{ID: 1}
	b := &model.User{ID: 2}
	Follow(a, b)
	assert.True(t, IsFollowing(a, b))
}

// 集合层不拦截自关注：用户会成为自己的好友
func TestSelfFollowIsNotGuarded(t *testing.T) {
	a := newUser(1)
	Follow(a, a)
	assert.True(t, IsFriend(a, a.ID))
	assert.Equal(t, []int64{1}, Friends(a).Slice())
}
