package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/newsmeme/internal/apperr"
	"github.com/d60-Lab/newsmeme/internal/model"
	"github.com/d60-Lab/newsmeme/internal/socialgraph"
)

type fixture struct {
	author, friend, follower, stranger, moderator, admin *model.User
}

func newFixture() fixture {
	mk := func(id int64, role model.Role) *model.User {
		u := model.NewUser("", "")
		u.ID = id
		u.Role = role
		return u
	}
	f := fixture{
		author:    mk(1, model.RoleMember),
		friend:    mk(2, model.RoleMember),
		follower:  mk(3, model.RoleMember),
		stranger:  mk(4, model.RoleMember),
		moderator: mk(5, model.RoleModerator),
		admin:     mk(6, model.RoleAdmin),
	}
	socialgraph.Follow(f.author, f.friend)
	socialgraph.Follow(f.friend, f.author)
	// 单向关注不构成好友
	socialgraph.Follow(f.follower, f.author)
	return f
}

func post(author *model.User, access model.Access) *model.Post {
	p := model.NewPost(author, "t", "", "", access)
	p.ID = 10
	return p
}

func TestViewPost(t *testing.T) {
	f := newFixture()
	cases := []struct {
		name   string
		access model.Access
		who    Identity
		allow  bool
		reason Reason
	}{
		{name: "public anonymous", access: model.AccessPublic, who: Anonymous(), allow: true, reason: ReasonOK},
		{name: "public stranger", access: model.AccessPublic, who: As(f.stranger), allow: true, reason: ReasonOK},
		{name: "friends author", access: model.AccessFriends, who: As(f.author), allow: true, reason: ReasonOK},
		{name: "friends friend", access: model.AccessFriends, who: As(f.friend), allow: true, reason: ReasonOK},
		{name: "friends one-way follower", access: model.AccessFriends, who: As(f.follower), allow: false, reason: ReasonFriendsOnly},
		{name: "friends stranger", access: model.AccessFriends, who: As(f.stranger), allow: false, reason: ReasonFriendsOnly},
		{name: "friends moderator", access: model.AccessFriends, who: As(f.moderator), allow: true, reason: ReasonOK},
		{name: "friends anonymous", access: model.AccessFriends, who: Anonymous(), allow: false, reason: ReasonAnonymous},
		{name: "private author", access: model.AccessPrivate, who: As(f.author), allow: true, reason: ReasonOK},
		{name: "private friend", access: model.AccessPrivate, who: As(f.friend), allow: false, reason: ReasonPrivate},
		{name: "private moderator", access: model.AccessPrivate, who: As(f.moderator), allow: true, reason: ReasonOK},
		{name: "private admin", access: model.AccessPrivate, who: As(f.admin), allow: true, reason: ReasonOK},
		{name: "private anonymous", access: model.AccessPrivate, who: Anonymous(), allow: false, reason: ReasonAnonymous},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(ActionView, post(f.author, tc.access), tc.who)
			assert.Equal(t, tc.allow, d.Allowed)
			assert.Equal(t, tc.reason, d.Reason)
		})
	}
}

func TestEditDeletePost(t *testing.T) {
	f := newFixture()
	p := post(f.author, model.AccessPublic)
	cases := []struct {
		name  string
		who   Identity
		allow bool
	}{
		{name: "author", who: As(f.author), allow: true},
		{name: "friend", who: As(f.friend), allow: false},
		{name: "moderator", who: As(f.moderator), allow: true},
		{name: "admin", who: As(f.admin), allow: true},
		{name: "anonymous", who: Anonymous(), allow: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allow, Can(ActionEdit, p, tc.who))
			assert.Equal(t, tc.allow, Can(ActionDelete, p, tc.who))
		})
	}
}

func TestVote(t *testing.T) {
	f := newFixture()
	p := post(f.author, model.AccessPublic)
	p.Votes.Add(f.friend.ID)

	assert.Equal(t, Decision{Reason: ReasonAnonymous}, Decide(ActionVote, p, Anonymous()))
	assert.Equal(t, Decision{Reason: ReasonOwnContent}, Decide(ActionVote, p, As(f.author)))
	assert.Equal(t, Decision{Reason: ReasonAlreadyVoted}, Decide(ActionVote, p, As(f.friend)))
	assert.True(t, Can(ActionVote, p, As(f.stranger)))

	c := model.NewComment(f.stranger, p, nil, "hi")
	assert.False(t, Can(ActionVote, c, As(f.stranger)))
	assert.True(t, Can(ActionVote, c, As(f.author)))
}

func TestCommentFollowsPostVisibility(t *testing.T) {
	f := newFixture()
	p := post(f.author, model.AccessFriends)
	c := model.NewComment(f.friend, p, nil, "hi")

	assert.True(t, Can(ActionView, c, As(f.friend)))
	assert.False(t, Can(ActionView, c, As(f.stranger)))
	assert.True(t, Can(ActionView, c, As(f.moderator)))

	// 评论的作者可以编辑自己的评论，帖子作者不行
	assert.True(t, Can(ActionEdit, c, As(f.friend)))
	assert.False(t, Can(ActionEdit, c, As(f.author)))
}

func TestCommentOnPost(t *testing.T) {
	f := newFixture()
	p := post(f.author, model.AccessPublic)
	assert.True(t, Can(ActionComment, p, As(f.stranger)))
	assert.False(t, Can(ActionComment, p, Anonymous()))
}

func TestSendMessage(t *testing.T) {
	f := newFixture()

	f.author.ReceiveEmail = false
	assert.Equal(t, ReasonNoEmail, Decide(ActionSendMessage, f.author, As(f.friend)).Reason)

	f.author.ReceiveEmail = true
	assert.True(t, Can(ActionSendMessage, f.author, As(f.friend)))
	assert.Equal(t, ReasonNotFriend, Decide(ActionSendMessage, f.author, As(f.follower)).Reason)
	assert.Equal(t, ReasonAnonymous, Decide(ActionSendMessage, f.author, Anonymous()).Reason)

	f.stranger.ReceiveEmail = true
	assert.Equal(t, ReasonNoFriends, Decide(ActionSendMessage, f.stranger, As(f.friend)).Reason)
}

func TestDecisionIsRecomputed(t *testing.T) {
	f := newFixture()
	p := post(f.author, model.AccessFriends)
	require.True(t, Can(ActionView, p, As(f.friend)))

	socialgraph.Unfollow(f.author, f.friend)
	assert.False(t, Can(ActionView, p, As(f.friend)))

	p.Access = model.AccessPublic
	assert.True(t, Can(ActionView, p, As(f.friend)))
}

func TestRequire(t *testing.T) {
	f := newFixture()
	p := post(f.author, model.AccessPrivate)

	assert.NoError(t, Require(ActionView, p, As(f.author)))

	err := Require(ActionView, p, Anonymous())
	assert.ErrorIs(t, err, apperr.ErrAuthenticationRequired)

	err = Require(ActionView, p, As(f.stranger))
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestUnsupported(t *testing.T) {
	f := newFixture()
	assert.Equal(t, ReasonUnsupported, Decide(ActionVote, f.author, As(f.friend)).Reason)
	assert.Equal(t, ReasonUnsupported, Decide(ActionView, "post", As(f.friend)).Reason)
}
