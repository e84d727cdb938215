package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/newsmeme/internal/apperr"
	"github.com/d60-Lab/newsmeme/internal/model"
	"github.com/d60-Lab/newsmeme/internal/socialgraph"
	"github.com/d60-Lab/newsmeme/internal/tagindex"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

func mustUser(t *testing.T, s *Store, name string, role model.Role) *model.User {
	t.Helper()
	u := model.NewUser(name, name+"@example.com")
	u.Role = role
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func mustPost(t *testing.T, s *Store, author *model.User, title, link string, access model.Access) *model.Post {
	t.Helper()
	p := model.NewPost(author, title, link, "", access)
	require.NoError(t, s.Posts.Create(context.Background(), p))
	return p
}

func titles(posts []*model.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Title
	}
	return out
}

func TestFollowAndFanRepositories(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	a := mustUser(t, s, "alice", model.RoleMember)
	b := mustUser(t, s, "bob", model.RoleMember)
	c := mustUser(t, s, "carol", model.RoleMember)

	require.NoError(t, s.Follows.Create(ctx, a.ID, c.ID))
	require.NoError(t, s.Follows.Create(ctx, a.ID, b.ID))
	// 重复关注不报错
	require.NoError(t, s.Follows.Create(ctx, a.ID, b.ID))
	require.NoError(t, s.Fans.Create(ctx, b.ID, a.ID))
	require.NoError(t, s.Fans.Create(ctx, b.ID, a.ID))

	ok, err := s.Follows.Exists(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	following, err := s.Follows.ListFollowings(ctx, a.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, c.ID}, following)

	fans, err := s.Fans.ListFans(ctx, b.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, fans)

	require.NoError(t, s.Follows.Delete(ctx, a.ID, b.ID))
	ok, err = s.Follows.Exists(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Follows.DeleteByUser(ctx, c.ID))
	ids, err := s.Follows.FolloweeIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUserRepository(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	a := mustUser(t, s, "alice", model.RoleMember)
	mustUser(t, s, "root", model.RoleAdmin)

	got, err := s.Users.GetByLogin(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.NotNil(t, got.Followers)

	_, err = s.Users.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	taken, err := s.Users.UsernameTaken(ctx, "alice", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = s.Users.UsernameTaken(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	admins, err := s.Users.ListByRole(ctx, model.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "root", admins[0].Username)

	require.NoError(t, s.Users.Update(ctx, a.ID, map[string]interface{}{"karma": 7}))
	got, err = s.Users.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Karma)
}

func TestPostListRestricted(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	author := mustUser(t, s, "author", model.RoleMember)
	friend := mustUser(t, s, "friend", model.RoleMember)
	stranger := mustUser(t, s, "stranger", model.RoleMember)
	mod := mustUser(t, s, "mod", model.RoleModerator)

	socialgraph.Follow(author, friend)
	socialgraph.Follow(friend, author)

	mustPost(t, s, author, "public", "", model.AccessPublic)
	mustPost(t, s, author, "friends", "", model.AccessFriends)
	mustPost(t, s, author, "private", "", model.AccessPrivate)

	cases := []struct {
		name   string
		viewer *model.User
		public bool
		want   int64
	}{
		{name: "anonymous", viewer: nil, want: 1},
		{name: "stranger", viewer: stranger, want: 1},
		{name: "friend", viewer: friend, want: 2},
		{name: "author", viewer: author, want: 3},
		{name: "moderator", viewer: mod, want: 3},
		{name: "public only", viewer: author, public: true, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			posts, total, err := s.Posts.List(ctx, PostQuery{Viewer: tc.viewer, PublicOnly: tc.public, PerPage: 40})
			require.NoError(t, err)
			assert.Equal(t, tc.want, total)
			assert.Len(t, posts, int(tc.want))
		})
	}
}

func TestPostListFiltersAndSort(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	u := mustUser(t, s, "u", model.RoleMember)

	a := mustPost(t, s, u, "a", "", model.AccessPublic)
	b := mustPost(t, s, u, "b", "", model.AccessPublic)
	c := mustPost(t, s, u, "c", "", model.AccessPublic)
	require.NoError(t, s.Posts.Update(ctx, a.ID, map[string]interface{}{"num_comments": 5, "score": 1}))
	require.NoError(t, s.Posts.Update(ctx, b.ID, map[string]interface{}{"num_comments": 5, "score": 3}))
	require.NoError(t, s.Posts.Update(ctx, c.ID, map[string]interface{}{"score": 0}))

	hot, _, err := s.Posts.List(ctx, PostQuery{Sort: SortHottest})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, titles(hot))

	latest, _, err := s.Posts.List(ctx, PostQuery{Sort: SortLatest})
	require.NoError(t, err)
	assert.Equal(t, "c", latest[0].Title)

	popular, _, err := s.Posts.List(ctx, PostQuery{Filter: FilterPopular, Sort: SortHottest})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, titles(popular))

	dead, _, err := s.Posts.List(ctx, PostQuery{Filter: FilterDeadpool})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, titles(dead))

	page2, total, err := s.Posts.List(ctx, PostQuery{Sort: SortHottest, Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []string{"c"}, titles(page2))
	require.NotNil(t, page2[0].Author)
	assert.Equal(t, "u", page2[0].Author.Username)
}

func TestPostSearch(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	u := mustUser(t, s, "danjac", model.RoleMember)
	mustPost(t, s, u, "testing", "http://reddit.com", model.AccessPublic)
	mustPost(t, s, u, "other", "http://example.com", model.AccessPublic)
	hidden := mustPost(t, s, u, "testing private", "http://reddit.com/r/go", model.AccessPrivate)

	found, _, err := s.Posts.List(ctx, PostQuery{Keywords: []string{"testing", "reddit"}, PublicOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"testing"}, titles(found))

	// 多个关键词之间为 AND
	found, _, err = s.Posts.List(ctx, PostQuery{Keywords: []string{"testing", "example"}, PublicOnly: true})
	require.NoError(t, err)
	assert.Empty(t, found)

	// 作者用户名同样参与匹配，大小写不敏感
	found, total, err := s.Posts.List(ctx, PostQuery{Keywords: []string{"DANJAC"}, PublicOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, found, 2)

	found, _, err = s.Posts.List(ctx, PostQuery{Keywords: []string{"testing"}, Viewer: u})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, hidden.ID, found[0].ID)
}

func TestTagRepository(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	u := mustUser(t, s, "u", model.RoleMember)
	pub := mustPost(t, s, u, "pub", "", model.AccessPublic)
	priv := mustPost(t, s, u, "priv", "", model.AccessPrivate)

	music, err := s.Tags.FindOrCreate(ctx, tagindex.Label{Slug: "music", Name: "music"})
	require.NoError(t, err)
	again, err := s.Tags.FindOrCreate(ctx, tagindex.Label{Slug: "music", Name: "music"})
	require.NoError(t, err)
	assert.Equal(t, music.ID, again.ID)

	comedy, err := s.Tags.FindOrCreate(ctx, tagindex.Label{Slug: "comedy", Name: "comedy"})
	require.NoError(t, err)

	require.NoError(t, s.Tags.ReplacePostTags(ctx, pub.ID, []int64{music.ID, comedy.ID}))
	require.NoError(t, s.Tags.ReplacePostTags(ctx, priv.ID, []int64{music.ID}))

	tags, err := s.Tags.ListByPost(ctx, pub.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	counts, err := s.Tags.Counts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	// private 帖子不计数
	assert.Equal(t, int64(1), counts[0].NumPosts)

	got, err := s.Tags.GetBySlug(ctx, "music")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.NumPosts)

	require.NoError(t, s.Tags.ReplacePostTags(ctx, pub.ID, nil))
	got, err = s.Tags.GetBySlug(ctx, "music")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.NumPosts)

	counts, err = s.Tags.Counts(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, counts)

	_, err = s.Tags.GetBySlug(ctx, "missing")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestCommentRepositoryAndPostDelete(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	author := mustUser(t, s, "author", model.RoleMember)
	other := mustUser(t, s, "other", model.RoleMember)
	pub := mustPost(t, s, author, "pub", "", model.AccessPublic)
	priv := mustPost(t, s, author, "priv", "", model.AccessPrivate)

	c1 := model.NewComment(author, pub, nil, "first")
	require.NoError(t, s.Comments.Create(ctx, c1))
	c2 := model.NewComment(author, pub, &c1.ID, "reply")
	require.NoError(t, s.Comments.Create(ctx, c2))
	c3 := model.NewComment(author, priv, nil, "secret")
	require.NoError(t, s.Comments.Create(ctx, c3))

	n, err := s.Comments.CountByPost(ctx, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := s.Comments.ListByPost(ctx, pub.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, c1.ID, list[0].ID)
	assert.Equal(t, "author", list[0].Author.Username)

	got, err := s.Comments.Get(ctx, c2.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Post)
	assert.Equal(t, "author", got.Post.Author.Username)
	assert.Equal(t, c1.ID, *got.ParentID)

	mine, total, err := s.Comments.ListByAuthor(ctx, CommentQuery{AuthorID: author.ID, Viewer: other})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, mine, 2)

	_, total, err = s.Comments.ListByAuthor(ctx, CommentQuery{AuthorID: author.ID, Viewer: author})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	require.NoError(t, s.Posts.Delete(ctx, pub.ID))
	_, err = s.Posts.Get(ctx, pub.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	n, err = s.Comments.CountByPost(ctx, pub.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTransactionRollback(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	a := mustUser(t, s, "a", model.RoleMember)
	b := mustUser(t, s, "b", model.RoleMember)

	err := s.Transaction(ctx, func(tx *Store) error {
		require.NoError(t, tx.Follows.Create(ctx, a.ID, b.ID))
		return apperr.Validation("boom")
	})
	require.Error(t, err)

	ok, err := s.Follows.Exists(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
