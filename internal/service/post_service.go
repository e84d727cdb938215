package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/d60-Lab/newsmeme/internal/apperr"
	"github.com/d60-Lab/newsmeme/internal/commenttree"
	"github.com/d60-Lab/newsmeme/internal/ledger"
	"github.com/d60-Lab/newsmeme/internal/model"
	"github.com/d60-Lab/newsmeme/internal/policy"
	"github.com/d60-Lab/newsmeme/internal/repository"
)

// 列表类型
const (
	ListHottest  = "hottest"
	ListLatest   = "latest"
	ListDeadpool = "deadpool"
)

// 公开搜索 API 返回条数：默认 20，最多 100
const (
	PublicSearchDefault = 20
	PublicSearchMax     = 100
)

type PostInput struct {
	Title       string       `json:"title" validate:"required,max=200"`
	Link        string       `json:"link" validate:"omitempty,url,max=250"`
	Description string       `json:"description"`
	Tags        string       `json:"tags" validate:"max=500"`
	Access      model.Access `json:"access"`
}

type ListOptions struct {
	Kind     string
	Page     int
	Tag      string
	Username string
	Keywords string
}

type PostPage struct {
	Posts   []*model.Post `json:"posts"`
	Total   int64         `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

type PostDetail struct {
	Post     *model.Post         `json:"post"`
	TagList  []string            `json:"tag_list"`
	// Tags 关联的标签行，带 slug 供跳转标签页
	Tags     []*model.Tag        `json:"tags"`
	Slug     string              `json:"slug"`
	Comments []*commenttree.Node `json:"comments"`
}

type VoteResult struct {
	Score   int  `json:"score"`
	Applied bool `json:"applied"`
}

type PostService interface {
	Submit(ctx context.Context, actor policy.Identity, in PostInput) (*model.Post, error)
	Get(ctx context.Context, actor policy.Identity, id int64) (*PostDetail, error)
	Edit(ctx context.Context, actor policy.Identity, id int64, in PostInput) (*model.Post, error)
	Delete(ctx context.Context, actor policy.Identity, id int64) error
	Vote(ctx context.Context, actor policy.Identity, id int64, delta int) (*VoteResult, error)
	List(ctx context.Context, actor policy.Identity, opts ListOptions) (*PostPage, error)
	Search(ctx context.Context, actor policy.Identity, keywords string, page int) (*PostPage, error)
	// PublicPost / PublicSearch 只暴露 public 帖子
	PublicPost(ctx context.Context, id int64) (*model.PostJSON, error)
	PublicSearch(ctx context.Context, keywords string, limit int) ([]model.PostJSON, error)
	PublicUserPosts(ctx context.Context, username string) ([]model.PostJSON, error)
}

type postService struct {
	store   *repository.Store
	tags    TagService
	mailer  Mailer
	perPage int
}

func NewPostService(store *repository.Store, tags TagService, mailer Mailer, perPage int) PostService {
	if perPage <= 0 {
		perPage = 40
	}
	return &postService{store: store, tags: tags, mailer: mailer, perPage: perPage}
}

func (s *postService) checkInput(ctx context.Context, tx *repository.Store, in *PostInput, exceptID int64) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Link = strings.TrimSpace(in.Link)
	if err := validateInput(in); err != nil {
		return err
	}
	if !in.Access.Valid() {
		return apperr.ValidationFields("invalid input", map[string]string{"access": "oneof"})
	}
	if in.Link != "" {
		taken, err := tx.Posts.LinkTaken(ctx, in.Link, exceptID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.ValidationFields("invalid input", map[string]string{"link": "This link has already been posted"})
		}
	}
	return nil
}

func (s *postService) Submit(ctx context.Context, actor policy.Identity, in PostInput) (*model.Post, error) {
	if !actor.IsAuthenticated() {
		return nil, apperr.AuthenticationRequired("login required to submit")
	}
	if in.Access == 0 {
		in.Access = model.AccessPublic
	}
	var post *model.Post
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := s.checkInput(ctx, tx, &in, 0); err != nil {
			return err
		}
		post = model.NewPost(actor.User, in.Title, in.Link, in.Description, in.Access)
		if err := tx.Posts.Create(ctx, post); err != nil {
			return err
		}
		return s.tags.SetTags(ctx, tx, post, in.Tags)
	})
	if err != nil {
		return nil, err
	}
	if post.Access == model.AccessPublic && post.Tags != "" {
		s.tags.Invalidate(ctx)
	}
	return post, nil
}

func (s *postService) Get(ctx context.Context, actor policy.Identity, id int64) (*PostDetail, error) {
	post, err := s.store.Posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Require(policy.ActionView, post, actor); err != nil {
		return nil, err
	}
	tags, err := s.store.Tags.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.Comments.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return &PostDetail{
		Post:     post,
		TagList:  post.TagList(),
		Tags:     tags,
		Slug:     post.Slug(),
		Comments: commenttree.Build(comments),
	}, nil
}

func (s *postService) Edit(ctx context.Context, actor policy.Identity, id int64, in PostInput) (*model.Post, error) {
	var (
		post       *model.Post
		wasPublic  bool
		tagsBefore string
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if post, err = tx.Posts.Get(ctx, id); err != nil {
			return err
		}
		if err := policy.Require(policy.ActionEdit, post, actor); err != nil {
			return err
		}
		// 未传 access 时沿用原可见性
		if in.Access == 0 {
			in.Access = post.Access
		}
		if err := s.checkInput(ctx, tx, &in, post.ID); err != nil {
			return err
		}
		wasPublic, tagsBefore = post.Access == model.AccessPublic, post.Tags
		post.Title, post.Link, post.Description, post.Access = in.Title, in.Link, in.Description, in.Access
		if err := tx.Posts.Update(ctx, post.ID, map[string]interface{}{
			"title":       post.Title,
			"link":        post.Link,
			"description": post.Description,
			"access":      post.Access,
		}); err != nil {
			return err
		}
		return s.tags.SetTags(ctx, tx, post, in.Tags)
	})
	if err != nil {
		return nil, err
	}
	isPublic := post.Access == model.AccessPublic
	if wasPublic != isPublic || (isPublic && tagsBefore != post.Tags) {
		s.tags.Invalidate(ctx)
	}
	if actor.ID() != post.AuthorID && post.Author != nil {
		notify(ctx, s.mailer, Message{
			To:      []string{post.Author.Email},
			Subject: "Your post has been edited",
			Body:    fmt.Sprintf("Your post %q has been edited by a moderator.", post.Title),
		})
	}
	return post, nil
}

func (s *postService) Delete(ctx context.Context, actor policy.Identity, id int64) error {
	var post *model.Post
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if post, err = tx.Posts.Get(ctx, id); err != nil {
			return err
		}
		if err := policy.Require(policy.ActionDelete, post, actor); err != nil {
			return err
		}
		return tx.Posts.Delete(ctx, post.ID)
	})
	if err != nil {
		return err
	}
	if post.Access == model.AccessPublic && post.Tags != "" {
		s.tags.Invalidate(ctx)
	}
	if actor.ID() != post.AuthorID && post.Author != nil {
		notify(ctx, s.mailer, Message{
			To:      []string{post.Author.Email},
			Subject: "Your post has been deleted",
			Body:    fmt.Sprintf("Your post %q has been deleted by a moderator.", post.Title),
		})
	}
	return nil
}

// Vote 先检查可见性；自投与重复投票为静默空操作。
// score / karma / votes 以事务开始时读到的值为基础写回绝对值，并发投票可能丢失更新。
func (s *postService) Vote(ctx context.Context, actor policy.Identity, id int64, delta int) (*VoteResult, error) {
	if !actor.IsAuthenticated() {
		return nil, apperr.AuthenticationRequired("login required to vote")
	}
	if delta != ledger.Up && delta != ledger.Down {
		return nil, ledger.ErrInvalidDelta
	}
	var res VoteResult
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		post, err := tx.Posts.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := policy.Require(policy.ActionView, post, actor); err != nil {
			return err
		}
		res.Score = post.Score
		if !policy.Can(policy.ActionVote, post, actor) {
			return nil
		}
		if err := ledger.Apply(post, post.Author, actor.ID(), delta); err != nil {
			return err
		}
		if err := tx.Posts.Update(ctx, post.ID, map[string]interface{}{"score": post.Score, "votes": post.Votes}); err != nil {
			return err
		}
		if post.Author != nil {
			if err := tx.Users.Update(ctx, post.AuthorID, map[string]interface{}{"karma": post.Author.Karma}); err != nil {
				return err
			}
		}
		res.Score, res.Applied = post.Score, true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *postService) List(ctx context.Context, actor policy.Identity, opts ListOptions) (*PostPage, error) {
	q := repository.PostQuery{Viewer: actor.User, Page: opts.Page, PerPage: s.perPage}
	switch opts.Kind {
	case "", ListHottest:
		q.Filter, q.Sort = repository.FilterPopular, repository.SortHottest
	case ListLatest:
		q.Filter, q.Sort = repository.FilterPopular, repository.SortLatest
	case ListDeadpool:
		q.Filter, q.Sort = repository.FilterDeadpool, repository.SortLatest
	default:
		return nil, apperr.ValidationFields("invalid input", map[string]string{"sort": "oneof"})
	}
	if opts.Tag != "" {
		tag, err := s.tags.Get(ctx, opts.Tag)
		if err != nil {
			return nil, err
		}
		q.TagID, q.Filter, q.Sort = tag.ID, repository.FilterNone, repository.SortLatest
	}
	if opts.Username != "" {
		u, err := s.store.Users.GetByUsername(ctx, opts.Username)
		if err != nil {
			return nil, err
		}
		q.AuthorID, q.Filter, q.Sort = u.ID, repository.FilterNone, repository.SortLatest
	}
	if opts.Keywords != "" {
		q.Keywords, q.Filter = strings.Fields(opts.Keywords), repository.FilterNone
	}
	return s.page(ctx, q)
}

func (s *postService) page(ctx context.Context, q repository.PostQuery) (*PostPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	posts, total, err := s.store.Posts.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: posts, Total: total, Page: q.Page, PerPage: q.PerPage}, nil
}

func (s *postService) Search(ctx context.Context, actor policy.Identity, keywords string, page int) (*PostPage, error) {
	words := strings.Fields(keywords)
	if len(words) == 0 {
		return nil, apperr.ValidationFields("invalid input", map[string]string{"keywords": "required"})
	}
	return s.page(ctx, repository.PostQuery{
		Viewer:   actor.User,
		Keywords: words,
		Sort:     repository.SortLatest,
		Page:     page,
		PerPage:  s.perPage,
	})
}

func (s *postService) PublicPost(ctx context.Context, id int64) (*model.PostJSON, error) {
	post, err := s.store.Posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Access != model.AccessPublic {
		return nil, apperr.NotFound("post")
	}
	out := post.JSON()
	return &out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return PublicSearchDefault
	}
	if limit > PublicSearchMax {
		return PublicSearchMax
	}
	return limit
}

func toJSON(posts []*model.Post) []model.PostJSON {
	out := make([]model.PostJSON, len(posts))
	for i, p := range posts {
		out[i] = p.JSON()
	}
	return out
}

func (s *postService) PublicSearch(ctx context.Context, keywords string, limit int) ([]model.PostJSON, error) {
	words := strings.Fields(keywords)
	if len(words) == 0 {
		return []model.PostJSON{}, nil
	}
	posts, _, err := s.store.Posts.List(ctx, repository.PostQuery{
		PublicOnly: true,
		Keywords:   words,
		Sort:       repository.SortLatest,
		PerPage:    clampLimit(limit),
	})
	if err != nil {
		return nil, err
	}
	return toJSON(posts), nil
}

func (s *postService) PublicUserPosts(ctx context.Context, username string) ([]model.PostJSON, error) {
	u, err := s.store.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	posts, _, err := s.store.Posts.List(ctx, repository.PostQuery{
		PublicOnly: true,
		AuthorID:   u.ID,
		Sort:       repository.SortLatest,
	})
	if err != nil {
		return nil, err
	}
	return toJSON(posts), nil
}
