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

type CommentInput struct {
	Comment string `json:"comment" validate:"required,max=5000"`
}

type AbuseInput struct {
	Complaint string `json:"complaint" validate:"required,max=2000"`
}

type CommentPage struct {
	Comments []*model.Comment `json:"comments"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PerPage  int              `json:"per_page"`
}

type CommentService interface {
	// Add parentID 为空时为顶层评论
	Add(ctx context.Context, actor policy.Identity, postID int64, parentID *int64, in CommentInput) (*model.Comment, error)
	Edit(ctx context.Context, actor policy.Identity, id int64, in CommentInput) (*model.Comment, error)
	// Delete 连同全部回复一起删除
	Delete(ctx context.Context, actor policy.Identity, id int64) error
	Vote(ctx context.Context, actor policy.Identity, id int64, delta int) (*VoteResult, error)
	Thread(ctx context.Context, actor policy.Identity, postID int64) ([]*commenttree.Node, error)
	ListByUser(ctx context.Context, actor policy.Identity, username string, page int) (*CommentPage, error)
	ReportAbuse(ctx context.Context, actor policy.Identity, id int64, in AbuseInput) error
}

type commentService struct {
	store   *repository.Store
	mailer  Mailer
	admins  []string
	perPage int
}

func NewCommentService(store *repository.Store, mailer Mailer, admins []string, perPage int) CommentService {
	if perPage <= 0 {
		perPage = 20
	}
	return &commentService{store: store, mailer: mailer, admins: admins, perPage: perPage}
}

// recount num_comments 以 COUNT 结果写回，与评论增删处于同一事务
func recount(ctx context.Context, tx *repository.Store, postID int64) (int, error) {
	n, err := tx.Comments.CountByPost(ctx, postID)
	if err != nil {
		return 0, err
	}
	if err := tx.Posts.Update(ctx, postID, map[string]interface{}{"num_comments": n}); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *commentService) Add(ctx context.Context, actor policy.Identity, postID int64, parentID *int64, in CommentInput) (*model.Comment, error) {
	if !actor.IsAuthenticated() {
		return nil, apperr.AuthenticationRequired("login required to comment")
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	var (
		comment *model.Comment
		parent  *model.Comment
		post    *model.Post
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if post, err = tx.Posts.Get(ctx, postID); err != nil {
			return err
		}
		if err := policy.Require(policy.ActionView, post, actor); err != nil {
			return err
		}
		if err := policy.Require(policy.ActionComment, post, actor); err != nil {
			return err
		}
		if parentID != nil {
			if parent, err = tx.Comments.Get(ctx, *parentID); err != nil {
				return err
			}
			if parent.PostID != post.ID {
				return apperr.ValidationFields("invalid input", map[string]string{"parent_id": "parent belongs to another post"})
			}
		}
		comment = model.NewComment(actor.User, post, parentID, in.Comment)
		if err := tx.Comments.Create(ctx, comment); err != nil {
			return err
		}
		post.NumComments, err = recount(ctx, tx, post.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.alert(ctx, actor, post, parent)
	return comment, nil
}

// alert 被回复的人开启了 email_alerts 且不是评论者本人时发送提醒
func (s *commentService) alert(ctx context.Context, actor policy.Identity, post *model.Post, parent *model.Comment) {
	recipient, subject := post.Author, "Somebody commented on your post"
	if parent != nil {
		recipient, subject = parent.Author, "Somebody replied to your comment"
	}
	if recipient == nil || !recipient.EmailAlerts || recipient.ID == actor.ID() {
		return
	}
	notify(ctx, s.mailer, Message{
		To:      []string{recipient.Email},
		Subject: subject,
		Body:    fmt.Sprintf("%s commented on %q.", actor.User.Username, post.Title),
	})
}

func (s *commentService) Edit(ctx context.Context, actor policy.Identity, id int64, in CommentInput) (*model.Comment, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	var comment *model.Comment
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if comment, err = tx.Comments.Get(ctx, id); err != nil {
			return err
		}
		if err := policy.Require(policy.ActionEdit, comment, actor); err != nil {
			return err
		}
		comment.Body = in.Comment
		return tx.Comments.Update(ctx, comment.ID, map[string]interface{}{"comment": comment.Body})
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *commentService) Delete(ctx context.Context, actor policy.Identity, id int64) error {
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		comment, err := tx.Comments.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := policy.Require(policy.ActionDelete, comment, actor); err != nil {
			return err
		}
		siblings, err := tx.Comments.ListByPost(ctx, comment.PostID)
		if err != nil {
			return err
		}
		if err := tx.Comments.DeleteByIDs(ctx, commenttree.Subtree(siblings, comment.ID)); err != nil {
			return err
		}
		_, err = recount(ctx, tx, comment.PostID)
		return err
	})
}

func (s *commentService) Vote(ctx context.Context, actor policy.Identity, id int64, delta int) (*VoteResult, error) {
	if !actor.IsAuthenticated() {
		return nil, apperr.AuthenticationRequired("login required to vote")
	}
	if delta != ledger.Up && delta != ledger.Down {
		return nil, ledger.ErrInvalidDelta
	}
	var res VoteResult
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		comment, err := tx.Comments.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := policy.Require(policy.ActionView, comment, actor); err != nil {
			return err
		}
		res.Score = comment.Score
		if !policy.Can(policy.ActionVote, comment, actor) {
			return nil
		}
		if err := ledger.Apply(comment, comment.Author, actor.ID(), delta); err != nil {
			return err
		}
		if err := tx.Comments.Update(ctx, comment.ID, map[string]interface{}{"score": comment.Score, "votes": comment.Votes}); err != nil {
			return err
		}
		if comment.Author != nil {
			if err := tx.Users.Update(ctx, comment.AuthorID, map[string]interface{}{"karma": comment.Author.Karma}); err != nil {
				return err
			}
		}
		res.Score, res.Applied = comment.Score, true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *commentService) Thread(ctx context.Context, actor policy.Identity, postID int64) ([]*commenttree.Node, error) {
	post, err := s.store.Posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := policy.Require(policy.ActionView, post, actor); err != nil {
		return nil, err
	}
	comments, err := s.store.Comments.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return commenttree.Build(comments), nil
}

func (s *commentService) ListByUser(ctx context.Context, actor policy.Identity, username string, page int) (*CommentPage, error) {
	u, err := s.store.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	comments, total, err := s.store.Comments.ListByAuthor(ctx, repository.CommentQuery{
		Viewer:   actor.User,
		AuthorID: u.ID,
		Page:     page,
		PerPage:  s.perPage,
	})
	if err != nil {
		return nil, err
	}
	return &CommentPage{Comments: comments, Total: total, Page: page, PerPage: s.perPage}, nil
}

func (s *commentService) ReportAbuse(ctx context.Context, actor policy.Identity, id int64, in AbuseInput) error {
	if !actor.IsAuthenticated() {
		return apperr.AuthenticationRequired("login required to report abuse")
	}
	if err := validateInput(&in); err != nil {
		return err
	}
	comment, err := s.store.Comments.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Require(policy.ActionView, comment, actor); err != nil {
		return err
	}
	to, err := s.abuseRecipients(ctx)
	if err != nil {
		return err
	}
	notify(ctx, s.mailer, Message{
		From:    actor.User.Email,
		To:      to,
		Subject: "Report Abuse",
		Body:    fmt.Sprintf("Comment %d on post %d reported by %s: %s", comment.ID, comment.PostID, actor.User.Username, in.Complaint),
	})
	return nil
}

// abuseRecipients 配置的管理员邮箱加上全部 moderator 及以上用户，去重
func (s *commentService) abuseRecipients(ctx context.Context) ([]string, error) {
	mods, err := s.store.Users.ListByRole(ctx, model.RoleModerator)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(s.admins)+len(mods))
	to := make([]string, 0, len(s.admins)+len(mods))
	add := func(addr string) {
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		to = append(to, addr)
	}
	for _, a := range s.admins {
		add(a)
	}
	for _, m := range mods {
		add(m.Email)
	}
	return to, nil
}
