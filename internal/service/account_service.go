package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/newsmeme/internal/apperr"
	"github.com/d60-Lab/newsmeme/internal/auth"
	"github.com/d60-Lab/newsmeme/internal/cache"
	"github.com/d60-Lab/newsmeme/internal/commenttree"
	"github.com/d60-Lab/newsmeme/internal/model"
	"github.com/d60-Lab/newsmeme/internal/policy"
	"github.com/d60-Lab/newsmeme/internal/repository"
	"github.com/d60-Lab/newsmeme/pkg/logger"
)

var ErrBadCredentials = apperr.AuthenticationRequired("invalid login or password")

type SignupInput struct {
	Username      string `json:"username" validate:"required,min=2,max=60,username"`
	Email         string `json:"email" validate:"required,email,max=150"`
	Password      string `json:"password" validate:"required,min=6"`
	PasswordAgain string `json:"password_again" validate:"eqfield=Password"`
}

type LoginInput struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AccountInput struct {
	Username     string `json:"username" validate:"required,min=2,max=60,username"`
	Email        string `json:"email" validate:"required,email,max=150"`
	ReceiveEmail bool   `json:"receive_email"`
	EmailAlerts  bool   `json:"email_alerts"`
}

type PasswordInput struct {
	Password      string `json:"password" validate:"required,min=6"`
	PasswordAgain string `json:"password_again" validate:"eqfield=Password"`
}

type ResetInput struct {
	ActivationKey string `json:"activation_key" validate:"required"`
	PasswordInput
}

type MessageInput struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type Profile struct {
	User        *model.User   `json:"user"`
	NumPosts    int64         `json:"num_posts"`
	NumComments int64         `json:"num_comments"`
	Posts       []*model.Post `json:"posts"`
	Page        int           `json:"page"`
}

type AccountService interface {
	Signup(ctx context.Context, in SignupInput) (*model.User, error)
	Authenticate(ctx context.Context, login, password string) (*model.User, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	// Identify 加载用户及其关系集合，供请求鉴权使用
	Identify(ctx context.Context, userID int64) (policy.Identity, error)
	Edit(ctx context.Context, actor policy.Identity, in AccountInput) (*model.User, error)
	ChangePassword(ctx context.Context, actor policy.Identity, in PasswordInput) error
	// RecoverPassword 生成一次性 activation key 并邮件发送；邮箱不存在返回 NotFound
	RecoverPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in ResetInput) error
	Delete(ctx context.Context, actor policy.Identity, password string) error
	SendMessage(ctx context.Context, actor policy.Identity, userID int64, in MessageInput) error
	Profile(ctx context.Context, actor policy.Identity, username string, page int) (*Profile, error)
}

type accountService struct {
	store    *repository.Store
	tokens   *auth.TokenManager
	tags     TagService
	fans     *cache.FanIndex
	mailer   Mailer
	perPage  int
	hashCost int
}

func NewAccountService(store *repository.Store, tokens *auth.TokenManager, tags TagService, fans *cache.FanIndex, mailer Mailer, perPage int) AccountService {
	if perPage <= 0 {
		perPage = 40
	}
	return &accountService{
		store:    store,
		tokens:   tokens,
		tags:     tags,
		fans:     fans,
		mailer:   mailer,
		perPage:  perPage,
		hashCost: bcrypt.DefaultCost,
	}
}

func (s *accountService) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func checkPassword(u *model.User, password string) bool {
	if u.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

func (s *accountService) checkUnique(ctx context.Context, username, email string, exceptID int64) error {
	fields := map[string]string{}
	taken, err := s.store.Users.UsernameTaken(ctx, username, exceptID)
	if err != nil {
		return err
	}
	if taken {
		fields["username"] = "This username is taken"
	}
	if taken, err = s.store.Users.EmailTaken(ctx, email, exceptID); err != nil {
		return err
	}
	if taken {
		fields["email"] = "This email is taken"
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("invalid input", fields)
	}
	return nil
}

func (s *accountService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	in.Username, in.Email = strings.TrimSpace(in.Username), strings.TrimSpace(in.Email)
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, in.Username, in.Email, 0); err != nil {
		return nil, err
	}
	hashed, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := model.NewUser(in.Username, in.Email)
	u.Password = hashed
	if err := s.store.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *accountService) Authenticate(ctx context.Context, login, password string) (*model.User, error) {
	u, err := s.store.Users.GetByLogin(ctx, strings.TrimSpace(login))
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !checkPassword(u, password) {
		return nil, ErrBadCredentials
	}
	return u, nil
}

func (s *accountService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	u, err := s.Authenticate(ctx, in.Login, in.Password)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *accountService) Identify(ctx context.Context, userID int64) (policy.Identity, error) {
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return policy.Anonymous(), err
	}
	if err := hydrate(ctx, s.store, u); err != nil {
		return policy.Anonymous(), err
	}
	return policy.As(u), nil
}

func requireLogin(actor policy.Identity) error {
	if !actor.IsAuthenticated() {
		return apperr.AuthenticationRequired("login required")
	}
	return nil
}

func (s *accountService) Edit(ctx context.Context, actor policy.Identity, in AccountInput) (*model.User, error) {
	if err := requireLogin(actor); err != nil {
		return nil, err
	}
	in.Username, in.Email = strings.TrimSpace(in.Username), strings.TrimSpace(in.Email)
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, in.Username, in.Email, actor.ID()); err != nil {
		return nil, err
	}
	if err := s.store.Users.Update(ctx, actor.ID(), map[string]interface{}{
		"username":      in.Username,
		"email":         in.Email,
		"receive_email": in.ReceiveEmail,
		"email_alerts":  in.EmailAlerts,
	}); err != nil {
		return nil, err
	}
	u := actor.User
	u.Username, u.Email, u.ReceiveEmail, u.EmailAlerts = in.Username, in.Email, in.ReceiveEmail, in.EmailAlerts
	return u, nil
}

func (s *accountService) setPassword(ctx context.Context, userID int64, password string) error {
	hashed, err := s.hash(password)
	if err != nil {
		return err
	}
	return s.store.Users.Update(ctx, userID, map[string]interface{}{
		"password":       hashed,
		"activation_key": nil,
	})
}

func (s *accountService) ChangePassword(ctx context.Context, actor policy.Identity, in PasswordInput) error {
	if err := requireLogin(actor); err != nil {
		return err
	}
	if err := validateInput(&in); err != nil {
		return err
	}
	return s.setPassword(ctx, actor.ID(), in.Password)
}

func (s *accountService) RecoverPassword(ctx context.Context, email string) error {
	u, err := s.store.Users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	key := uuid.New().String()
	if err := s.store.Users.Update(ctx, u.ID, map[string]interface{}{"activation_key": key}); err != nil {
		return err
	}
	notify(ctx, s.mailer, Message{
		To:      []string{u.Email},
		Subject: "Recover your password",
		Body:    "Use this key to reset your password: " + key,
	})
	return nil
}

func (s *accountService) ResetPassword(ctx context.Context, in ResetInput) error {
	if err := validateInput(&in); err != nil {
		return err
	}
	u, err := s.store.Users.GetByActivationKey(ctx, in.ActivationKey)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return apperr.Forbidden("invalid activation key")
	}
	if err != nil {
		return err
	}
	return s.setPassword(ctx, u.ID, in.Password)
}

// Delete 删除账户及其帖子、评论（含回复子树）与关注关系
func (s *accountService) Delete(ctx context.Context, actor policy.Identity, password string) error {
	if err := requireLogin(actor); err != nil {
		return err
	}
	if !checkPassword(actor.User, password) {
		return apperr.ValidationFields("invalid input", map[string]string{"password": "Password is not correct"})
	}
	var followees []int64
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if followees, err = tx.Follows.FolloweeIDs(ctx, actor.ID()); err != nil {
			return err
		}
		postIDs, err := tx.Posts.IDsByAuthor(ctx, actor.ID())
		if err != nil {
			return err
		}
		own := model.NewIDSet(postIDs...)
		if err := deleteCommentsBy(ctx, tx, actor.ID(), own); err != nil {
			return err
		}
		for _, id := range postIDs {
			if err := tx.Posts.Delete(ctx, id); err != nil {
				return err
			}
		}
		if err := tx.Follows.DeleteByUser(ctx, actor.ID()); err != nil {
			return err
		}
		if err := tx.Fans.DeleteByUser(ctx, actor.ID()); err != nil {
			return err
		}
		return tx.Users.Delete(ctx, actor.ID())
	})
	if err != nil {
		return err
	}
	s.tags.Invalidate(ctx)
	if s.fans != nil {
		if err := s.fans.Invalidate(ctx, followees...); err != nil {
			logger.Warn("invalidate fan index failed", zap.Error(err))
		}
	}
	return nil
}

// deleteCommentsBy 删除 authorID 在他人帖子下的评论及回复，并重算这些帖子的 num_comments
func deleteCommentsBy(ctx context.Context, tx *repository.Store, authorID int64, skipPosts model.IDSet) error {
	mine, err := tx.Comments.ListAllByAuthor(ctx, authorID)
	if err != nil {
		return err
	}
	byPost := map[int64][]int64{}
	for _, c := range mine {
		if !skipPosts.Has(c.PostID) {
			byPost[c.PostID] = append(byPost[c.PostID], c.ID)
		}
	}
	for postID, roots := range byPost {
		all, err := tx.Comments.ListByPost(ctx, postID)
		if err != nil {
			return err
		}
		doomed := model.IDSet{}
		for _, id := range roots {
			for _, sub := range commenttree.Subtree(all, id) {
				doomed.Add(sub)
			}
		}
		if err := tx.Comments.DeleteByIDs(ctx, doomed.Slice()); err != nil {
			return err
		}
		if _, err := recount(ctx, tx, postID); err != nil {
			return err
		}
	}
	return nil
}

func (s *accountService) SendMessage(ctx context.Context, actor policy.Identity, userID int64, in MessageInput) error {
	if err := requireLogin(actor); err != nil {
		return err
	}
	target, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := hydrate(ctx, s.store, target); err != nil {
		return err
	}
	if err := policy.Require(policy.ActionSendMessage, target, actor); err != nil {
		return err
	}
	if err := validateInput(&in); err != nil {
		return err
	}
	if s.mailer == nil {
		return errors.New("mailer not configured")
	}
	return s.mailer.Send(ctx, Message{
		To:      []string{target.Email},
		Subject: fmt.Sprintf("You have received a message from %s", actor.User.Username),
		Body:    in.Subject + "\n\n" + in.Message,
	})
}

func (s *accountService) Profile(ctx context.Context, actor policy.Identity, username string, page int) (*Profile, error) {
	u, err := s.store.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	posts, numPosts, err := s.store.Posts.List(ctx, repository.PostQuery{
		Viewer:   actor.User,
		AuthorID: u.ID,
		Sort:     repository.SortLatest,
		Page:     page,
		PerPage:  s.perPage,
	})
	if err != nil {
		return nil, err
	}
	_, numComments, err := s.store.Comments.ListByAuthor(ctx, repository.CommentQuery{
		Viewer:   actor.User,
		AuthorID: u.ID,
		PerPage:  1,
	})
	if err != nil {
		return nil, err
	}
	return &Profile{User: u, NumPosts: numPosts, NumComments: numComments, Posts: posts, Page: page}, nil
}
