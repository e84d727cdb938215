// Package policy 是可见性与权限判定引擎。
//
// Decide 是纯函数：每次调用都根据当前的用户、角色和关系集合重新计算，
// 不缓存任何结果。调用方在执行写操作之前用 Require 把拒绝转换为错误。
package policy

import (
	"github.com/d60-Lab/newsmeme/internal/apperr"
	"github.com/d60-Lab/newsmeme/internal/model"
	"github.com/d60-Lab/newsmeme/internal/socialgraph"
)

type Action string

const (
	ActionView        Action = "view"
	ActionEdit        Action = "edit"
	ActionDelete      Action = "delete"
	ActionVote        Action = "vote"
	ActionComment     Action = "comment"
	ActionSendMessage Action = "send_message"
)

// Reason 机器可读的判定原因
type Reason string

const (
	ReasonOK           Reason = "ok"
	ReasonAnonymous    Reason = "authentication_required"
	ReasonNotAuthor    Reason = "not_author"
	ReasonPrivate      Reason = "private"
	ReasonFriendsOnly  Reason = "friends_only"
	ReasonAlreadyVoted Reason = "already_voted"
	ReasonOwnContent   Reason = "own_content"
	ReasonNoEmail      Reason = "receive_email_disabled"
	ReasonNoFriends    Reason = "no_friends"
	ReasonNotFriend    Reason = "not_friend"
	ReasonUnsupported  Reason = "unsupported"
)

// Identity 请求方身份；User 为空表示匿名
type Identity struct {
	User *model.User
}

func Anonymous() Identity { return Identity{} }

func As(u *model.User) Identity { return Identity{User: u} }

func (i Identity) IsAuthenticated() bool { return i.User != nil }

// ID 匿名返回 0
func (i Identity) ID() int64 {
	if i.User == nil {
		return 0
	}
	return i.User.ID
}

func (i Identity) isModerator() bool { return i.User.IsModerator() }

// Subject 判定对象：*model.Post、*model.Comment 或 *model.User
type Subject interface{}

type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision { return Decision{Allowed: true, Reason: ReasonOK} }

func deny(r Reason) Decision { return Decision{Reason: r} }

// Decide 计算 identity 能否对 subject 执行 action
func Decide(action Action, subject Subject, id Identity) Decision {
	switch s := subject.(type) {
	case *model.Post:
		return decidePost(action, s, id)
	case *model.Comment:
		return decideComment(action, s, id)
	case *model.User:
		return decideUser(action, s, id)
	}
	return deny(ReasonUnsupported)
}

func decidePost(action Action, p *model.Post, id Identity) Decision {
	switch action {
	case ActionView:
		return canView(p, id)
	case ActionEdit, ActionDelete:
		return canEdit(p.AuthorID, id)
	case ActionVote:
		return canVote(p, id)
	case ActionComment:
		if !id.IsAuthenticated() {
			return deny(ReasonAnonymous)
		}
		return allow()
	}
	return deny(ReasonUnsupported)
}

func decideComment(action Action, c *model.Comment, id Identity) Decision {
	switch action {
	case ActionView:
		// 评论的可见性跟随所属帖子
		if c.Post == nil {
			return deny(ReasonUnsupported)
		}
		return canView(c.Post, id)
	case ActionEdit, ActionDelete:
		return canEdit(c.AuthorID, id)
	case ActionVote:
		return canVote(c, id)
	}
	return deny(ReasonUnsupported)
}

func decideUser(action Action, u *model.User, id Identity) Decision {
	if action != ActionSendMessage {
		return deny(ReasonUnsupported)
	}
	if !id.IsAuthenticated() {
		return deny(ReasonAnonymous)
	}
	if !u.ReceiveEmail {
		return deny(ReasonNoEmail)
	}
	if socialgraph.Friends(u).Len() == 0 {
		return deny(ReasonNoFriends)
	}
	if !socialgraph.IsFriend(u, id.ID()) {
		return deny(ReasonNotFriend)
	}
	return allow()
}

func canView(p *model.Post, id Identity) Decision {
	if p.Access == model.AccessPublic {
		return allow()
	}
	if !id.IsAuthenticated() {
		return deny(ReasonAnonymous)
	}
	if id.ID() == p.AuthorID || id.isModerator() {
		return allow()
	}
	if p.Access == model.AccessFriends {
		// 好友判定基于请求方已加载的关系集合
		if socialgraph.IsFriend(id.User, p.AuthorID) {
			return allow()
		}
		return deny(ReasonFriendsOnly)
	}
	return deny(ReasonPrivate)
}

func canEdit(authorID int64, id Identity) Decision {
	if !id.IsAuthenticated() {
		return deny(ReasonAnonymous)
	}
	if id.ID() == authorID || id.isModerator() {
		return allow()
	}
	return deny(ReasonNotAuthor)
}

func canVote(v model.Votable, id Identity) Decision {
	if !id.IsAuthenticated() {
		return deny(ReasonAnonymous)
	}
	if v.OwnerID() == id.ID() {
		return deny(ReasonOwnContent)
	}
	if v.VoteSet().Has(id.ID()) {
		return deny(ReasonAlreadyVoted)
	}
	return allow()
}

// Can Decide 的布尔简写
func Can(action Action, subject Subject, id Identity) bool {
	return Decide(action, subject, id).Allowed
}

// Require 拒绝时返回错误：匿名身份得到 AuthenticationRequired，其余为 Forbidden
func Require(action Action, subject Subject, id Identity) error {
	d := Decide(action, subject, id)
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonAnonymous {
		return apperr.AuthenticationRequired("login required to " + string(action))
	}
	return apperr.Forbidden("cannot " + string(action) + ": " + string(d.Reason))
}
