package model

import "time"

// Comment 评论；ParentID 为空表示顶层评论
type Comment struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	AuthorID  int64     `json:"author_id" gorm:"not null;index"`
	Author    *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	PostID    int64     `json:"post_id" gorm:"not null;index:idx_comment_post"`
	Post      *Post     `json:"post,omitempty" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	ParentID  *int64    `json:"parent_id,omitempty" gorm:"index"`
	Body      string    `json:"comment" gorm:"column:comment;type:text"`
	Score     int       `json:"score" gorm:"not null"`
	Votes     IDSet     `json:"-" gorm:"type:text"`
	CreatedAt time.Time `json:"date_created"`
	UpdatedAt time.Time `json:"-"`
}

func (Comment) TableName() string { return "comments" }

func NewComment(author *User, post *Post, parentID *int64, body string) *Comment {
	return &Comment{
		AuthorID: author.ID,
		Author:   author,
		PostID:   post.ID,
		Post:     post,
		ParentID: parentID,
		Body:     body,
		Score:    1,
		Votes:    IDSet{},
	}
}

func (c *Comment) OwnerID() int64 { return c.AuthorID }

func (c *Comment) VoteSet() *IDSet { return &c.Votes }

func (c *Comment) AddScore(delta int) { c.Score += delta }

func (c *Comment) CurrentScore() int { return c.Score }

// Votable 可投票内容（帖子、评论）
type Votable interface {
	OwnerID() int64
	VoteSet() *IDSet
	AddScore(delta int)
	CurrentScore() int
}
