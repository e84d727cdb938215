package model

import (
	"time"

	"github.com/d60-Lab/newsmeme/internal/tagindex"
)

const slugMaxLen = 80

// Post 链接或文本帖
type Post struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	AuthorID    int64     `json:"author_id" gorm:"not null;index:idx_post_author"`
	Author      *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Title       string    `json:"title" gorm:"type:varchar(200)"`
	Description string    `json:"description" gorm:"type:text"`
	Link        string    `json:"link" gorm:"type:varchar(250)"`
	Score       int       `json:"score" gorm:"not null;index"`
	NumComments int       `json:"num_comments" gorm:"not null"`
	Votes       IDSet     `json:"-" gorm:"type:text"`
	Access      Access    `json:"access" gorm:"not null;index"`
	Tags        string    `json:"tags" gorm:"column:tags;type:text"`
	CreatedAt   time.Time `json:"date_created" gorm:"index"`
	UpdatedAt   time.Time `json:"-"`
}

func (Post) TableName() string { return "posts" }

// NewPost 初始分数为 1
func NewPost(author *User, title, link, description string, access Access) *Post {
	if !access.Valid() {
		access = AccessPublic
	}
	return &Post{
		AuthorID:    author.ID,
		Author:      author,
		Title:       title,
		Link:        link,
		Description: description,
		Score:       1,
		Votes:       IDSet{},
		Access:      access,
	}
}

// TagList 保留原始大小写与顺序
func (p *Post) TagList() []string { return tagindex.ParseTagList(p.Tags) }

func (p *Post) Slug() string {
	s := []rune(tagindex.Slugify(p.Title))
	if len(s) > slugMaxLen {
		s = s[:slugMaxLen]
	}
	return string(s)
}

func (p *Post) OwnerID() int64 { return p.AuthorID }

func (p *Post) VoteSet() *IDSet { return &p.Votes }

func (p *Post) AddScore(delta int) { p.Score += delta }

func (p *Post) CurrentScore() int { return p.Score }

// PostJSON 对外 API 投影，author 只含用户名
type PostJSON struct {
	PostID      int64  `json:"post_id"`
	Score       int    `json:"score"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	NumComments int    `json:"num_comments"`
	Author      string `json:"author"`
}

func (p *Post) JSON() PostJSON {
	out := PostJSON{
		PostID:      p.ID,
		Score:       p.Score,
		Title:       p.Title,
		Link:        p.Link,
		Description: p.Description,
		NumComments: p.NumComments,
	}
	if p.Author != nil {
		out.Author = p.Author.Username
	}
	return out
}
