package model

// Tag 标签；slug 唯一，首次引用时创建，从不删除
type Tag struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Slug string `json:"slug" gorm:"type:varchar(80);uniqueIndex;not null"`
	Name string `json:"name" gorm:"type:varchar(80);not null"`

	// NumPosts 只统计 public 帖子，查询时计算
	NumPosts int64 `json:"num_posts" gorm:"-"`
}

func (Tag) TableName() string { return "tags" }

// PostTag 帖子-标签关联；重新赋值标签时整体删除再插入
type PostTag struct {
	PostID int64 `gorm:"primaryKey;autoIncrement:false"`
	TagID  int64 `gorm:"primaryKey;autoIncrement:false;index:idx_post_tag_tag"`
}

func (PostTag) TableName() string { return "post_tags" }
