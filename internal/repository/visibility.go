package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/d60-Lab/newsmeme/internal/model"
	"github.com/d60-Lab/newsmeme/internal/socialgraph"
)

// restricted 把帖子可见性规则下推为 SQL 条件（作用于 posts 表）：
// 版主及以上不受限；匿名只看 public；其余为 public、自己的帖子、好友的 friends 帖子。
// viewer 需要已加载 Followers / Following。
func restricted(db *gorm.DB, viewer *model.User) *gorm.DB {
	if viewer.IsModerator() {
		return db
	}
	if viewer == nil {
		return db.Where("posts.access = ?", model.AccessPublic)
	}
	friends := socialgraph.Friends(viewer).Slice()
	if len(friends) == 0 {
		return db.Where("(posts.access = ? OR posts.author_id = ?)", model.AccessPublic, viewer.ID)
	}
	return db.Where("(posts.access = ? OR posts.author_id = ? OR (posts.access = ? AND posts.author_id IN ?))",
		model.AccessPublic, viewer.ID, model.AccessFriends, friends)
}

// matchKeywords 每个关键词在标题、描述、链接、标签、作者用户名任一处出现（不区分大小写）即命中；
// 多个关键词之间为 AND
func matchKeywords(db *gorm.DB, keywords []string) *gorm.DB {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		like := "%" + kw + "%"
		db = db.Where("(LOWER(posts.title) LIKE ? OR LOWER(posts.description) LIKE ? OR LOWER(posts.link) LIKE ? "+
			"OR LOWER(posts.tags) LIKE ? OR posts.author_id IN (SELECT id FROM users WHERE LOWER(users.username) LIKE ?))",
			like, like, like, like, like)
	}
	return db
}
