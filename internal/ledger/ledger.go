// Package ledger 维护帖子/评论分数与作者 karma。
package ledger

import (
	"github.com/d60-Lab/newsmeme/internal/apperr"
	"github.com/d60-Lab/newsmeme/internal/model"
)

const (
	Up   = 1
	Down = -1
)

var ErrInvalidDelta = apperr.Validation("vote delta must be +1 or -1")

// Apply 记一票：分数与作者 karma 同步变化，karma 下限为 0；
// 无论赞或踩，投票人都会记入 votes。
// 是否允许投票（匿名、自投、重复投）由调用方先经 policy 判定。
func Apply(target model.Votable, author *model.User, voterID int64, delta int) error {
	if delta != Up && delta != Down {
		return ErrInvalidDelta
	}
	target.AddScore(delta)
	if author != nil {
		author.AddKarma(delta)
	}
	target.VoteSet().Add(voterID)
	return nil
}
