package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsmeme/internal/api/middleware"
	"github.com/d60-Lab/newsmeme/internal/ledger"
	"github.com/d60-Lab/newsmeme/internal/service"
	"github.com/d60-Lab/newsmeme/pkg/response"
)

type commentRequest struct {
	service.CommentInput
	ParentID *int64 `json:"parent_id"`
}

// ListComments 帖子评论树
// @Summary 评论树
// @Tags 评论
// @Produce json
// @Param id path int true "帖子ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	tree, err := h.comments.Thread(c.Request.Context(), middleware.CurrentIdentity(c), postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tree)
}

// AddComment 评论或回复
// @Summary 发表评论
// @Tags 评论
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "帖子ID"
// @Param request body commentRequest true "评论内容，parent_id 为空表示顶层评论"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/posts/{id}/comments [post]
func (h *Handler) AddComment(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.comments.Add(c.Request.Context(), middleware.CurrentIdentity(c), postID, req.ParentID, req.CommentInput)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// EditComment 编辑评论
// @Summary 编辑评论
// @Tags 评论
// @Accept json
// @Security Bearer
// @Param id path int true "评论ID"
// @Param request body service.CommentInput true "评论内容"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/comments/{id} [put]
func (h *Handler) EditComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.CommentInput
	if !bindJSON(c, &in) {
		return
	}
	comment, err := h.comments.Edit(c.Request.Context(), middleware.CurrentIdentity(c), id, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, comment)
}

// DeleteComment 删除评论及其回复
// @Summary 删除评论
// @Tags 评论
// @Security Bearer
// @Param id path int true "评论ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/comments/{id} [delete]
func (h *Handler) DeleteComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.comments.Delete(c.Request.Context(), middleware.CurrentIdentity(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// UpvoteComment
// @Summary 赞评论
// @Tags 评论
// @Security Bearer
// @Param id path int true "评论ID"
// @Success 200 {object} response.Response{data=service.VoteResult}
// @Router /api/v1/comments/{id}/upvote [post]
func (h *Handler) UpvoteComment(c *gin.Context) { h.voteComment(c, ledger.Up) }

// DownvoteComment
// @Summary 踩评论
// @Tags 评论
// @Security Bearer
// @Param id path int true "评论ID"
// @Success 200 {object} response.Response{data=service.VoteResult}
// @Router /api/v1/comments/{id}/downvote [post]
func (h *Handler) DownvoteComment(c *gin.Context) { h.voteComment(c, ledger.Down) }

func (h *Handler) voteComment(c *gin.Context, delta int) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.comments.Vote(c.Request.Context(), middleware.CurrentIdentity(c), id, delta)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// ReportAbuse 举报评论，邮件通知管理员
// @Summary 举报评论
// @Tags 评论
// @Accept json
// @Security Bearer
// @Param id path int true "评论ID"
// @Param request body service.AbuseInput true "举报理由"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/comments/{id}/abuse [post]
func (h *Handler) ReportAbuse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.AbuseInput
	if !bindJSON(c, &in) {
		return
	}
	if err := h.comments.ReportAbuse(c.Request.Context(), middleware.CurrentIdentity(c), id, in); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
