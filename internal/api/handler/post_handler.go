package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsmeme/internal/api/middleware"
	"github.com/d60-Lab/newsmeme/internal/ledger"
	"github.com/d60-Lab/newsmeme/internal/service"
	"github.com/d60-Lab/newsmeme/pkg/response"
)

// ListPosts 帖子列表
// @Summary 帖子列表
// @Tags 帖子
// @Produce json
// @Param sort query string false "hottest | latest | deadpool" default(hottest)
// @Param page query int false "页码" default(1)
// @Param tag query string false "标签 slug"
// @Param username query string false "作者"
// @Success 200 {object} response.Response{data=service.PostPage}
// @Failure 400 {object} response.Response
// @Router /api/v1/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	page, err := h.posts.List(c.Request.Context(), middleware.CurrentIdentity(c), service.ListOptions{
		Kind:     c.DefaultQuery("sort", service.ListHottest),
		Page:     queryInt(c, "page", 1),
		Tag:      c.Query("tag"),
		Username: c.Query("username"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// Search 关键词搜索
// @Summary 搜索帖子
// @Tags 帖子
// @Produce json
// @Param keywords query string true "空格分隔的关键词"
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=service.PostPage}
// @Failure 400 {object} response.Response
// @Router /api/v1/search [get]
func (h *Handler) Search(c *gin.Context) {
	page, err := h.posts.Search(c.Request.Context(), middleware.CurrentIdentity(c), c.Query("keywords"), queryInt(c, "page", 1))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// SubmitPost 发帖
// @Summary 发帖
// @Tags 帖子
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body service.PostInput true "帖子"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) SubmitPost(c *gin.Context) {
	var in service.PostInput
	if !bindJSON(c, &in) {
		return
	}
	post, err := h.posts.Submit(c.Request.Context(), middleware.CurrentIdentity(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// GetPost 帖子详情（含评论树）
// @Summary 帖子详情
// @Tags 帖子
// @Produce json
// @Param id path int true "帖子ID"
// @Success 200 {object} response.Response{data=service.PostDetail}
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.posts.Get(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, detail)
}

// EditPost 编辑帖子
// @Summary 编辑帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "帖子ID"
// @Param request body service.PostInput true "帖子"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/posts/{id} [put]
func (h *Handler) EditPost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in service.PostInput
	if !bindJSON(c, &in) {
		return
	}
	post, err := h.posts.Edit(c.Request.Context(), middleware.CurrentIdentity(c), id, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}

// DeletePost 删除帖子
// @Summary 删除帖子
// @Tags 帖子
// @Security Bearer
// @Param id path int true "帖子ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.posts.Delete(c.Request.Context(), middleware.CurrentIdentity(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// UpvotePost 赞
// @Summary 赞帖子
// @Tags 帖子
// @Security Bearer
// @Param id path int true "帖子ID"
// @Success 200 {object} response.Response{data=service.VoteResult}
// @Failure 401 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/posts/{id}/upvote [post]
func (h *Handler) UpvotePost(c *gin.Context) { h.votePost(c, ledger.Up) }

// DownvotePost 踩
// @Summary 踩帖子
// @Tags 帖子
// @Security Bearer
// @Param id path int true "帖子ID"
// @Success 200 {object} response.Response{data=service.VoteResult}
// @Failure 401 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/posts/{id}/downvote [post]
func (h *Handler) DownvotePost(c *gin.Context) { h.votePost(c, ledger.Down) }

func (h *Handler) votePost(c *gin.Context, delta int) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.posts.Vote(c.Request.Context(), middleware.CurrentIdentity(c), id, delta)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
