package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsmeme/internal/service"
	"github.com/d60-Lab/newsmeme/pkg/response"
)

// 公开只读 API，只返回 public 帖子，不需要登录

// PublicPost
// @Summary 公开帖子
// @Tags 公开API
// @Produce json
// @Param id path int true "帖子ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/post/{id} [get]
func (h *Handler) PublicPost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	post, err := h.posts.PublicPost(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}

// PublicSearch
// @Summary 公开搜索
// @Tags 公开API
// @Produce json
// @Param keywords query string true "关键词"
// @Param num_results query int false "返回条数，最多 100" default(20)
// @Success 200 {object} response.Response
// @Router /api/search [get]
func (h *Handler) PublicSearch(c *gin.Context) {
	posts, err := h.posts.PublicSearch(c.Request.Context(), c.Query("keywords"), queryInt(c, "num_results", service.PublicSearchDefault))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, posts)
}

// PublicUserPosts
// @Summary 用户公开帖子
// @Tags 公开API
// @Produce json
// @Param username path string true "用户名"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/user/{username} [get]
func (h *Handler) PublicUserPosts(c *gin.Context) {
	posts, err := h.posts.PublicUserPosts(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, posts)
}
