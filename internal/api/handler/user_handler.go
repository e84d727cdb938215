package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsmeme/internal/api/middleware"
	"github.com/d60-Lab/newsmeme/internal/service"
	"github.com/d60-Lab/newsmeme/pkg/response"
)

// Profile 用户主页：资料与当前身份可见的帖子
// @Summary 用户主页
// @Tags 用户
// @Produce json
// @Param user path string true "用户名"
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=service.Profile}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{user} [get]
func (h *Handler) Profile(c *gin.Context) {
	prof, err := h.accounts.Profile(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("user"), queryInt(c, "page", 1))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, prof)
}

// UserComments 用户评论
// @Summary 用户评论
// @Tags 用户
// @Produce json
// @Param user path string true "用户名"
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=service.CommentPage}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{user}/comments [get]
func (h *Handler) UserComments(c *gin.Context) {
	page, err := h.comments.ListByUser(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("user"), queryInt(c, "page", 1))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// SendMessage 给好友发邮件
// @Summary 发送消息
// @Tags 用户
// @Accept json
// @Security Bearer
// @Param user path int true "收件用户ID"
// @Param request body service.MessageInput true "消息"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/users/{user}/message [post]
func (h *Handler) SendMessage(c *gin.Context) {
	userID, ok := pathID(c, "user")
	if !ok {
		return
	}
	var in service.MessageInput
	if !bindJSON(c, &in) {
		return
	}
	if err := h.accounts.SendMessage(c.Request.Context(), middleware.CurrentIdentity(c), userID, in); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
