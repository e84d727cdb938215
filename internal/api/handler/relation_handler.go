package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsmeme/internal/api/middleware"
	"github.com/d60-Lab/newsmeme/pkg/response"
)

// Follow 关注用户
// @Summary 关注用户
// @Tags 关系链
// @Produce json
// @Security Bearer
// @Param user_id path int true "被关注用户ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/{user_id}/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	if err := h.relService.Follow(c.Request.Context(), middleware.CurrentIdentity(c), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关系链
// @Produce json
// @Security Bearer
// @Param user_id path int true "被关注用户ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/{user_id}/unfollow [post]
func (h *Handler) Unfollow(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	if err := h.relService.Unfollow(c.Request.Context(), middleware.CurrentIdentity(c), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ListFollowing 查询某用户关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Param user_id path int true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/{user_id}/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	page, pageSize := queryInt(c, "page", 1), queryInt(c, "page_size", 10)
	list, err := h.relService.ListFollowing(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// ListFans 查询某用户的粉丝
// @Summary 查询粉丝列表（Redis 索引）
// @Tags 关系链
// @Param user_id path int true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/{user_id}/fans [get]
func (h *Handler) ListFans(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	page, pageSize := queryInt(c, "page", 1), queryInt(c, "page_size", 10)
	list, err := h.relService.ListFans(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// ListFriends 互相关注的用户
// @Summary 查询好友
// @Tags 关系链
// @Param user_id path int true "用户ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/{user_id}/friends [get]
func (h *Handler) ListFriends(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	list, err := h.relService.Friends(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}
