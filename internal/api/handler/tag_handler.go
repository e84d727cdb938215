package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsmeme/pkg/response"
)

// TagCloud 标签云
// @Summary 标签云
// @Tags 标签
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/tags [get]
func (h *Handler) TagCloud(c *gin.Context) {
	cloud, err := h.tags.Cloud(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cloud)
}

// TopTags 热门标签（缓存）
// @Summary 热门标签
// @Tags 标签
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/tags/top [get]
func (h *Handler) TopTags(c *gin.Context) {
	top, err := h.tags.Top(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, top)
}

// GetTag 标签详情，slug 会被规范化
// @Summary 标签详情
// @Tags 标签
// @Produce json
// @Param slug path string true "标签"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/tags/{slug} [get]
func (h *Handler) GetTag(c *gin.Context) {
	tag, err := h.tags.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tag)
}
