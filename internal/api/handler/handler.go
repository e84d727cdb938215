package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsmeme/internal/apperr"
	"github.com/d60-Lab/newsmeme/internal/service"
	"github.com/d60-Lab/newsmeme/pkg/response"
)

// Handler 聚合各业务 service 的 HTTP 入口
type Handler struct {
	accounts   service.AccountService
	relService service.RelationshipService
	posts      service.PostService
	comments   service.CommentService
	tags       service.TagService
}

func NewHandler(
	accounts service.AccountService,
	relService service.RelationshipService,
	posts service.PostService,
	comments service.CommentService,
	tags service.TagService,
) *Handler {
	return &Handler{
		accounts:   accounts,
		relService: relService,
		posts:      posts,
		comments:   comments,
		tags:       tags,
	}
}

// pathID 解析路径中的数字 ID，失败时已写出 400
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}

// bindJSON 只做解码，字段校验在 service 层
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, apperr.Validation("malformed request body"))
		return false
	}
	return true
}
