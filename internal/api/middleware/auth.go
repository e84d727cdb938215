package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsmeme/internal/apperr"
	"github.com/d60-Lab/newsmeme/internal/auth"
	"github.com/d60-Lab/newsmeme/internal/policy"
	"github.com/d60-Lab/newsmeme/pkg/response"
)

const identityKey = "identity"

// Identifier 根据用户 ID 加载请求身份
type Identifier interface {
	Identify(ctx context.Context, userID int64) (policy.Identity, error)
}

// Auth 解析 Authorization: Bearer <token>。
// 没有 token 时以匿名身份继续；token 无效或用户已不存在时返回 401。
func Auth(tokens *auth.TokenManager, users Identifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(identityKey, policy.Anonymous())
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			response.Unauthorized(c, "malformed authorization header")
			c.Abort()
			return
		}
		claims, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			response.Unauthorized(c, auth.ErrInvalidToken.Error())
			c.Abort()
			return
		}
		id, err := users.Identify(c.Request.Context(), userID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				response.Unauthorized(c, "user no longer exists")
			} else {
				response.Error(c, err)
			}
			c.Abort()
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// CurrentIdentity 当前请求身份；未经过 Auth 中间件时为匿名
func CurrentIdentity(c *gin.Context) policy.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(policy.Identity); ok {
			return id
		}
	}
	return policy.Anonymous()
}
