package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/newsmeme/internal/api/middleware"
	"github.com/d60-Lab/newsmeme/internal/service"
	"github.com/d60-Lab/newsmeme/pkg/response"
)

type recoverRequest struct {
	Email string `json:"email"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

// Signup 注册
// @Summary 注册
// @Tags 账户
// @Accept json
// @Produce json
// @Param request body service.SignupInput true "注册信息"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/account/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var in service.SignupInput
	if !bindJSON(c, &in) {
		return
	}
	u, err := h.accounts.Signup(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, u)
}

// Login 登录，返回 JWT
// @Summary 登录
// @Tags 账户
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "用户名或邮箱 + 密码"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/account/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in service.LoginInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.accounts.Login(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// EditAccount 修改账户信息
// @Summary 修改账户
// @Tags 账户
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body service.AccountInput true "账户信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/account [put]
func (h *Handler) EditAccount(c *gin.Context) {
	var in service.AccountInput
	if !bindJSON(c, &in) {
		return
	}
	u, err := h.accounts.Edit(c.Request.Context(), middleware.CurrentIdentity(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, u)
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Tags 账户
// @Accept json
// @Security Bearer
// @Param request body service.PasswordInput true "新密码"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/account/password [post]
func (h *Handler) ChangePassword(c *gin.Context) {
	var in service.PasswordInput
	if !bindJSON(c, &in) {
		return
	}
	if err := h.accounts.ChangePassword(c.Request.Context(), middleware.CurrentIdentity(c), in); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// RecoverPassword 发送重置密码 key
// @Summary 找回密码
// @Tags 账户
// @Accept json
// @Param request body recoverRequest true "邮箱"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/account/recover [post]
func (h *Handler) RecoverPassword(c *gin.Context) {
	var req recoverRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.accounts.RecoverPassword(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ResetPassword 使用 activation key 重置密码
// @Summary 重置密码
// @Tags 账户
// @Accept json
// @Param request body service.ResetInput true "key + 新密码"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/account/reset [post]
func (h *Handler) ResetPassword(c *gin.Context) {
	var in service.ResetInput
	if !bindJSON(c, &in) {
		return
	}
	if err := h.accounts.ResetPassword(c.Request.Context(), in); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// DeleteAccount 删除账户（需要确认密码）
// @Summary 删除账户
// @Tags 账户
// @Accept json
// @Security Bearer
// @Param request body deleteAccountRequest true "当前密码"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/account [delete]
func (h *Handler) DeleteAccount(c *gin.Context) {
	var req deleteAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.accounts.Delete(c.Request.Context(), middleware.CurrentIdentity(c), req.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
