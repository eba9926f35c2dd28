// Package user exposes login and the authenticated self view.
package user

import (
	"github.com/gin-gonic/gin"

	"SLProject/middleware"
	security "SLProject/middleware/security"
	"SLProject/module/user/service"
	"SLProject/tools/resp"
)

type Handler struct {
	svc *service.UserService
}

func NewHandler(svc *service.UserService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r gin.IRoutes) {
	middleware.POST(r, "/user/login", h.Login, middleware.RouteOpt{})
	middleware.GET(r, "/user/check", h.Check, middleware.RouteOpt{IsAuth: true})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, "invalid body")
		return
	}
	result, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OKMsg(c, "logged in", result)
}

func (h *Handler) Check(c *gin.Context) {
	u, err := h.svc.Check(c.Request.Context(), security.UserID(c))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, u)
}
