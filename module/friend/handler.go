// Package friend exposes the friend-graph HTTP surface.
package friend

import (
	"github.com/gin-gonic/gin"

	"SLProject/middleware"
	security "SLProject/middleware/security"
	"SLProject/module/friend/service"
	"SLProject/module/membership"
	"SLProject/tools/resp"
)

type Handler struct {
	engine *membership.Engine
	svc    *service.FriendService
}

func NewHandler(engine *membership.Engine, svc *service.FriendService) *Handler {
	return &Handler{engine: engine, svc: svc}
}

func (h *Handler) Register(r gin.IRoutes) {
	auth := middleware.RouteOpt{IsAuth: true}

	middleware.POST(r, "/friend/send-request", h.SendRequest, auth)
	middleware.POST(r, "/friend/accept-request", h.AcceptRequest, auth)
	middleware.POST(r, "/friend/reject-request", h.RejectRequest, auth)
	middleware.POST(r, "/friend/remove", h.Remove, auth)
	middleware.POST(r, "/friend/block", h.Block, auth)

	middleware.GET(r, "/friend/list", h.List, auth)
	middleware.GET(r, "/friend/requests", h.Requests, auth)
	middleware.GET(r, "/friend/search", h.Search, auth)
}

type targetReq struct {
	UserID string `json:"userId"`
}

func bindTarget(c *gin.Context) (string, bool) {
	var req targetReq
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		resp.BadRequest(c, "userId is required")
		return "", false
	}
	return req.UserID, true
}

func (h *Handler) SendRequest(c *gin.Context) {
	target, ok := bindTarget(c)
	if !ok {
		return
	}
	if err := h.engine.SendFriendRequest(c.Request.Context(), security.UserID(c), target); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OKMsg(c, "request sent", nil)
}

func (h *Handler) AcceptRequest(c *gin.Context) {
	target, ok := bindTarget(c)
	if !ok {
		return
	}
	if err := h.engine.AcceptFriendRequest(c.Request.Context(), security.UserID(c), target); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OKMsg(c, "request accepted", nil)
}

func (h *Handler) RejectRequest(c *gin.Context) {
	target, ok := bindTarget(c)
	if !ok {
		return
	}
	if err := h.engine.RejectFriendRequest(c.Request.Context(), security.UserID(c), target); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OKMsg(c, "request rejected", nil)
}

func (h *Handler) Remove(c *gin.Context) {
	target, ok := bindTarget(c)
	if !ok {
		return
	}
	if err := h.engine.RemoveFriend(c.Request.Context(), security.UserID(c), target); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OKMsg(c, "friend removed", nil)
}

func (h *Handler) Block(c *gin.Context) {
	target, ok := bindTarget(c)
	if !ok {
		return
	}
	if err := h.engine.BlockUser(c.Request.Context(), security.UserID(c), target); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OKMsg(c, "user blocked", nil)
}

func (h *Handler) List(c *gin.Context) {
	friends, err := h.svc.Friends(c.Request.Context(), security.UserID(c))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, friends)
}

func (h *Handler) Requests(c *gin.Context) {
	reqs, err := h.svc.Requests(c.Request.Context(), security.UserID(c))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, reqs)
}

func (h *Handler) Search(c *gin.Context) {
	users, err := h.svc.Search(c.Request.Context(), security.UserID(c), c.Query("email"))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, users)
}
