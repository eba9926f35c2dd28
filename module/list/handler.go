// Package list exposes the list HTTP surface: mutations delegate to the
// membership engine, reads go through the list service.
package list

import (
	"github.com/gin-gonic/gin"

	"SLProject/middleware"
	"SLProject/module/list/service"
	"SLProject/module/membership"
	security "SLProject/middleware/security"
	"SLProject/tools/resp"
)

type Handler struct {
	engine *membership.Engine
	svc    *service.ListService
}

func NewHandler(engine *membership.Engine, svc *service.ListService) *Handler {
	return &Handler{engine: engine, svc: svc}
}

func (h *Handler) Register(r gin.IRoutes) {
	auth := middleware.RouteOpt{IsAuth: true}

	middleware.POST(r, "/list/create", h.Create, auth)
	middleware.POST(r, "/list/invite", h.Invite, auth)
	middleware.POST(r, "/list/revoke-invite", h.RevokeInvite, auth)
	middleware.POST(r, "/list/accept-invite", h.AcceptInvite, auth)
	middleware.POST(r, "/list/add-item", h.AddItem, auth)
	middleware.PATCH(r, "/list/item/:itemId/toggle", h.ToggleItem, auth)
	middleware.POST(r, "/list/remove-member", h.RemoveMember, auth)

	middleware.GET(r, "/list", h.Lists, auth)
	middleware.GET(r, "/list/invites", h.Invites, auth)
	middleware.GET(r, "/list/:listId/members", h.Members, auth)
	middleware.GET(r, "/list/:listId/items", h.Items, auth)
}

func (h *Handler) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, "invalid body")
		return
	}
	list, err := h.engine.CreateList(c.Request.Context(), security.UserID(c), req.Name)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OKMsg(c, "list created", list)
}

func (h *Handler) Invite(c *gin.Context) {
	var req struct {
		ListID    string `json:"listId"`
		InviteeID string `json:"inviteeId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ListID == "" || req.InviteeID == "" {
		resp.BadRequest(c, "listId and inviteeId are required")
		return
	}
	if err := h.engine.InviteToList(c.Request.Context(), security.UserID(c), req.ListID, req.InviteeID); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OKMsg(c, "invite sent", nil)
}

func (h *Handler) RevokeInvite(c *gin.Context) {
	var req struct {
		ListID    string `json:"listId"`
		InviteeID string `json:"inviteeId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ListID == "" || req.InviteeID == "" {
		resp.BadRequest(c, "listId and inviteeId are required")
		return
	}
	if err := h.engine.RevokeInvite(c.Request.Context(), security.UserID(c), req.ListID, req.InviteeID); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OKMsg(c, "invite revoked", nil)
}

func (h *Handler) AcceptInvite(c *gin.Context) {
	var req struct {
		ListID string `json:"listId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ListID == "" {
		resp.BadRequest(c, "listId is required")
		return
	}
	list, err := h.engine.AcceptInvite(c.Request.Context(), security.UserID(c), req.ListID)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OKMsg(c, "invite accepted", list)
}

func (h *Handler) AddItem(c *gin.Context) {
	var req struct {
		ListID   string         `json:"listId"`
		Content  string         `json:"content"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ListID == "" {
		resp.BadRequest(c, "listId and content are required")
		return
	}
	item, err := h.engine.AddItem(c.Request.Context(), security.UserID(c), req.ListID, req.Content, req.Metadata)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OKMsg(c, "item added", item)
}

func (h *Handler) ToggleItem(c *gin.Context) {
	item, err := h.engine.ToggleItemCompletion(c.Request.Context(), security.UserID(c), c.Param("itemId"))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OKMsg(c, "item updated", item)
}

func (h *Handler) RemoveMember(c *gin.Context) {
	var req struct {
		ListID   string `json:"listId"`
		MemberID string `json:"memberId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ListID == "" || req.MemberID == "" {
		resp.BadRequest(c, "listId and memberId are required")
		return
	}
	if err := h.engine.RemoveMember(c.Request.Context(), security.UserID(c), req.ListID, req.MemberID); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OKMsg(c, "member removed", nil)
}

func (h *Handler) Lists(c *gin.Context) {
	lists, err := h.svc.ListsForUser(c.Request.Context(), security.UserID(c))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, lists)
}

func (h *Handler) Invites(c *gin.Context) {
	invites, err := h.svc.Invites(c.Request.Context(), security.UserID(c))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, invites)
}

func (h *Handler) Members(c *gin.Context) {
	members, err := h.svc.Members(c.Request.Context(), security.UserID(c), c.Param("listId"))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, members)
}

func (h *Handler) Items(c *gin.Context) {
	items, err := h.svc.Items(c.Request.Context(), security.UserID(c), c.Param("listId"))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, items)
}
