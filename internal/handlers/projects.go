package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/duthaho/trello-clone-sub000/internal/auth"
	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/dto"
	"github.com/duthaho/trello-clone-sub000/internal/service"
	"github.com/duthaho/trello-clone-sub000/internal/utils"
)

type ProjectHandler struct {
	projects *service.ProjectService
	audit    *service.AuditService
}

func NewProjectHandler(projects *service.ProjectService, audit *service.AuditService) *ProjectHandler {
	return &ProjectHandler{projects: projects, audit: audit}
}

// Create godoc
// @Summary      Create a project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CreateProjectRequest  true  "Project"
// @Success      201   {object}  dto.ProjectResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.projects.Create(reqCtx(c), auth.UserIDFromContext(c), req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, projectToResponse(p))
}

// List godoc
// @Summary      Projects the caller belongs to
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size (max 100)"
// @Param        offset  query     int  false  "Offset"
// @Success      200     {object}  dto.ListProjectsResponse
// @Router       /projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	limit, offset := utils.ClampPage(q.Limit, q.Offset)
	list, err := h.projects.List(c.Request.Context(), auth.UserIDFromContext(c), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]dto.ProjectResponse, 0, len(list))
	for _, p := range list {
		items = append(items, projectToResponse(p))
	}
	c.JSON(http.StatusOK, dto.ListProjectsResponse{Items: items, Limit: limit, Offset: offset})
}

// Get godoc
// @Summary      Get a project
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Project ID"
// @Success      200  {object}  dto.ProjectResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.projects.Get(c.Request.Context(), auth.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, projectToResponse(p))
}

// Update godoc
// @Summary      Update a project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                       true  "Project ID"
// @Param        body  body      dto.UpdateProjectRequest  true  "Partial update"
// @Success      200   {object}  dto.ProjectResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /projects/{id} [patch]
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.projects.Update(reqCtx(c), auth.UserIDFromContext(c), id, req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, projectToResponse(p))
}

// Delete godoc
// @Summary      Delete a project (owner only)
// @Tags         projects
// @Security     BearerAuth
// @Param        id   path  int  true  "Project ID"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.projects.Delete(reqCtx(c), auth.UserIDFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMembers godoc
// @Summary      Project members
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Project ID"
// @Success      200  {object}  dto.ListMembersResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /projects/{id}/members [get]
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.projects.ListMembers(c.Request.Context(), auth.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]dto.MemberResponse, 0, len(list))
	for _, m := range list {
		items = append(items, memberToResponse(m))
	}
	c.JSON(http.StatusOK, dto.ListMembersResponse{Items: items})
}

// AddMember godoc
// @Summary      Add a member by email
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                   true  "Project ID"
// @Param        body  body      dto.AddMemberRequest  true  "Member"
// @Success      201   {object}  dto.MemberResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /projects/{id}/members [post]
func (h *ProjectHandler) AddMember(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.projects.AddMember(reqCtx(c), auth.UserIDFromContext(c), id, req.Email, dom.Role(req.Role))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, memberToResponse(m))
}

// ChangeRole godoc
// @Summary      Change a member's role
// @Tags         members
// @Accept       json
// @Security     BearerAuth
// @Param        id      path  int                    true  "Project ID"
// @Param        userID  path  int                    true  "User ID"
// @Param        body    body  dto.ChangeRoleRequest  true  "Role"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /projects/{id}/members/{userID} [patch]
func (h *ProjectHandler) ChangeRole(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	memberID, ok := parseID(c, "userID")
	if !ok {
		return
	}
	var req dto.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.projects.ChangeRole(reqCtx(c), auth.UserIDFromContext(c), id, memberID, dom.Role(req.Role)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveMember godoc
// @Summary      Remove a member, or leave the project
// @Tags         members
// @Security     BearerAuth
// @Param        id      path  int  true  "Project ID"
// @Param        userID  path  int  true  "User ID"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /projects/{id}/members/{userID} [delete]
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	memberID, ok := parseID(c, "userID")
	if !ok {
		return
	}
	if err := h.projects.RemoveMember(reqCtx(c), auth.UserIDFromContext(c), id, memberID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Audit godoc
// @Summary      Project audit trail (admin+)
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        id         path      int  true   "Project ID"
// @Param        limit      query     int  false  "Page size (max 100)"
// @Param        before_id  query     int  false  "Return entries older than this id"
// @Success      200        {object}  dto.ListAuditResponse
// @Failure      403        {object}  dto.ErrorResponse
// @Failure      404        {object}  dto.ErrorResponse
// @Router       /projects/{id}/audit [get]
func (h *ProjectHandler) Audit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var q dto.AuditListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.audit.ListByProject(c.Request.Context(), auth.UserIDFromContext(c), id, q.Limit, q.BeforeID)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := dto.ListAuditResponse{Items: make([]dto.AuditLogResponse, 0, len(list))}
	for _, e := range list {
		resp.Items = append(resp.Items, auditToResponse(e))
	}
	if n := len(list); n > 0 {
		resp.NextBeforeID = list[n-1].ID
	}
	c.JSON(http.StatusOK, resp)
}
