package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/duthaho/trello-clone-sub000/internal/auth"
	"github.com/duthaho/trello-clone-sub000/internal/dto"
	"github.com/duthaho/trello-clone-sub000/internal/service"
	"github.com/duthaho/trello-clone-sub000/internal/utils"
)

type CommentHandler struct {
	svc *service.CommentService
}

func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

// List godoc
// @Summary      Comments on a task, oldest first
// @Tags         comments
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      int  true   "Task ID"
// @Param        limit   query     int  false  "Page size (max 100)"
// @Param        offset  query     int  false  "Offset"
// @Success      200     {object}  dto.ListCommentsResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /tasks/{id}/comments [get]
func (h *CommentHandler) List(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	limit, offset := utils.ClampPage(q.Limit, q.Offset)
	list, err := h.svc.List(c.Request.Context(), auth.UserIDFromContext(c), taskID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]dto.CommentResponse, 0, len(list))
	for _, cm := range list {
		items = append(items, commentToResponse(cm))
	}
	c.JSON(http.StatusOK, dto.ListCommentsResponse{Items: items, Limit: limit, Offset: offset})
}

// Add godoc
// @Summary      Comment on a task
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                 true  "Task ID"
// @Param        body  body      dto.CommentRequest  true  "Comment"
// @Success      201   {object}  dto.CommentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /tasks/{id}/comments [post]
func (h *CommentHandler) Add(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cm, err := h.svc.Add(reqCtx(c), auth.UserIDFromContext(c), taskID, req.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, commentToResponse(cm))
}

// Edit godoc
// @Summary      Edit a comment (author only)
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                 true  "Comment ID"
// @Param        body  body      dto.CommentRequest  true  "Comment"
// @Success      200   {object}  dto.CommentResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /comments/{id} [patch]
func (h *CommentHandler) Edit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cm, err := h.svc.Edit(reqCtx(c), auth.UserIDFromContext(c), id, req.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commentToResponse(cm))
}

// Delete godoc
// @Summary      Delete a comment
// @Tags         comments
// @Security     BearerAuth
// @Param        id   path  int  true  "Comment ID"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /comments/{id} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(reqCtx(c), auth.UserIDFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
