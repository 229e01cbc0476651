package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uninotes-api/internal/dto"
	"github.com/noah-isme/uninotes-api/internal/middleware"
	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/internal/service"
	"github.com/noah-isme/uninotes-api/pkg/response"
)

// AdminHandler groups the moderation, user management and reporting endpoints.
type AdminHandler struct {
	admin  *service.AdminService
	users  *service.UserService
	stats  *service.StatsService
	export *service.ExportService
}

// NewAdminHandler constructs an admin handler.
func NewAdminHandler(admin *service.AdminService, users *service.UserService, stats *service.StatsService, export *service.ExportService) *AdminHandler {
	return &AdminHandler{admin: admin, users: users, stats: stats, export: export}
}

// Stats godoc
// @Summary Dashboard statistics
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	overview, hit, err := h.stats.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, overview, middleware.ExtractMeta(c))
}

// Posts godoc
// @Summary List posts for moderation
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param q query string false "Search text"
// @Param faculty query string false "Faculty"
// @Success 200 {object} response.Envelope
// @Router /admin/posts [get]
func (h *AdminHandler) Posts(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.AdminPostQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	posts, err := h.admin.ListPosts(c.Request.Context(), actor, models.AdminPostFilter{Search: query.Search, Faculty: query.Faculty})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, map[string]interface{}{"total": len(posts)})
}

// DeletePost godoc
// @Summary Delete any post
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Success 204
// @Router /admin/posts/{id} [delete]
func (h *AdminHandler) DeletePost(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.admin.DeletePost(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ClearPosts godoc
// @Summary Delete every post
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/posts [delete]
func (h *AdminHandler) ClearPosts(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	removed, err := h.admin.ClearAll(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed})
}

// Cleanup godoc
// @Summary Quarantine posts without a usable file
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/posts/cleanup [post]
func (h *AdminHandler) Cleanup(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	quarantined, err := h.admin.Cleanup(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quarantined, map[string]interface{}{"removed": len(quarantined)})
}

// Quarantine godoc
// @Summary List quarantined posts
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/quarantine [get]
func (h *AdminHandler) Quarantine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.admin.Quarantine(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// Restore godoc
// @Summary Restore a quarantined post as a pending draft
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/quarantine/{id}/restore [post]
func (h *AdminHandler) Restore(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	note, err := h.admin.Restore(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note)
}

// Users godoc
// @Summary List users
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param q query string false "Search text"
// @Param role query string false "user or admin"
// @Success 200 {object} response.Envelope
// @Router /admin/users [get]
func (h *AdminHandler) Users(c *gin.Context) {
	var query dto.AdminUserQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	users, err := h.users.List(c.Request.Context(), models.UserFilter{Search: query.Search, Role: models.UserRole(query.Role)})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, map[string]interface{}{"total": len(users)})
}

// Promote godoc
// @Summary Grant the admin role
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param email path string true "User email"
// @Success 200 {object} response.Envelope
// @Router /admin/users/{email}/promote [post]
func (h *AdminHandler) Promote(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	user, err := h.users.Promote(c.Request.Context(), actor, c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user)
}

// Demote godoc
// @Summary Revoke the admin role
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param email path string true "User email"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/users/{email}/demote [post]
func (h *AdminHandler) Demote(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	user, err := h.users.Demote(c.Request.Context(), actor, c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user)
}

// Logs godoc
// @Summary Admin action history
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/logs [get]
func (h *AdminHandler) Logs(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	logs, err := h.admin.Logs(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs)
}

// ExportNotes godoc
// @Summary Export posts
// @Tags Admin
// @Security BearerAuth
// @Produce text/csv,application/pdf
// @Param format query string false "csv or pdf"
// @Param q query string false "Search text"
// @Param faculty query string false "Faculty"
// @Success 200 {file} file
// @Router /admin/exports/notes [get]
func (h *AdminHandler) ExportNotes(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	result, err := h.export.Notes(c.Request.Context(), models.AdminPostFilter{Search: query.Search, Faculty: query.Faculty}, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.FileName, result.ContentType, result.Content)
}
