package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uninotes-api/internal/dto"
	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/internal/service"
	"github.com/noah-isme/uninotes-api/pkg/response"
)

// NoteHandler exposes note browsing, upload and download endpoints.
type NoteHandler struct {
	service     *service.NoteService
	maxFileSize int64
}

// NewNoteHandler constructs a note handler. maxFileSize bounds how much of a
// multipart file is read before the service rejects it.
func NewNoteHandler(svc *service.NoteService, maxFileSize int64) *NoteHandler {
	return &NoteHandler{service: svc, maxFileSize: maxFileSize}
}

// List godoc
// @Summary List notes
// @Tags Notes
// @Produce json
// @Param faculty query string false "Faculty"
// @Param prodi query string false "Study program"
// @Param semester query string false "Semester"
// @Param type query string false "PDF, IMG or ALL"
// @Param q query string false "Search text"
// @Success 200 {object} response.Envelope
// @Router /notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	var query dto.NoteListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	notes, err := h.service.List(c.Request.Context(), models.NoteFilter{
		Faculty:     query.Faculty,
		Prodi:       query.Prodi,
		Semester:    query.Semester,
		Type:        strings.ToUpper(query.Type),
		SearchQuery: query.Query,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notes, map[string]interface{}{"total": len(notes)})
}

// Timeline godoc
// @Summary Newest notes first
// @Tags Notes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notes/timeline [get]
func (h *NoteHandler) Timeline(c *gin.Context) {
	notes, err := h.service.Timeline(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notes)
}

// Mine godoc
// @Summary Notes uploaded by the caller
// @Tags Notes
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notes/mine [get]
func (h *NoteHandler) Mine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	notes, err := h.service.Mine(c.Request.Context(), actor.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notes)
}

// Get godoc
// @Summary Note detail
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notes/{id} [get]
func (h *NoteHandler) Get(c *gin.Context) {
	detail, err := h.service.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// Upload godoc
// @Summary Upload a note with its file
// @Tags Notes
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param courseCode formData string true "Course code"
// @Param courseTitle formData string true "Course title"
// @Param semester formData string true "Semester"
// @Param type formData string true "PDF or IMG"
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param file formData file true "Attachment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /notes [post]
func (h *NoteHandler) Upload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var meta dto.NoteMetadata
	if err := c.ShouldBind(&meta); err != nil {
		response.Error(c, bindError(err, "invalid note payload"))
		return
	}
	file, err := readUpload(c, h.maxFileSize, true)
	if err != nil {
		response.Error(c, err)
		return
	}
	note, err := h.service.Upload(c.Request.Context(), actor, meta, *file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, models.Summarize(*note))
}

// CreateDraft godoc
// @Summary Create a pending note without a file
// @Tags Notes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.NoteMetadata true "Note metadata"
// @Success 201 {object} response.Envelope
// @Router /notes/drafts [post]
func (h *NoteHandler) CreateDraft(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var meta dto.NoteMetadata
	if err := c.ShouldBindJSON(&meta); err != nil {
		response.Error(c, bindError(err, "invalid note payload"))
		return
	}
	note, err := h.service.CreateDraft(c.Request.Context(), actor, meta)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, note)
}

// AttachFile godoc
// @Summary Attach the file to a pending note
// @Tags Notes
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Note ID"
// @Param file formData file true "Attachment"
// @Success 200 {object} response.Envelope
// @Router /notes/{id}/file [put]
func (h *NoteHandler) AttachFile(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	file, err := readUpload(c, h.maxFileSize, true)
	if err != nil {
		response.Error(c, err)
		return
	}
	note, err := h.service.AttachFile(c.Request.Context(), actor, c.Param("id"), *file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, models.Summarize(*note))
}

// Update godoc
// @Summary Edit a note
// @Description Accepts JSON or multipart; a multipart request may replace the file
// @Tags Notes
// @Security BearerAuth
// @Accept json,multipart/form-data
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /notes/{id} [patch]
func (h *NoteHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var meta dto.NoteMetadata
	if err := c.ShouldBind(&meta); err != nil {
		response.Error(c, bindError(err, "invalid note payload"))
		return
	}
	var file *dto.FileUpload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		upload, err := readUpload(c, h.maxFileSize, false)
		if err != nil {
			response.Error(c, err)
			return
		}
		file = upload
	}
	note, err := h.service.Edit(c.Request.Context(), actor, c.Param("id"), meta, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, models.Summarize(*note))
}

// Delete godoc
// @Summary Delete a note
// @Tags Notes
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DownloadURL godoc
// @Summary Issue a signed download link
// @Tags Notes
// @Security BearerAuth
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} response.Envelope
// @Router /notes/{id}/download-url [get]
func (h *NoteHandler) DownloadURL(c *gin.Context) {
	link, err := h.service.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link)
}

// Download godoc
// @Summary Download a note file
// @Tags Notes
// @Produce application/octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *NoteHandler) Download(c *gin.Context) {
	file, err := h.service.Download(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.FileName, file.MimeType, file.Content)
}
