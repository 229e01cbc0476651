package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uninotes-api/internal/dto"
	"github.com/noah-isme/uninotes-api/internal/middleware"
	"github.com/noah-isme/uninotes-api/internal/models"
	appErrors "github.com/noah-isme/uninotes-api/pkg/errors"
	"github.com/noah-isme/uninotes-api/pkg/response"
)

const uploadField = "file"

// actorFromContext returns the authenticated caller, writing 401 when there is none.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return claims.Actor(), true
}

// readUpload loads the multipart file field. Reading stops one byte past limit so
// oversized uploads are still reported by size.
func readUpload(c *gin.Context, limit int64, required bool) (*dto.FileUpload, error) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		if err == http.ErrMissingFile && !required {
			return nil, nil
		}
		return nil, appErrors.FieldError(uploadField, "file is required")
	}
	f, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	return &dto.FileUpload{Name: header.Filename, Content: content}, nil
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}
