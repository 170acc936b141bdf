package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 5 << 20

func (s *Server) uploadProfilePicture(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "multipart field 'image' is required")
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		errJSON(c, http.StatusRequestEntityTooLarge, "file_too_large", "image must be 5MB or smaller")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_payload", "failed to read uploaded file")
		return
	}
	if len(data) > maxUploadBytes {
		errJSON(c, http.StatusRequestEntityTooLarge, "file_too_large", "image must be 5MB or smaller")
		return
	}

	userID := currentUserID(c)

	url, err := s.storage.UploadProfilePicture(userID, data)
	if err != nil {
		s.log.Error("profile_picture_upload_failed", "user_id", userID, "error", err)
		errJSON(c, http.StatusUnprocessableEntity, "upload_failed", "could not process the uploaded image")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	_, err = s.db.Pool.Exec(ctx,
		`UPDATE users SET profile_picture = $2, updated_at = now() WHERE id = $1`, userID, url)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "internal_error", "failed to save profile picture")
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile_picture": url})
}
