package server

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

const maxUploadSize = 10 << 20 // 10MB

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// UploadResponse describes a stored upload
type UploadResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// @Summary Upload a file
// @Description Stores a multipart "file" field under the upload directory
// @Tags uploads
// @Security BearerAuth
// @Router /upload [post]
func (s *Server) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file field or file too large"})
		return
	}

	if err := os.MkdirAll(s.config.Uploads.Dir, 0o755); err != nil {
		s.logger.Error().Err(err).Str("dir", s.config.Uploads.Dir).Msg("Failed to create upload directory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	filename := strings.ToLower(ulid.Make().String()) + "-" + safeFilename(file.Filename)
	if err := c.SaveUploadedFile(file, filepath.Join(s.config.Uploads.Dir, filename)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	sessionData, _ := GetSessionData(c)
	s.logger.Info().
		Str("user_id", sessionData.UserID).
		Str("filename", filename).
		Int64("size", file.Size).
		Msg("File uploaded")

	c.JSON(http.StatusCreated, UploadResponse{
		URL:      "/uploads/" + filename,
		Filename: filename,
		Size:     file.Size,
	})
}

func safeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(filepath.Base(name), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}
