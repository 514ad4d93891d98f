package media

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dormdesk_backend/platform/httpkit"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/media", h.Upload)
	rg.GET("/:id/media/*fileKey", h.Download)
}

// Upload accepts a multipart photo and returns the object key the student's
// next message should carry as a mediaRef.
func (h *Handler) Upload(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "invalid conversation id")
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "missing photo form field")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "unreadable upload")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	fileKey, err := h.svc.UploadPhoto(c.Request.Context(), conversationID,
		fileHeader.Filename, contentType, file, fileHeader.Size)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, gin.H{"fileKey": fileKey})
}

// Download returns a presigned URL for a previously uploaded photo.
func (h *Handler) Download(c *gin.Context) {
	if _, err := uuid.Parse(c.Param("id")); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "invalid conversation id")
		return
	}

	fileKey := c.Param("fileKey")
	if len(fileKey) > 0 && fileKey[0] == '/' {
		fileKey = fileKey[1:]
	}
	if fileKey == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "missing file key")
		return
	}

	link, err := h.svc.DownloadURL(c.Request.Context(), fileKey)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, link)
}
