package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/uni-ombuds/case-api/internal/dto"
	"github.com/uni-ombuds/case-api/internal/models"
	"github.com/uni-ombuds/case-api/internal/service"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
	"github.com/uni-ombuds/case-api/pkg/response"
	"github.com/uni-ombuds/case-api/pkg/storage"
)

// AttachmentHandler manages case file uploads and signed downloads.
type AttachmentHandler struct {
	registry *service.RegistryService
	evidence *service.EvidenceService
	record   *service.RecordService
	signer   *storage.SignedURLSigner
	files    *storage.LocalStorage
}

// NewAttachmentHandler constructs an attachment handler.
func NewAttachmentHandler(registry *service.RegistryService, evidence *service.EvidenceService, record *service.RecordService, signer *storage.SignedURLSigner, files *storage.LocalStorage) *AttachmentHandler {
	return &AttachmentHandler{registry: registry, evidence: evidence, record: record, signer: signer, files: files}
}

// Upload godoc
// @Summary Upload a case attachment
// @Description Validates the file against its category policy before storing it
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Case ID"
// @Param category formData string true "Attachment category"
// @Param file formData file true "File"
// @Success 201 {object} response.Envelope
// @Router /cases/{id}/attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	category := models.AttachmentCategory(c.PostForm("category"))
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := evidenceFromHeader(header)
	if err != nil {
		response.Error(c, err)
		return
	}

	found, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	att, err := h.evidence.StoreForCase(c.Request.Context(), found, file, category)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, att)
}

// List godoc
// @Summary List case attachments
// @Tags Attachments
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/attachments [get]
func (h *AttachmentHandler) List(c *gin.Context) {
	attachments, err := h.evidence.ListForCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attachments, nil)
}

// SignedURL godoc
// @Summary Issue a signed download link
// @Tags Attachments
// @Produce json
// @Param attachmentId path string true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Router /attachments/{attachmentId}/url [get]
func (h *AttachmentHandler) SignedURL(c *gin.Context) {
	att, token, expiresAt, err := h.evidence.SignedDownload(c.Request.Context(), c.Param("attachmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.AttachmentDownloadResponse{
		Attachment:  *att,
		DownloadURL: "/api/v1/attachments/download/" + token,
		ExpiresAt:   expiresAt,
	}, nil)
}

// Download godoc
// @Summary Download an attachment via a signed token
// @Description Public route; the token embeds the attachment reference and expiry
// @Tags Attachments
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /attachments/download/{token} [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.signer.Parse(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired"))
		return
	}
	file, err := h.files.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	defer file.Close()

	c.FileAttachment(h.files.Path(relPath), filepath.Base(relPath))
}

// GenerateRecord godoc
// @Summary Issue the official case record PDF
// @Description Renders the case and its visible trail into a stored PDF and returns a signed link
// @Tags Attachments
// @Produce json
// @Param id path string true "Case ID"
// @Success 201 {object} response.Envelope
// @Router /cases/{id}/record [post]
func (h *AttachmentHandler) GenerateRecord(c *gin.Context) {
	result, err := h.record.Generate(c.Request.Context(), c.Param("id"), currentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
