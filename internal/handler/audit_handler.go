package handler

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uni-ombuds/case-api/internal/dto"
	"github.com/uni-ombuds/case-api/internal/service"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
	"github.com/uni-ombuds/case-api/pkg/response"
)

// AuditHandler exposes the per-case activity trail.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler constructs an audit handler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary List case trail entries
// @Description Returns the ordered activity trail; visible=true restricts to public entries
// @Tags Audit
// @Produce json
// @Param id path string true "Case ID"
// @Param visible query bool false "Only entries marked visible"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/entries [get]
func (h *AuditHandler) List(c *gin.Context) {
	visibleOnly, _ := strconv.ParseBool(c.DefaultQuery("visible", "false"))
	entries, err := h.audit.List(c.Request.Context(), c.Param("id"), visibleOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Append godoc
// @Summary Append a manual trail entry
// @Description Records a follow-up note with optional attachments; file failures are reported per file
// @Tags Audit
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Case ID"
// @Param action formData string true "Action label"
// @Param comment formData string true "Comment (min 10 characters)"
// @Param visible formData bool false "Expose on the public trail"
// @Param files formData file false "Follow-up attachments"
// @Success 201 {object} response.Envelope
// @Router /cases/{id}/entries [post]
func (h *AuditHandler) Append(c *gin.Context) {
	req := dto.ManualEntryRequest{
		Action:  c.PostForm("action"),
		Comment: c.PostForm("comment"),
	}
	if raw := c.PostForm("visible"); raw != "" {
		visible, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "visible must be a boolean"))
			return
		}
		req.Visible = &visible
	}

	files, err := uploadedFiles(c, "files")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.audit.AppendManual(c.Request.Context(), c.Param("id"), req, files, currentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil)
}

// ExportCSV godoc
// @Summary Export the case trail as CSV
// @Tags Audit
// @Produce text/csv
// @Param id path string true "Case ID"
// @Success 200 {string} string "CSV content"
// @Router /cases/{id}/entries/export [get]
func (h *AuditHandler) ExportCSV(c *gin.Context) {
	data, err := h.audit.ExportCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("case-trail-%s.csv", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}

// uploadedFiles reads every file under the given multipart field into
// EvidenceFile descriptors. Contents are buffered so the service can measure
// and re-read them freely.
func uploadedFiles(c *gin.Context, field string) ([]service.EvidenceFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if err == http.ErrNotMultipart {
			return nil, nil
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid multipart payload")
	}
	headers := form.File[field]
	files := make([]service.EvidenceFile, 0, len(headers))
	for _, header := range headers {
		file, err := evidenceFromHeader(header)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func evidenceFromHeader(header *multipart.FileHeader) (service.EvidenceFile, error) {
	src, err := header.Open()
	if err != nil {
		return service.EvidenceFile{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open uploaded file")
	}
	defer src.Close()

	buf, err := io.ReadAll(src)
	if err != nil {
		return service.EvidenceFile{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer uploaded file")
	}
	return service.EvidenceFile{
		DisplayName: header.Filename,
		MediaType:   header.Header.Get("Content-Type"),
		SizeBytes:   int64(len(buf)),
		Content:     bytes.NewReader(buf),
	}, nil
}
