package api

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dexatek/cdu-gateway/pkg/models"
	"github.com/dexatek/cdu-gateway/pkg/redfish"
)

const multipartUploadPath = "/UpdateFirmwareMultipart"

// handleUpdateService routes the UpdateService root resource and the
// MultipartUpload action design/040_CDU_Gateway_Redfish_API.md §4.K/§8 scenario 6 names.
func (h *Handler) handleUpdateService(w http.ResponseWriter, r *http.Request, subPath string, account *models.Account) {
	switch subPath {
	case "", "/":
		if r.Method != http.MethodGet {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		writeJSONResponse(w, http.StatusOK, redfish.UpdateService{
			ODataContext:         "/redfish/v1/$metadata#UpdateService.UpdateService",
			ODataID:              "/redfish/v1/UpdateService",
			ODataType:            "#UpdateService.v1_11_0.UpdateService",
			ID:                   "UpdateService",
			Name:                 "Update Service",
			ServiceEnabled:       true,
			MultipartHTTPPushURI: "/redfish/v1/UpdateService" + multipartUploadPath,
		})
	case multipartUploadPath:
		if r.Method != http.MethodPost {
			writeErrorResponse(w, http.StatusMethodNotAllowed, "Base.1.15.0.MethodNotAllowed", "Method not allowed")
			return
		}
		if !requireRole(w, account, "ConfigureComponents") {
			return
		}
		h.handleMultipartUpload(w, r)
	default:
		writeErrorResponse(w, http.StatusNotFound, "Base.1.15.0.ResourceMissingAtURI", "Resource not found")
	}
}

// uploadChunkSize matches design/042_CDU_Gateway_HTTP_Front_End.md §4.L's streaming-to-disk chunk size: the
// firmware image body is never buffered whole in memory.
const uploadChunkSize = 8192

// handleMultipartUpload extracts the UpdateFile (or file) part of a
// multipart/form-data body, streams it straight to a temp file beside the
// firmware path in uploadChunkSize chunks, then atomically renames it into
// place (design/040_CDU_Gateway_Redfish_API.md §4.K: "extracts... in binary-safe fashion, atomically
// renames over the firmware path, and triggers... system_firmware_update()").
func (h *Handler) handleMultipartUpload(w http.ResponseWriter, r *http.Request) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
		writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Content-Type must be multipart/form-data with a boundary")
		return
	}

	reader := multipart.NewReader(r.Body, params["boundary"])
	var (
		part *multipart.Part
	)
	for {
		p, perr := reader.NextPart()
		if perr == io.EOF {
			writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.PropertyMissing", "No UpdateFile part found")
			return
		}
		if perr != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Base.1.15.0.MalformedJSON", "Malformed multipart body")
			return
		}
		name := p.FormName()
		if name == "UpdateFile" || name == "file" {
			part = p
			break
		}
	}

	tmpPath := h.firmwarePath + ".upload"
	out, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		logAndInternalError(w, "os.OpenFile", err)
		return
	}

	var written int64
	buf := make([]byte, uploadChunkSize)
	for {
		n, rerr := part.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				os.Remove(tmpPath)
				logAndInternalError(w, "firmware write", werr)
				return
			}
			written += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			out.Close()
			os.Remove(tmpPath)
			logAndInternalError(w, "firmware read", rerr)
			return
		}
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		logAndInternalError(w, "firmware close", err)
		return
	}

	finalPath := filepath.Clean(h.firmwarePath)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		logAndInternalError(w, "os.Rename", err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"SavedTo": finalPath,
		"Bytes":   written,
	})

	h.life.ScheduleFirmwareUpdate()
}
