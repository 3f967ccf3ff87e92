package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	objectclient "github.com/markdave123-py/outreach/internal/core/object-client"
	"github.com/markdave123-py/outreach/internal/models"
	"github.com/markdave123-py/outreach/internal/services"
)

const (
	// multipart bodies carry one file plus a handful of text fields
	maxRequestBytes = objectclient.MaxUploadBytes + 1<<20
	multipartMemory = 1 << 20
	maxJSONBytes    = 1 << 20

	msgFileTooLarge = "File too large. Maximum size is 5MB."
)

// uploadPolicy describes the file a route accepts.
type uploadPolicy struct {
	field        string
	types        map[string]bool
	typesMessage string
}

var documentTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/gif":          true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

const (
	msgDocumentTypes = "Invalid file type. Only images, PDFs, DOC, DOCX and TXT files are allowed."
	msgImageTypes    = "Invalid file type. Only JPEG, PNG, GIF and WEBP images are allowed."
)

var (
	templateUpload = uploadPolicy{field: "attachment", types: documentTypes, typesMessage: msgDocumentTypes}
	promptUpload   = uploadPolicy{field: "file", types: documentTypes, typesMessage: msgDocumentTypes}
	profileUpload  = uploadPolicy{field: "profileImage", types: imageTypes, typesMessage: msgImageTypes}
)

// formDecoder fills a request struct from multipart text fields.
type formDecoder interface {
	fromForm(values map[string][]string) error
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// readRequest decodes a multipart or JSON body into dst and returns the
// uploaded file, if any. The returned cleanup must always be called.
func readRequest(w http.ResponseWriter, r *http.Request, policy uploadPolicy, dst formDecoder) (*services.Upload, func(), error) {
	noop := func() {}
	if !isMultipart(r) {
		return nil, noop, decodeJSON(w, r, dst)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, noop, models.NewValidationError(msgFileTooLarge)
		}
		return nil, noop, models.NewValidationError("Invalid multipart form")
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	if err := dst.fromForm(r.MultipartForm.Value); err != nil {
		cleanup()
		return nil, noop, err
	}

	up, closeFile, err := formUpload(r, policy)
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	return up, func() { closeFile(); cleanup() }, nil
}

// formUpload opens the policy's file field. A missing file is not an error.
func formUpload(r *http.Request, policy uploadPolicy) (*services.Upload, func(), error) {
	noop := func() {}
	file, header, err := r.FormFile(policy.field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, models.NewValidationError("Invalid file upload")
	}

	if header.Size > objectclient.MaxUploadBytes {
		_ = file.Close()
		return nil, noop, models.NewValidationError(msgFileTooLarge)
	}

	mimetype := uploadMimetype(header.Header.Get("Content-Type"), header.Filename)
	if !policy.types[mimetype] {
		_ = file.Close()
		return nil, noop, models.NewValidationError(policy.typesMessage)
	}

	up := &services.Upload{
		Filename: filepath.Base(header.Filename),
		Mimetype: mimetype,
		Size:     header.Size,
		Body:     file,
	}
	return up, func() { _ = file.Close() }, nil
}

// uploadMimetype prefers the part's declared type and falls back to the
// file extension.
func uploadMimetype(declared, filename string) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
		return strings.ToLower(mediaType)
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		mediaType, _, _ := mime.ParseMediaType(byExt)
		return mediaType
	}
	return "application/octet-stream"
}

func formString(values map[string][]string, key string) *string {
	if vs, ok := values[key]; ok && len(vs) > 0 {
		v := vs[0]
		return &v
	}
	return nil
}

func formBool(values map[string][]string, key string) (*bool, error) {
	s := formString(values, key)
	if s == nil || *s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(*s)
	if err != nil {
		return nil, models.NewValidationError(key + " must be a boolean")
	}
	return &b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// serveAttachment streams body as a download named after att.
func serveAttachment(w http.ResponseWriter, att *models.Attachment, body io.ReadCloser, disposition string) {
	defer body.Close()

	w.Header().Set("Content-Type", att.Mimetype)
	if disposition != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": att.Filename}))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
