package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/office-planner/internal/application"
)

const (
	// DefaultMaxImageBytes bounds one uploaded photo unless configured otherwise.
	DefaultMaxImageBytes = 10 << 20
	multipartMemory      = 1 << 20
	sniffLength          = 512
	imageFormField       = "image"
	genericMediaType     = "application/octet-stream"
)

type galleryService interface {
	UploadImage(ctx context.Context, params application.UploadImageParams, body io.Reader) (application.EmployeeImage, error)
	UpdateImage(ctx context.Context, params application.UpdateImageParams) (application.EmployeeImage, error)
	DeleteImage(ctx context.Context, principal application.Principal, employeeID, imageID string) error
	ListImages(ctx context.Context, principal application.Principal, employeeID string) (application.Gallery, error)
	OpenImage(ctx context.Context, principal application.Principal, employeeID, imageID string) (application.EmployeeImage, io.ReadCloser, error)
}

// ImageHandler serves employee photo galleries.
type ImageHandler struct {
	service   galleryService
	maxBytes  int64
	responder responder
	logger    *zap.Logger
}

// NewImageHandler constructs an ImageHandler. maxBytes <= 0 selects DefaultMaxImageBytes.
func NewImageHandler(service galleryService, maxBytes int64, logger *zap.Logger) *ImageHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	base := defaultLogger(logger)
	return &ImageHandler{service: service, maxBytes: maxBytes, responder: newResponder(base), logger: base}
}

func (h *ImageHandler) log(r *http.Request, operation string, fields ...zap.Field) *zap.Logger {
	return handlerLogger(r.Context(), h.logger, "ImageHandler", operation, fields...)
}

// List returns the main photo and the rest of the gallery.
func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	gallery, err := h.service.ListImages(r.Context(), principal, chi.URLParam(r, "employeeID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := galleryResponse{Others: make([]imageDTO, 0, len(gallery.Others))}
	if gallery.Main != nil {
		main := toImageDTO(*gallery.Main)
		resp.Main = &main
	}
	for _, img := range gallery.Others {
		resp.Others = append(resp.Others, toImageDTO(img))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Upload accepts a multipart form with the photo under "image" and optional
// "title" and "order" fields.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	logger := h.log(r, "Upload", zap.String("employee_id", employeeID))

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		logger.Info("failed to parse upload", zap.Error(err))
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("request must be a multipart form within the size limit"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(imageFormField)
	if err != nil {
		h.responder.writeFieldError(r.Context(), w, imageFormField, "image file is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		h.responder.writeFieldError(r.Context(), w, imageFormField, fmt.Sprintf("image must not exceed %d bytes", h.maxBytes))
		return
	}

	order := 0
	if raw := strings.TrimSpace(r.FormValue("order")); raw != "" {
		if order, err = strconv.Atoi(raw); err != nil {
			h.responder.writeFieldError(r.Context(), w, "order", "order must be an integer")
			return
		}
	}

	contentType, err := detectContentType(header.Header.Get("Content-Type"), file)
	if err != nil {
		logger.Error("failed to inspect upload", zap.Error(err))
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	image, err := h.service.UploadImage(r.Context(), application.UploadImageParams{
		Principal:   principal,
		EmployeeID:  employeeID,
		Title:       r.FormValue("title"),
		Order:       order,
		ContentType: contentType,
		Size:        header.Size,
	}, file)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, imageResponse{Image: toImageDTO(image)})
}

// detectContentType trusts a specific declared media type and sniffs the
// leading bytes otherwise. file is rewound afterwards.
func detectContentType(declared string, file io.ReadSeeker) (string, error) {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != genericMediaType {
		return mediaType, nil
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mediaType, nil
}

// Update changes title and/or order. An order already held by another image
// moves this one to the end of the gallery; order 0 is rejected.
func (h *ImageHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req imageUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	image, err := h.service.UpdateImage(r.Context(), application.UpdateImageParams{
		Principal:  principal,
		EmployeeID: chi.URLParam(r, "employeeID"),
		ImageID:    chi.URLParam(r, "imageID"),
		Title:      req.Title,
		Order:      req.Order,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, imageResponse{Image: toImageDTO(image)})
}

func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	err := h.service.DeleteImage(r.Context(), principal, chi.URLParam(r, "employeeID"), chi.URLParam(r, "imageID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Content streams the stored bytes.
func (h *ImageHandler) Content(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	image, body, err := h.service.OpenImage(r.Context(), principal, chi.URLParam(r, "employeeID"), chi.URLParam(r, "imageID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", image.ContentType)
	if image.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(image.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.log(r, "Content", zap.String("image_id", image.ID)).Warn("failed to stream image", zap.Error(err))
	}
}

type imageUpdateRequest struct {
	Title *string `json:"title"`
	Order *int    `json:"order"`
}

type imageResponse struct {
	Image imageDTO `json:"image"`
}

type galleryResponse struct {
	Main   *imageDTO  `json:"main"`
	Others []imageDTO `json:"others"`
}

type imageDTO struct {
	ID          string `json:"id"`
	EmployeeID  string `json:"employee_id"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Order       int    `json:"order"`
	CreatedAt   string `json:"created_at"`
}

func toImageDTO(img application.EmployeeImage) imageDTO {
	return imageDTO{
		ID:          img.ID,
		EmployeeID:  img.EmployeeID,
		Title:       img.Title,
		ContentType: img.ContentType,
		Size:        img.Size,
		Order:       img.Order,
		CreatedAt:   formatTimestamp(img.CreatedAt),
	}
}
