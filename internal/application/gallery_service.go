package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/office-planner/internal/gallery"
	"github.com/example/office-planner/internal/persistence"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// GalleryService manages employee photos and their display order.
type GalleryService struct {
	store       persistence.Store
	blobs       BlobStore
	idGenerator func() string
	now         func() time.Time
	logger      *zap.Logger
}

// NewGalleryService constructs a gallery service with the provided dependencies.
func NewGalleryService(store persistence.Store, blobs BlobStore, idGenerator func() string, now func() time.Time, logger *zap.Logger) *GalleryService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &GalleryService{store: store, blobs: blobs, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *GalleryService) loggerWith(ctx context.Context, operation string, fields ...zap.Field) *zap.Logger {
	return serviceLogger(ctx, s.logger, "GalleryService", operation, fields...)
}

// UploadImage stores body and records it in the employee's gallery. A
// requested order that is already taken puts the image at the end.
func (s *GalleryService) UploadImage(ctx context.Context, params UploadImageParams, body io.Reader) (image EmployeeImage, err error) {
	if s == nil || s.store == nil || s.blobs == nil {
		err = fmt.Errorf("GalleryService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "UploadImage",
		zap.String("principal_id", params.Principal.UserID),
		zap.String("employee_id", params.EmployeeID),
	)
	defer func() {
		if err != nil {
			logFailure(logger, "failed to upload image", err)
			return
		}
		logger.Info("image uploaded", zap.String("image_id", image.ID), zap.Int("order", image.Order))
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	params.ContentType = strings.ToLower(strings.TrimSpace(params.ContentType))
	if vErr := validateStruct(params); vErr.HasErrors() {
		err = vErr
		return
	}
	if _, err = s.store.Employees().GetEmployee(ctx, params.EmployeeID); err != nil {
		err = mapImageRepoError(err)
		return
	}

	record := persistence.EmployeeImage{
		ID:          s.idGenerator(),
		EmployeeID:  params.EmployeeID,
		Title:       strings.TrimSpace(params.Title),
		ContentType: params.ContentType,
		Size:        params.Size,
		CreatedAt:   s.now(),
	}
	record.ObjectKey = fmt.Sprintf("employees/%s/%s%s", record.EmployeeID, record.ID, imageExtensions[record.ContentType])

	if err = s.blobs.Put(ctx, record.ObjectKey, body, record.Size, record.ContentType); err != nil {
		err = fmt.Errorf("failed to store image: %w", err)
		return
	}

	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		siblings, err := repos.Images().ListImages(ctx, record.EmployeeID)
		if err != nil {
			return err
		}
		record.Order = gallery.ResolveOrder(toGalleryImages(siblings), "", params.Order)
		return mapImageRepoError(repos.Images().CreateImage(ctx, record))
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, record.ObjectKey); delErr != nil {
			logger.Warn("failed to remove orphaned image object", zap.String("object_key", record.ObjectKey), zap.Error(delErr))
		}
		return
	}

	image = toEmployeeImage(record)
	return
}

// UpdateImage changes title and order. The image's own order never counts as taken.
func (s *GalleryService) UpdateImage(ctx context.Context, params UpdateImageParams) (image EmployeeImage, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("GalleryService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateImage",
		zap.String("principal_id", params.Principal.UserID),
		zap.String("image_id", params.ImageID),
	)
	defer func() {
		if err != nil {
			logFailure(logger, "failed to update image", err)
			return
		}
		logger.Info("image updated", zap.Int("order", image.Order))
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if vErr := validateStruct(params); vErr.HasErrors() {
		err = vErr
		return
	}

	var record persistence.EmployeeImage
	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		var err error
		record, err = getEmployeeImage(ctx, repos, params.EmployeeID, params.ImageID)
		if err != nil {
			return err
		}
		if params.Title != nil {
			record.Title = strings.TrimSpace(*params.Title)
		}
		if params.Order != nil {
			siblings, err := repos.Images().ListImages(ctx, record.EmployeeID)
			if err != nil {
				return err
			}
			record.Order = gallery.ResolveOrder(toGalleryImages(siblings), record.ID, *params.Order)
		}
		return mapImageRepoError(repos.Images().UpdateImage(ctx, record))
	})
	if err != nil {
		return
	}

	image = toEmployeeImage(record)
	return
}

// DeleteImage removes an image and renumbers the rest 1..N in the same transaction.
func (s *GalleryService) DeleteImage(ctx context.Context, principal Principal, employeeID, imageID string) (err error) {
	if s == nil || s.store == nil {
		return fmt.Errorf("GalleryService is not configured")
	}

	logger := s.loggerWith(ctx, "DeleteImage",
		zap.String("principal_id", principal.UserID),
		zap.String("employee_id", employeeID),
		zap.String("image_id", imageID),
	)
	defer func() {
		if err != nil {
			logFailure(logger, "failed to delete image", err)
		}
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var (
		removed persistence.EmployeeImage
		changes []gallery.OrderChange
	)
	err = s.store.WithinTx(ctx, func(repos persistence.Repositories) error {
		var err error
		removed, err = getEmployeeImage(ctx, repos, employeeID, imageID)
		if err != nil {
			return err
		}
		if err := repos.Images().DeleteImage(ctx, removed.ID); err != nil {
			return mapImageRepoError(err)
		}

		remaining, err := repos.Images().ListImages(ctx, employeeID)
		if err != nil {
			return err
		}
		changes = gallery.Resequence(toGalleryImages(remaining))
		for _, change := range changes {
			if err := repos.Images().UpdateImageOrder(ctx, change.ID, change.NewOrder); err != nil {
				return mapImageRepoError(err)
			}
		}
		return nil
	})
	if err != nil {
		return
	}

	logger.Info("image deleted", zap.Int("resequenced", len(changes)))
	removeBlobs(ctx, s.blobs, logger, []persistence.EmployeeImage{removed})
	return nil
}

// ListImages returns the main photo and the remaining gallery of an employee.
func (s *GalleryService) ListImages(ctx context.Context, principal Principal, employeeID string) (Gallery, error) {
	if s == nil || s.store == nil {
		return Gallery{}, fmt.Errorf("GalleryService is not configured")
	}
	if _, err := s.store.Employees().GetEmployee(ctx, employeeID); err != nil {
		return Gallery{}, mapImageRepoError(err)
	}

	records, err := s.store.Images().ListImages(ctx, employeeID)
	if err != nil {
		logFailure(s.loggerWith(ctx, "ListImages", zap.String("employee_id", employeeID)), "failed to list images", err)
		return Gallery{}, err
	}

	byID := make(map[string]persistence.EmployeeImage, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	views := toGalleryImages(records)

	result := Gallery{Others: []EmployeeImage{}}
	if main, ok := gallery.MainPhoto(views); ok {
		img := toEmployeeImage(byID[main.ID])
		result.Main = &img
	}
	for _, v := range gallery.Secondary(views) {
		result.Others = append(result.Others, toEmployeeImage(byID[v.ID]))
	}
	return result, nil
}

// OpenImage returns the metadata and a reader for the stored bytes. The caller closes the reader.
func (s *GalleryService) OpenImage(ctx context.Context, principal Principal, employeeID, imageID string) (EmployeeImage, io.ReadCloser, error) {
	if s == nil || s.store == nil || s.blobs == nil {
		return EmployeeImage{}, nil, fmt.Errorf("GalleryService is not configured")
	}
	record, err := getEmployeeImage(ctx, s.store, employeeID, imageID)
	if err != nil {
		return EmployeeImage{}, nil, err
	}
	body, err := s.blobs.Open(ctx, record.ObjectKey)
	if err != nil {
		logFailure(s.loggerWith(ctx, "OpenImage", zap.String("image_id", imageID)), "failed to open image", err)
		return EmployeeImage{}, nil, err
	}
	return toEmployeeImage(record), body, nil
}

func getEmployeeImage(ctx context.Context, repos persistence.Repositories, employeeID, imageID string) (persistence.EmployeeImage, error) {
	record, err := repos.Images().GetImage(ctx, imageID)
	if err != nil {
		return persistence.EmployeeImage{}, mapImageRepoError(err)
	}
	if record.EmployeeID != employeeID {
		return persistence.EmployeeImage{}, ErrNotFound
	}
	return record, nil
}

func mapImageRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("order", "order must not be negative")
	}
	return err
}

func toGalleryImages(records []persistence.EmployeeImage) []gallery.Image {
	out := make([]gallery.Image, len(records))
	for i, r := range records {
		out[i] = gallery.Image{ID: r.ID, Order: r.Order, CreatedAt: r.CreatedAt}
	}
	return out
}

func toEmployeeImage(record persistence.EmployeeImage) EmployeeImage {
	return EmployeeImage{
		ID:          record.ID,
		EmployeeID:  record.EmployeeID,
		ObjectKey:   record.ObjectKey,
		Title:       record.Title,
		ContentType: record.ContentType,
		Size:        record.Size,
		Order:       record.Order,
		CreatedAt:   record.CreatedAt,
	}
}
