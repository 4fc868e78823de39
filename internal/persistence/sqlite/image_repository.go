package sqlite

import (
	"context"

	"github.com/example/office-planner/internal/persistence"
)

// ImageRepository implements persistence.ImageRepository using SQLite
type ImageRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

func newImageRepository(q queryer) *ImageRepository {
	return &ImageRepository{helper: NewQueryHelper(q), mapper: NewErrorMapper()}
}

const imageColumns = `id, employee_id, object_key, title, content_type, size_bytes, sort_order, created_at`

// CreateImage inserts image metadata; the bytes live in the image store
func (r *ImageRepository) CreateImage(ctx context.Context, image persistence.EmployeeImage) error {
	if image.ID == "" || image.EmployeeID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO employee_images (`+imageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		image.ID,
		image.EmployeeID,
		image.ObjectKey,
		image.Title,
		image.ContentType,
		image.Size,
		image.Order,
		formatTimestamp(image.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateImage overwrites title, object key and order
func (r *ImageRepository) UpdateImage(ctx context.Context, image persistence.EmployeeImage) error {
	if image.ID == "" {
		return persistence.ErrConstraintViolation
	}
	return r.helper.ExecAffecting(ctx, r.mapper, `
		UPDATE employee_images
		SET object_key = ?, title = ?, content_type = ?, size_bytes = ?, sort_order = ?
		WHERE id = ?
	`,
		image.ObjectKey,
		image.Title,
		image.ContentType,
		image.Size,
		image.Order,
		image.ID,
	)
}

// UpdateImageOrder changes only the display position
func (r *ImageRepository) UpdateImageOrder(ctx context.Context, id string, order int) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.helper.ExecAffecting(ctx, r.mapper, `UPDATE employee_images SET sort_order = ? WHERE id = ?`, order, id)
}

// GetImage retrieves one image by ID
func (r *ImageRepository) GetImage(ctx context.Context, id string) (persistence.EmployeeImage, error) {
	if id == "" {
		return persistence.EmployeeImage{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+imageColumns+` FROM employee_images WHERE id = ?`, id)
	return r.scanImage(row)
}

// ListImages returns an employee's images in display order
func (r *ImageRepository) ListImages(ctx context.Context, employeeID string) ([]persistence.EmployeeImage, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+imageColumns+`
		FROM employee_images
		WHERE employee_id = ?
		ORDER BY sort_order ASC, created_at ASC, id ASC
	`, employeeID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	images := make([]persistence.EmployeeImage, 0)
	for rows.Next() {
		image, err := r.scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return images, nil
}

// DeleteImage removes image metadata
func (r *ImageRepository) DeleteImage(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.helper.ExecAffecting(ctx, r.mapper, `DELETE FROM employee_images WHERE id = ?`, id)
}

func (r *ImageRepository) scanImage(row rowScanner) (persistence.EmployeeImage, error) {
	var (
		image     persistence.EmployeeImage
		createdAt string
	)
	err := row.Scan(
		&image.ID,
		&image.EmployeeID,
		&image.ObjectKey,
		&image.Title,
		&image.ContentType,
		&image.Size,
		&image.Order,
		&createdAt,
	)
	if err != nil {
		return persistence.EmployeeImage{}, r.mapper.MapError(err)
	}
	if image.CreatedAt, err = parseTimestamp(createdAt, "created_at"); err != nil {
		return persistence.EmployeeImage{}, err
	}
	return image, nil
}
