// Package repos provides access to template-related database operations
package repos

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/templify-app/templify/internal/db/models"
)

// ErrTemplateNotFound is returned when no template row exists for an id
var ErrTemplateNotFound = errors.New("template not found")

// TemplateRepository provides access to template-related database operations
type TemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new template repository instance
func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// GetByID retrieves a template by its ID
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.Template, error) {
	var tmpl models.Template
	err := r.db.WithContext(ctx).Where(&models.Template{ID: id}).First(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tmpl, nil
}

// Save upserts a template row
func (r *TemplateRepository) Save(ctx context.Context, tmpl *models.Template) error {
	return r.db.WithContext(ctx).Save(tmpl).Error
}

// ResetVerified clears the verification flag for a template, used to
// self-heal a stale flag before a full re-scan
func (r *TemplateRepository) ResetVerified(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.Template{}).
		Where(&models.Template{ID: id}).
		Update("verified", models.VerificationPending).Error
}

// MarkVerified records a successful verification: the current datasource hash
// becomes the last verified hash and the attempt flag is set
func (r *TemplateRepository) MarkVerified(ctx context.Context, id string, datasourceMD5 *string) error {
	return r.db.WithContext(ctx).Model(&models.Template{}).
		Where(&models.Template{ID: id}).
		Updates(map[string]interface{}{
			"verified":          models.VerificationAttempted,
			"last_verified_md5": datasourceMD5,
		}).Error
}

// Rollback records a failed verification: the datasource hash reverts to the
// last verified one and the attempt flag is still set
func (r *TemplateRepository) Rollback(ctx context.Context, id string, lastVerifiedMD5 *string) error {
	return r.db.WithContext(ctx).Model(&models.Template{}).
		Where(&models.Template{ID: id}).
		Updates(map[string]interface{}{
			"verified":       models.VerificationAttempted,
			"datasource_md5": lastVerifiedMD5,
		}).Error
}

// Text retrieves the raw markup text of a template
func (r *TemplateRepository) Text(ctx context.Context, id string) (string, error) {
	tmpl, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return tmpl.Text, nil
}

// Images loads all images attached to a template, decoded from their stored
// base64 form into raw bytes. Images that fail to decode are skipped.
func (r *TemplateRepository) Images(ctx context.Context, templateID string) (map[string][]byte, error) {
	var rows []models.Image
	err := r.db.WithContext(ctx).
		Where(&models.Image{TemplateID: templateID}).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}

	images := make(map[string][]byte, len(rows))
	for _, img := range rows {
		bytes, err := base64.StdEncoding.DecodeString(img.Base64)
		if err != nil {
			continue
		}
		images[img.ID] = bytes
	}
	return images, nil
}

// SaveImage upserts an image row
func (r *TemplateRepository) SaveImage(ctx context.Context, img *models.Image) error {
	return r.db.WithContext(ctx).Save(img).Error
}
