package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "portfolioanalytics/internal/errors"
)

// DatabaseRepository stores documents in the documents table
type DatabaseRepository struct {
	db *gorm.DB
}

// NewDatabaseRepository wraps a migrated connection
func NewDatabaseRepository(db *gorm.DB) *DatabaseRepository {
	return &DatabaseRepository{db: db}
}

// Save upserts the document
func (r *DatabaseRepository) Save(ctx context.Context, key string, value any) error {
	payload, err := encodeDocument(key, value)
	if err != nil {
		return err
	}

	doc := DocumentModel{Key: key, Payload: string(payload)}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return apperrors.NewStorageError("save "+key, err)
	}
	return nil
}

// Load decodes the stored payload into out
func (r *DatabaseRepository) Load(ctx context.Context, key string, out any) (bool, error) {
	var doc DocumentModel
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewStorageError("load "+key, err)
	}
	if err := json.Unmarshal([]byte(doc.Payload), out); err != nil {
		return false, apperrors.NewStorageError("decode "+key, err)
	}
	return true, nil
}

// Delete removes the document if present
func (r *DatabaseRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("key = ?", key).Delete(&DocumentModel{}).Error; err != nil {
		return apperrors.NewStorageError("delete "+key, err)
	}
	return nil
}

// List returns keys starting with prefix in lexical order
func (r *DatabaseRepository) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).Model(&DocumentModel{}).
		Where("key LIKE ? ESCAPE '\\'", likeEscaper.Replace(prefix)+"%").
		Order("key").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, apperrors.NewStorageError("list "+prefix, err)
	}
	return keys, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
