package persistence

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"portfolioanalytics/internal/domain/fixedincome"
	apperrors "portfolioanalytics/internal/errors"
)

// BondStore keeps registered bonds and the current yield curve
type BondStore struct {
	db *gorm.DB
}

// NewBondStore wraps a migrated connection
func NewBondStore(db *gorm.DB) *BondStore {
	return &BondStore{db: db}
}

// SaveBond validates and upserts a bond keyed by ISIN
func (s *BondStore) SaveBond(ctx context.Context, bond fixedincome.Bond) (fixedincome.Bond, error) {
	bond = bond.WithDefaults()
	if err := bond.Validate(); err != nil {
		return fixedincome.Bond{}, err
	}

	var model BondModel
	model.FromDomain(bond)
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&model).Error; err != nil {
		return fixedincome.Bond{}, apperrors.NewStorageError("save bond "+bond.ISIN, err)
	}
	return model.ToDomain(), nil
}

// GetBond returns a data-not-available error for unknown ISINs
func (s *BondStore) GetBond(ctx context.Context, isin string) (fixedincome.Bond, error) {
	isin = strings.ToUpper(strings.TrimSpace(isin))

	var model BondModel
	err := s.db.WithContext(ctx).Where("isin = ?", isin).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fixedincome.Bond{}, apperrors.NewDataNotAvailableError("bond "+isin+" is not registered", nil).
			WithContext("isin", isin)
	}
	if err != nil {
		return fixedincome.Bond{}, apperrors.NewStorageError("load bond "+isin, err)
	}
	return model.ToDomain(), nil
}

// ListBonds returns every bond ordered by maturity
func (s *BondStore) ListBonds(ctx context.Context) ([]fixedincome.Bond, error) {
	var models []BondModel
	if err := s.db.WithContext(ctx).Order("maturity_date, isin").Find(&models).Error; err != nil {
		return nil, apperrors.NewStorageError("list bonds", err)
	}
	bonds := make([]fixedincome.Bond, len(models))
	for i := range models {
		bonds[i] = models[i].ToDomain()
	}
	return bonds, nil
}

// DeleteBond reports whether a row was removed
func (s *BondStore) DeleteBond(ctx context.Context, isin string) (bool, error) {
	isin = strings.ToUpper(strings.TrimSpace(isin))
	res := s.db.WithContext(ctx).Where("isin = ?", isin).Delete(&BondModel{})
	if res.Error != nil {
		return false, apperrors.NewStorageError("delete bond "+isin, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SaveYieldCurve replaces the stored curve
func (s *BondStore) SaveYieldCurve(ctx context.Context, points []fixedincome.YieldCurvePoint) error {
	for _, p := range points {
		if p.Tenor <= 0 {
			return apperrors.NewDataValidationError("yield curve tenor must be positive, got %v", p.Tenor)
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&YieldCurvePointModel{}).Error; err != nil {
			return err
		}
		if len(points) == 0 {
			return nil
		}
		models := make([]YieldCurvePointModel, len(points))
		for i, p := range points {
			models[i] = YieldCurvePointModel{Tenor: p.Tenor, Rate: p.Rate}
		}
		return tx.Create(&models).Error
	})
	if err != nil {
		return apperrors.NewStorageError("save yield curve", err)
	}
	return nil
}

// YieldCurve returns the stored curve sorted by tenor
func (s *BondStore) YieldCurve(ctx context.Context) ([]fixedincome.YieldCurvePoint, error) {
	var models []YieldCurvePointModel
	if err := s.db.WithContext(ctx).Order("tenor").Find(&models).Error; err != nil {
		return nil, apperrors.NewStorageError("load yield curve", err)
	}
	points := make([]fixedincome.YieldCurvePoint, len(models))
	for i, m := range models {
		points[i] = fixedincome.YieldCurvePoint{Tenor: m.Tenor, Rate: m.Rate}
	}
	return points, nil
}
