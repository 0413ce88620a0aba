package persistence

import (
	"time"

	"portfolioanalytics/internal/domain/fixedincome"
)

// DocumentModel is a keyed JSON document
type DocumentModel struct {
	Key       string `gorm:"primaryKey;size:255"`
	Payload   string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the gorm default
func (DocumentModel) TableName() string { return "documents" }

// BondModel is the database row for a registered bond
type BondModel struct {
	ISIN            string `gorm:"primaryKey;size:32"`
	Issuer          string `gorm:"size:255"`
	CouponRate      float64
	CouponFrequency int
	MaturityDate    time.Time `gorm:"index"`
	FaceValue       float64
	Price           *float64
	Currency        string `gorm:"size:3"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName overrides the gorm default
func (BondModel) TableName() string { return "bonds" }

// FromDomain copies a bond into the model
func (m *BondModel) FromDomain(b fixedincome.Bond) {
	m.ISIN = b.ISIN
	m.Issuer = b.Issuer
	m.CouponRate = b.CouponRate
	m.CouponFrequency = b.CouponFrequency
	m.MaturityDate = b.MaturityDate.UTC()
	m.FaceValue = b.FaceValue
	m.Price = b.Price
	m.Currency = b.Currency
}

// ToDomain converts the row back to a bond
func (m *BondModel) ToDomain() fixedincome.Bond {
	return fixedincome.Bond{
		ISIN:            m.ISIN,
		Issuer:          m.Issuer,
		CouponRate:      m.CouponRate,
		CouponFrequency: m.CouponFrequency,
		MaturityDate:    m.MaturityDate.UTC(),
		FaceValue:       m.FaceValue,
		Price:           m.Price,
		Currency:        m.Currency,
	}
}

// YieldCurvePointModel is one tenor of the stored curve
type YieldCurvePointModel struct {
	ID        uint    `gorm:"primaryKey"`
	Tenor     float64 `gorm:"uniqueIndex"`
	Rate      float64
	CreatedAt time.Time
}

// TableName overrides the gorm default
func (YieldCurvePointModel) TableName() string { return "yield_curve_points" }
