package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 商品。価格はnumericで持つ（floatにしない）
type Product struct {
	ID          int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string           `gorm:"type:varchar(100);not null" json:"name"`
	Description string           `gorm:"type:text" json:"description"`
	Price       decimal.Decimal  `gorm:"type:numeric(10,2);not null;check:price >= 0" json:"price"`
	Rating      decimal.Decimal  `gorm:"type:numeric(3,1);not null;default:0;check:rating >= 0 AND rating <= 10" json:"rating"`
	Stock       int64            `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	CategoryID  *int64           `gorm:"index" json:"category_id"`
	Category    *Category        `gorm:"constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Image       string           `gorm:"type:varchar(255)" json:"image"`
	Variants    []ProductVariant `json:"variants,omitempty"`
	CreatedAt   time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (p Product) IsAvailable() bool {
	return p.Stock > 0
}

// 色違いなどの購入単位。priceがnullなら商品価格を使う
type ProductVariant struct {
	ID        int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64               `gorm:"not null;index" json:"product_id"`
	ColorID   *int64              `gorm:"index" json:"color_id"`
	Color     *Color              `gorm:"constraint:OnDelete:SET NULL" json:"color,omitempty"`
	Price     decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"price"`
	Stock     int64               `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	Image     string              `gorm:"type:varchar(255)" json:"image"`
}

// 実際に売る価格
func (v ProductVariant) EffectivePrice(p Product) decimal.Decimal {
	if v.Price.Valid {
		return v.Price.Decimal
	}
	return p.Price
}

// 表示名（色なしなら商品名のみ）
func (v ProductVariant) DisplayName(p Product) string {
	if v.Color == nil || v.Color.Name == "" {
		return p.Name
	}
	return p.Name + " - " + v.Color.Name
}

func (v ProductVariant) ColorName() string {
	if v.Color == nil {
		return ""
	}
	return v.Color.Name
}
