package model

import "github.com/shopspring/decimal"

// 注文明細。商品名・価格は注文時点のコピーで、商品の後からの変更に影響されない。
// ProductID / VariantIDは追跡用（商品が消えたらNULL）
type OrderItem struct {
	ID          int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64               `gorm:"not null;index" json:"order_id"`
	ProductID   *int64              `gorm:"index" json:"product_id"`
	Product     *Product            `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	VariantID   *int64              `gorm:"index" json:"variant_id"`
	Variant     *ProductVariant     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	ProductName string              `gorm:"type:varchar(255);not null" json:"product_name"`
	VariantName string              `gorm:"type:varchar(255)" json:"variant_name"`
	Price       decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"price"`
	Quantity    *int64              `json:"quantity"`
}

// 価格か数量が欠けていたら0として計算する
func (it OrderItem) Subtotal() decimal.Decimal {
	price := decimal.Zero
	if it.Price.Valid {
		price = it.Price.Decimal
	}
	var qty int64
	if it.Quantity != nil {
		qty = *it.Quantity
	}
	return price.Mul(decimal.NewFromInt(qty))
}

func (it OrderItem) QuantityOrZero() int64 {
	if it.Quantity == nil {
		return 0
	}
	return *it.Quantity
}

func (it OrderItem) PriceOrZero() decimal.Decimal {
	if !it.Price.Valid {
		return decimal.Zero
	}
	return it.Price.Decimal
}
