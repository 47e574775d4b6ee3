package model

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// セッションに保存するカート。DBには保存しない。
// リクエストごとにセッションストアから読み出して、明示的に渡す。
type Cart struct {
	Lines map[string]CartLine `json:"lines"`
}

// カートの1明細。価格と在庫は追加時点のスナップショット
type CartLine struct {
	Key       string          `json:"key"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Stock     int64           `json:"stock"`
	Image     string          `json:"image"`
	ProductID int64           `json:"product_id"`
	VariantID *int64          `json:"variant_id"`
}

// 追加する商品（またはvariant）の現在の情報
type CartItemSource struct {
	ProductID int64
	VariantID *int64
	Name      string
	Price     decimal.Decimal
	Stock     int64
	Image     string
}

func NewCart() Cart {
	return Cart{Lines: map[string]CartLine{}}
}

// "7" または "7-3"（product-variant）
func CartKey(productID int64, variantID *int64) string {
	key := strconv.FormatInt(productID, 10)
	if variantID != nil {
		key += "-" + strconv.FormatInt(*variantID, 10)
	}
	return key
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(l.Quantity))
}

// 同じキーなら数量を足す。在庫を超えるなら何も変えずにエラー
func (c *Cart) Add(src CartItemSource, qty int64) (CartLine, error) {
	if qty < 1 {
		return CartLine{}, ErrInvalidQuantity
	}
	if c.Lines == nil {
		c.Lines = map[string]CartLine{}
	}

	key := CartKey(src.ProductID, src.VariantID)
	line, exists := c.Lines[key]

	requested := qty
	if exists {
		requested += line.Quantity
	}
	if requested > src.Stock {
		return CartLine{}, ErrInsufficientStock
	}

	if exists {
		line.Quantity = requested
		line.Stock = src.Stock
	} else {
		line = CartLine{
			Key:       key,
			Name:      src.Name,
			Price:     src.Price,
			Quantity:  qty,
			Stock:     src.Stock,
			Image:     src.Image,
			ProductID: src.ProductID,
			VariantID: src.VariantID,
		}
	}
	c.Lines[key] = line
	return line, nil
}

// 数量を上書き。liveStockは今の在庫
func (c *Cart) Update(key string, qty int64, liveStock int64) (lineTotal decimal.Decimal, total decimal.Decimal, err error) {
	line, ok := c.Lines[key]
	if !ok {
		return decimal.Zero, decimal.Zero, ErrCartLineNotFound
	}
	if qty < 1 {
		return decimal.Zero, decimal.Zero, ErrInvalidQuantity
	}
	if qty > liveStock {
		return decimal.Zero, decimal.Zero, ErrInsufficientStock
	}

	line.Quantity = qty
	line.Stock = liveStock
	c.Lines[key] = line
	return line.Subtotal(), c.Total(), nil
}

// 無いキーでもエラーにしない
func (c *Cart) Remove(key string) {
	delete(c.Lines, key)
}

func (c *Cart) Clear() {
	c.Lines = map[string]CartLine{}
}

func (c Cart) Line(key string) (CartLine, bool) {
	line, ok := c.Lines[key]
	return line, ok
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c Cart) Count() int {
	return len(c.Lines)
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// キー順で返す（表示・注文明細の順番を安定させる）
func (c Cart) SortedLines() []CartLine {
	keys := make([]string, 0, len(c.Lines))
	for k := range c.Lines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]CartLine, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, c.Lines[k])
	}
	return lines
}
