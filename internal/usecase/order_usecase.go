package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderItemOutput struct {
	ProductID   *int64          `json:"product_id"`
	VariantID   *int64          `json:"variant_id"`
	ProductName string          `json:"product_name"`
	VariantName string          `json:"variant_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type OrderOutput struct {
	ID               int64             `json:"id"`
	Buyer            model.Buyer       `json:"buyer"`
	PaymentMethod    string            `json:"payment_method"`
	PaymentStatus    string            `json:"payment_status"`
	Total            decimal.Decimal   `json:"total"`
	ReceiptSignature string            `json:"receipt_signature"`
	CreatedAt        time.Time         `json:"created_at"`
	Items            []OrderItemOutput `json:"items"`
}

// 受領印の署名（uuid v4の16進・大文字32文字）
func NewReceiptSignature() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// 確定する注文の中身（カートかスナップショットから作る）
type orderDraft struct {
	Buyer  model.Buyer
	Method model.PaymentMethod
	Lines  []model.CartLine
	Total  decimal.Decimal
}

// トランザクション内で在庫を減らして注文と明細を作る。
// 在庫が足りない行が1つでもあればErrStockConflict（呼び出し側でロールバック）
func persistOrder(ctx context.Context, r repo.TxRepos, d orderDraft, signature string) (int64, error) {
	order, err := model.NewOrder(d.Buyer, d.Method, d.Total, model.PaymentStatusCompleted, signature)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrPersistenceFailure, err)
	}

	items := make([]model.OrderItem, 0, len(d.Lines))
	for _, line := range d.Lines {
		//商品が消えていたら在庫切れと同じ扱い
		p, err := r.Products().FindByID(ctx, line.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return 0, model.ErrStockConflict
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %v", model.ErrPersistenceFailure, err)
		}

		var ok bool
		var variantName string
		if line.VariantID != nil {
			v, err := r.Products().FindVariant(ctx, line.ProductID, *line.VariantID)
			if errors.Is(err, repo.ErrNotFound) {
				return 0, model.ErrStockConflict
			}
			if err != nil {
				return 0, fmt.Errorf("%w: %v", model.ErrPersistenceFailure, err)
			}
			variantName = v.ColorName()
			ok, err = r.Inventory().DecreaseVariantStockIfEnough(ctx, v.ID, line.Quantity)
			if err != nil {
				return 0, fmt.Errorf("%w: %v", model.ErrPersistenceFailure, err)
			}
		} else {
			ok, err = r.Inventory().DecreaseStockIfEnough(ctx, p.ID, line.Quantity)
			if err != nil {
				return 0, fmt.Errorf("%w: %v", model.ErrPersistenceFailure, err)
			}
		}
		if !ok {
			return 0, model.ErrStockConflict
		}

		//スナップショット
		productID := p.ID
		qty := line.Quantity
		items = append(items, model.OrderItem{
			ProductID:   &productID,
			VariantID:   line.VariantID,
			ProductName: p.Name,
			VariantName: variantName,
			Price:       decimal.NewNullDecimal(line.Price),
			Quantity:    &qty,
		})
	}

	orderID, err := r.Orders().Create(ctx, order)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrPersistenceFailure, err)
	}

	if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrPersistenceFailure, err)
	}

	return orderID, nil
}

func toOrderOutput(o model.Order) OrderOutput {
	items := make([]OrderItemOutput, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemOutput{
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			ProductName: it.ProductName,
			VariantName: it.VariantName,
			Price:       it.PriceOrZero(),
			Quantity:    it.QuantityOrZero(),
			Subtotal:    it.Subtotal(),
		})
	}

	return OrderOutput{
		ID:               o.ID,
		Buyer:            o.Buyer,
		PaymentMethod:    string(o.PaymentMethod),
		PaymentStatus:    string(o.PaymentStatus),
		Total:            o.Total,
		ReceiptSignature: o.ReceiptSignature,
		CreatedAt:        o.CreatedAt,
		Items:            items,
	}
}

func ReceiptURL(orderID int64) string {
	return fmt.Sprintf("/orders/%d/receipt", orderID)
}
