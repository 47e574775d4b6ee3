package usecase

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// 受領印の画像（起動時に1回だけ読む）
type Stamp struct {
	MIMEType string
	Data     []byte
}

func (s *Stamp) DataURI() string {
	if s == nil || len(s.Data) == 0 {
		return ""
	}
	return "data:" + s.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(s.Data)
}

type ReceiptLine struct {
	ProductName string
	VariantName string
	Price       decimal.Decimal
	Quantity    int64
	Subtotal    decimal.Decimal
}

// HTMLでもPDFでも同じ内容を使う
type ReceiptView struct {
	OrderID          int64
	Buyer            model.Buyer
	PaymentMethod    string
	PaymentStatus    string
	OrderDate        time.Time
	Items            []ReceiptLine
	Total            decimal.Decimal
	Signature        string
	OrganizationName string
	//nilなら印なし
	Stamp *Stamp
}

type ReceiptUsecase struct {
	orderRepo repo.OrderRepository
	stamp     *Stamp
	orgName   string
}

func NewReceiptUsecase(orderRepo repo.OrderRepository, stamp *Stamp, orgName string) *ReceiptUsecase {
	return &ReceiptUsecase{orderRepo: orderRepo, stamp: stamp, orgName: orgName}
}

// 署名は保存済みの値をそのまま使う（ここで作り直さない）
func (u *ReceiptUsecase) GetReceipt(ctx context.Context, orderID int64) (ReceiptView, error) {
	if orderID <= 0 {
		return ReceiptView{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orderRepo.FindWithItems(ctx, orderID)
	if err == repo.ErrNotFound {
		return ReceiptView{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ReceiptView{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	lines := make([]ReceiptLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, ReceiptLine{
			ProductName: it.ProductName,
			VariantName: it.VariantName,
			Price:       it.PriceOrZero(),
			Quantity:    it.QuantityOrZero(),
			Subtotal:    it.Subtotal(),
		})
	}

	return ReceiptView{
		OrderID:          o.ID,
		Buyer:            o.Buyer,
		PaymentMethod:    string(o.PaymentMethod),
		PaymentStatus:    string(o.PaymentStatus),
		OrderDate:        o.CreatedAt,
		Items:            lines,
		Total:            o.Total,
		Signature:        o.ReceiptSignature,
		OrganizationName: u.orgName,
		Stamp:            u.stamp,
	}, nil
}
