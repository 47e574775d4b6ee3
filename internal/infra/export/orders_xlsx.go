package export

import (
	"io"

	"storefront/internal/domain/model"

	"github.com/tealeg/xlsx"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// 注文を1行1明細でxlsxに書き出す
type OrderXLSXExporter struct{}

func NewOrderXLSXExporter() *OrderXLSXExporter {
	return &OrderXLSXExporter{}
}

func (e *OrderXLSXExporter) Write(w io.Writer, orders []model.Order) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return err
	}

	// Header row
	headers := []string{
		"OrderID", "CreatedAt", "BuyerName", "BuyerEmail", "BuyerPhone", "BuyerCity",
		"PaymentMethod", "PaymentStatus", "Total", "ReceiptSignature",
		"Product", "Color", "Price", "Quantity", "Subtotal",
	}
	headerRow := sheet.AddRow()
	for _, h := range headers {
		headerRow.AddCell().SetValue(h)
	}

	for _, o := range orders {
		//明細の無い注文も1行は出す
		items := o.Items
		if len(items) == 0 {
			items = []model.OrderItem{{}}
		}

		for _, it := range items {
			row := sheet.AddRow()

			row.AddCell().SetValue(o.ID)
			row.AddCell().SetValue(o.CreatedAt.Format("2006-01-02 15:04:05"))
			row.AddCell().SetValue(o.Buyer.Name)
			row.AddCell().SetValue(o.Buyer.Email)
			row.AddCell().SetValue(o.Buyer.Phone)
			row.AddCell().SetValue(o.Buyer.City)
			row.AddCell().SetValue(string(o.PaymentMethod))
			row.AddCell().SetValue(string(o.PaymentStatus))
			//金額は文字列で（floatにしない）
			row.AddCell().SetString(o.Total.StringFixed(2))
			row.AddCell().SetValue(o.ReceiptSignature)
			row.AddCell().SetValue(it.ProductName)
			row.AddCell().SetValue(it.VariantName)
			row.AddCell().SetString(it.PriceOrZero().StringFixed(2))
			row.AddCell().SetValue(it.QuantityOrZero())
			row.AddCell().SetString(it.Subtotal().StringFixed(2))
		}
	}

	return file.Write(w)
}
