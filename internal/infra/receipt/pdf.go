package receipt

import (
	"bytes"
	"fmt"
	"io"

	"storefront/internal/usecase"

	"github.com/go-pdf/fpdf"
)

// A4の受領書。HTMLと同じReceiptViewから作る
type PDFRenderer struct {
	compress bool
}

func NewPDFRenderer(compress bool) *PDFRenderer {
	return &PDFRenderer{compress: compress}
}

func (r *PDFRenderer) Render(w io.Writer, v usecase.ReceiptView) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle(fmt.Sprintf("Receipt #%d", v.OrderID), true)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	//コアフォントはcp1252なので変換する
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(v.OrganizationName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, fmt.Sprintf("Receipt #%d", v.OrderID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Date: "+v.OrderDate.Format("January 2, 2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, s := range []string{v.Buyer.Name, v.Buyer.Email, v.Buyer.Phone, v.Buyer.City} {
		pdf.CellFormat(0, 6, tr(s), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Payment method: %s (%s)", v.PaymentMethod, v.PaymentStatus)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	//明細
	widths := []float64{70, 35, 25, 15, 35}
	pdf.SetFont("Helvetica", "B", 11)
	for i, h := range []string{"Product", "Color", "Price", "Qty", "Subtotal"} {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	for _, it := range v.Items {
		pdf.CellFormat(widths[0], 7, tr(it.ProductName), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, tr(it.VariantName), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, it.Price.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, fmt.Sprintf("%d", it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, it.Subtotal.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, "Total: "+v.Total.StringFixed(2), "T", 1, "R", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Courier", "", 11)
	pdf.CellFormat(0, 7, "Receipt signature: "+v.Signature, "", 1, "L", false, 0, "")

	if img := stampImageType(v.Stamp); img != "" {
		opts := fpdf.ImageOptions{ImageType: img, ReadDpi: false}
		pdf.RegisterImageOptionsReader("stamp", opts, bytes.NewReader(v.Stamp.Data))
		pdf.ImageOptions("stamp", 15, pdf.GetY()+4, 40, 0, false, opts, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func stampImageType(s *usecase.Stamp) string {
	if s == nil || len(s.Data) == 0 {
		return ""
	}
	switch s.MIMEType {
	case "image/png":
		return "PNG"
	case "image/jpeg":
		return "JPG"
	case "image/gif":
		return "GIF"
	}
	return ""
}
