package receipt

import (
	"fmt"
	"net/http"
	"os"

	"storefront/internal/usecase"
)

// 受領印の画像を読む。画像でなければエラー（呼び出し側は印なしで続ける）
func LoadStamp(path string) (*usecase.Stamp, error) {
	if path == "" {
		return nil, fmt.Errorf("stamp path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stamp: %w", err)
	}

	mime := http.DetectContentType(data)
	switch mime {
	case "image/png", "image/jpeg", "image/gif":
	default:
		return nil, fmt.Errorf("stamp %s is not an image (%s)", path, mime)
	}

	return &usecase.Stamp{MIMEType: mime, Data: data}, nil
}
