package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

// Chapa（リダイレクト型）のHTTPクライアント
type ChapaGateway struct {
	baseURL   string
	secretKey string
	http      *http.Client
	initCB    *gobreaker.CircuitBreaker[usecase.InitiateResult]
	verifyCB  *gobreaker.CircuitBreaker[usecase.VerifyResult]
}

// タイムアウトは呼び出し側のcontextで決める
func NewChapaGateway(baseURL string, secretKey string, httpClient *http.Client, bs BreakerSettings, logger *slog.Logger) *ChapaGateway {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &ChapaGateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      httpClient,
		initCB:    newBreaker[usecase.InitiateResult]("chapa-initialize", bs, logger),
		verifyCB:  newBreaker[usecase.VerifyResult]("chapa-verify", bs, logger),
	}
}

type chapaCustomization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type chapaInitializeRequest struct {
	Amount        string             `json:"amount"`
	Currency      string             `json:"currency"`
	Email         string             `json:"email"`
	FirstName     string             `json:"first_name"`
	LastName      string             `json:"last_name"`
	PhoneNumber   string             `json:"phone_number,omitempty"`
	TxRef         string             `json:"tx_ref"`
	CallbackURL   string             `json:"callback_url"`
	ReturnURL     string             `json:"return_url"`
	Customization chapaCustomization `json:"customization"`
}

// messageは文字列かオブジェクトで返ってくる
type chapaEnvelope struct {
	Message json.RawMessage `json:"message"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

type chapaCheckoutData struct {
	CheckoutURL string `json:"checkout_url"`
}

type chapaVerifyData struct {
	TxRef    string          `json:"tx_ref"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (g *ChapaGateway) Initiate(ctx context.Context, req usecase.InitiateRequest) (usecase.InitiateResult, error) {
	return execute(g.initCB, func() (usecase.InitiateResult, error) {
		body := chapaInitializeRequest{
			Amount:      req.Amount.StringFixed(2),
			Currency:    req.Currency,
			Email:       req.Email,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			PhoneNumber: req.Phone,
			TxRef:       req.TxRef,
			CallbackURL: req.CallbackURL,
			ReturnURL:   req.ReturnURL,
			Customization: chapaCustomization{
				Title:       "Payment",
				Description: "Order " + req.TxRef,
			},
		}

		env, err := g.do(ctx, http.MethodPost, "/v1/transaction/initialize", body)
		if err != nil {
			return usecase.InitiateResult{}, err
		}

		var data chapaCheckoutData
		if err := json.Unmarshal(env.Data, &data); err != nil || data.CheckoutURL == "" {
			return usecase.InitiateResult{}, fmt.Errorf("%w: chapa returned no checkout url", model.ErrPaymentServiceUnavailable)
		}
		return usecase.InitiateResult{CheckoutURL: data.CheckoutURL}, nil
	})
}

func (g *ChapaGateway) Verify(ctx context.Context, txRef string) (usecase.VerifyResult, error) {
	return execute(g.verifyCB, func() (usecase.VerifyResult, error) {
		env, err := g.do(ctx, http.MethodGet, "/v1/transaction/verify/"+url.PathEscape(txRef), nil)
		if err != nil {
			return usecase.VerifyResult{}, err
		}

		var data chapaVerifyData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return usecase.VerifyResult{}, fmt.Errorf("%w: broken verify response", model.ErrPaymentServiceUnavailable)
		}
		return usecase.VerifyResult{
			TxRef:    data.TxRef,
			Status:   strings.ToLower(data.Status),
			Amount:   data.Amount,
			Currency: data.Currency,
		}, nil
	})
}

// 2xx以外は、status=failedなら拒否（メッセージつき）。それ以外はUnavailable
func (g *ChapaGateway) do(ctx context.Context, method string, path string, body interface{}) (chapaEnvelope, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return chapaEnvelope{}, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return chapaEnvelope{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := g.http.Do(req)
	if err != nil {
		return chapaEnvelope{}, classifyTransportError(ctx, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return chapaEnvelope{}, classifyTransportError(ctx, err)
	}

	if res.StatusCode >= 500 {
		return chapaEnvelope{}, fmt.Errorf("%w: chapa %d", model.ErrPaymentServiceUnavailable, res.StatusCode)
	}

	var env chapaEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return chapaEnvelope{}, fmt.Errorf("%w: chapa %d", model.ErrPaymentServiceUnavailable, res.StatusCode)
	}

	if res.StatusCode >= 300 || !strings.EqualFold(env.Status, "success") {
		if declined(res.StatusCode, env.Status) {
			return chapaEnvelope{}, model.NewPaymentError(model.ErrPaymentDeclined, messageText(env.Message))
		}
		return chapaEnvelope{}, fmt.Errorf("%w: chapa %d %s", model.ErrPaymentServiceUnavailable, res.StatusCode, messageText(env.Message))
	}
	return env, nil
}

// 拒否として扱うのは、リクエスト内容を理由にstatus=failedが返ったときだけ。
// 401（こちらの設定ミス）・408・429は一時的な障害
func declined(code int, status string) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return code < 500 && strings.EqualFold(status, "failed")
}

func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	//{"field": ["msg"]} の形
	var fields map[string][]string
	if err := json.Unmarshal(raw, &fields); err == nil {
		parts := make([]string, 0, len(fields))
		for _, msgs := range fields {
			parts = append(parts, strings.Join(msgs, " "))
		}
		return strings.Join(parts, " ")
	}
	return string(raw)
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", model.ErrPaymentTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", model.ErrPaymentTimeout, err)
	}
	return fmt.Errorf("%w: %v", model.ErrPaymentServiceUnavailable, err)
}
