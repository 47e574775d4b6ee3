package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// PaymentConfirmUsecase はリダイレクト決済の確認（webhook・ブラウザ戻り）を行う。
// 同じtx_refが何度来ても注文は1件だけ
type PaymentConfirmUsecase struct {
	tx            repo.TransactionManager
	carts         repo.CartStore
	pendings      repo.PendingPaymentRepository
	gateway       RedirectGateway
	webhookSecret string
	timeout       time.Duration
	logger        *slog.Logger

	newSignature func() string
}

func NewPaymentConfirmUsecase(
	tx repo.TransactionManager,
	carts repo.CartStore,
	pendings repo.PendingPaymentRepository,
	gateway RedirectGateway,
	webhookSecret string,
	timeout time.Duration,
	logger *slog.Logger,
) *PaymentConfirmUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentConfirmUsecase{
		tx:            tx,
		carts:         carts,
		pendings:      pendings,
		gateway:       gateway,
		webhookSecret: webhookSecret,
		timeout:       timeout,
		logger:        logger,
		newSignature:  NewReceiptSignature,
	}
}

func (u *PaymentConfirmUsecase) WithSignatureGenerator(fn func() string) *PaymentConfirmUsecase {
	u.newSignature = fn
	return u
}

type webhookPayload struct {
	TxRef  string `json:"tx_ref"`
	TrxRef string `json:"trx_ref"`
}

// 署名を確認してからtx_refを取り出し、確認処理へ
func (u *PaymentConfirmUsecase) HandleWebhook(ctx context.Context, body []byte, signature string) (int64, error) {
	if u.webhookSecret != "" && !VerifyWebhookSignature(u.webhookSecret, body, signature) {
		return 0, NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return 0, NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	txRef := strings.TrimSpace(p.TxRef)
	if txRef == "" {
		txRef = strings.TrimSpace(p.TrxRef)
	}
	if txRef == "" {
		return 0, NewHTTPError(http.StatusBadRequest, "tx_ref required")
	}

	return u.Confirm(ctx, txRef)
}

// hex(HMAC-SHA256(secret, body))と比較
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// ゲートウェイに支払い状況を問い合わせ、成功なら注文を作る。確定済みなら同じ注文IDを返す
func (u *PaymentConfirmUsecase) Confirm(ctx context.Context, txRef string) (int64, error) {
	if u.gateway == nil {
		return 0, toHTTPError(model.ErrInvalidPaymentMethod)
	}
	log := u.logger.With("tx_ref", txRef)

	pending, err := u.pendings.FindByTxRef(ctx, txRef)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	switch pending.Status {
	case model.PendingPaymentConfirmed:
		if pending.OrderID != nil {
			return *pending.OrderID, nil
		}
		return 0, NewHTTPError(http.StatusInternalServerError, "confirmed payment without order")
	case model.PendingPaymentFailed, model.PendingPaymentConflict:
		return 0, NewHTTPError(http.StatusConflict, "payment can no longer be confirmed")
	}

	if err := u.verify(ctx, pending); err != nil {
		log.Warn("payment verification failed", "err", err)
		return 0, err
	}

	var lines []model.CartLine
	if err := json.Unmarshal([]byte(pending.CartJSON), &lines); err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "broken cart snapshot")
	}
	draft := orderDraft{
		Buyer:  pending.Buyer,
		Method: pending.PaymentMethod,
		Lines:  lines,
		Total:  pending.Amount,
	}

	var orderID int64
	already := false
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//webhookとブラウザ戻りが同時に来たらここで待つ
		locked, err := r.PendingPayments().FindByTxRefForUpdate(ctx, txRef)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		switch locked.Status {
		case model.PendingPaymentConfirmed:
			if locked.OrderID == nil {
				return NewHTTPError(http.StatusInternalServerError, "confirmed payment without order")
			}
			orderID = *locked.OrderID
			already = true
			return nil
		case model.PendingPaymentInitiated:
		default:
			return NewHTTPError(http.StatusConflict, "payment can no longer be confirmed")
		}

		id, err := persistOrder(ctx, r, draft, u.newSignature())
		if err != nil {
			return err
		}
		if err := r.PendingPayments().UpdateStatus(ctx, locked.ID, model.PendingPaymentConfirmed, &id); err != nil {
			return err
		}
		orderID = id
		return nil
	})
	if errors.Is(err, model.ErrStockConflict) {
		//支払いは済んでいるので記録を残す（ロールバックの外で）
		if uerr := u.pendings.UpdateStatus(ctx, pending.ID, model.PendingPaymentConflict, nil); uerr != nil {
			log.Error("pending payment update failed", "err", uerr)
		}
		log.Error("paid order could not be fulfilled", "err", err)
		return 0, toHTTPError(err)
	}
	if err != nil {
		log.Error("payment confirmation failed", "err", err)
		return 0, toHTTPError(err)
	}
	if already {
		return orderID, nil
	}

	//支払った分の行だけ消す（リダイレクト中に足された行は残す）
	_, err = u.carts.Update(ctx, pending.SessionID, func(cart *model.Cart) error {
		for _, l := range lines {
			cart.Remove(l.Key)
		}
		return nil
	})
	if err != nil {
		log.Warn("cart clear failed", "order_id", orderID, "err", err)
	}
	log.Info("redirect payment confirmed", "order_id", orderID)

	return orderID, nil
}

// 成功ステータスで金額が一致していること。FAILEDにするのはstatus=failedか金額不一致のときだけ
func (u *PaymentConfirmUsecase) verify(ctx context.Context, pending model.PendingPayment) error {
	vctx := ctx
	if u.timeout > 0 {
		var cancel context.CancelFunc
		vctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	//問い合わせ自体の失敗では状態を変えない（次のwebhookや戻りで再確認できる）
	res, err := u.gateway.Verify(vctx, pending.TxRef)
	if err != nil {
		return toHTTPError(classifyPaymentError(vctx, err))
	}

	if res.Status != VerifyStatusSuccess {
		if res.Status == "failed" {
			u.markFailed(ctx, pending)
			return toHTTPError(model.NewPaymentError(model.ErrPaymentDeclined, "Payment failed."))
		}
		//まだ支払い途中
		return NewHTTPError(http.StatusConflict, "payment is not completed yet")
	}

	if !res.Amount.Equal(pending.Amount) {
		u.markFailed(ctx, pending)
		return toHTTPError(model.NewPaymentError(model.ErrPaymentDeclined, "Paid amount does not match the order total."))
	}
	return nil
}

func (u *PaymentConfirmUsecase) markFailed(ctx context.Context, pending model.PendingPayment) {
	if err := u.pendings.UpdateStatus(ctx, pending.ID, model.PendingPaymentFailed, nil); err != nil {
		u.logger.Error("pending payment update failed", "tx_ref", pending.TxRef, "err", err)
	}
}
