package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

type CheckoutConfig struct {
	//ゲートウェイのcallback/return URLの組み立てに使う
	PublicBaseURL   string
	CardCurrency    string
	GatewayCurrency string
	PaymentTimeout  time.Duration
}

// CheckoutUsecase はカートを支払い→注文確定→カートを空にする、までを行う。
// card / gateway がnilならその支払い方法は無効扱い
type CheckoutUsecase struct {
	tx       repo.TransactionManager
	carts    repo.CartStore
	pendings repo.PendingPaymentRepository
	card     CardProcessor
	gateway  RedirectGateway
	cfg      CheckoutConfig
	logger   *slog.Logger

	newSignature func() string
	now          func() time.Time
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	carts repo.CartStore,
	pendings repo.PendingPaymentRepository,
	card CardProcessor,
	gateway RedirectGateway,
	cfg CheckoutConfig,
	logger *slog.Logger,
) *CheckoutUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutUsecase{
		tx:           tx,
		carts:        carts,
		pendings:     pendings,
		card:         card,
		gateway:      gateway,
		cfg:          cfg,
		logger:       logger,
		newSignature: NewReceiptSignature,
		now:          time.Now,
	}
}

func (u *CheckoutUsecase) WithSignatureGenerator(fn func() string) *CheckoutUsecase {
	u.newSignature = fn
	return u
}

func (u *CheckoutUsecase) WithClock(fn func() time.Time) *CheckoutUsecase {
	u.now = fn
	return u
}

type CheckoutInput struct {
	Name          string
	Email         string
	Phone         string
	City          string
	OtherCity     string
	PaymentMethod string
	CardToken     string
}

type CheckoutOutput struct {
	//リダイレクト決済の場合は0
	OrderID     int64  `json:"order_id,omitempty"`
	RedirectURL string `json:"redirect_url"`
}

func (u *CheckoutUsecase) Checkout(ctx context.Context, sessionID string, in CheckoutInput) (CheckoutOutput, error) {
	if sessionID == "" {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "session required")
	}

	buyer, err := buyerFromInput(in)
	if err != nil {
		return CheckoutOutput{}, err
	}
	method := model.PaymentMethod(strings.TrimSpace(in.PaymentMethod))

	cart, err := u.carts.Load(ctx, sessionID)
	if err != nil {
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "session store error")
	}
	if cart.IsEmpty() {
		return CheckoutOutput{}, toHTTPError(model.ErrEmptyCart)
	}
	total := cart.Total()

	log := u.logger.With("session_id", sessionID, "payment_method", string(method))

	switch {
	case method == model.PaymentMethodCard:
		if u.card == nil {
			return CheckoutOutput{}, toHTTPError(model.ErrInvalidPaymentMethod)
		}
		if strings.TrimSpace(in.CardToken) == "" {
			return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "Card token is required.")
		}
		if err := u.chargeCard(ctx, in.CardToken, total.Shift(2).Round(0).IntPart(), buyer); err != nil {
			log.Warn("card payment failed", "err", err)
			return CheckoutOutput{}, toHTTPError(err)
		}

	case method.IsRedirect():
		if u.gateway == nil {
			return CheckoutOutput{}, toHTTPError(model.ErrInvalidPaymentMethod)
		}
		//注文はゲートウェイの確認後に作る。カートはそのまま
		return u.startRedirectPayment(ctx, sessionID, buyer, method, cart)

	case method == model.PaymentMethodTestSuccess:
		//支払いなしで確定

	default:
		return CheckoutOutput{}, toHTTPError(model.ErrInvalidPaymentMethod)
	}

	var orderID int64
	draft := orderDraft{
		Buyer:  buyer,
		Method: method,
		Lines:  cart.SortedLines(),
		Total:  total,
	}
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		id, err := persistOrder(ctx, r, draft, u.newSignature())
		if err != nil {
			return err
		}
		orderID = id
		return nil
	})
	if err != nil {
		//支払い済みでも保存できなければカートは残す（返金はしない）
		log.Error("order persistence failed", "err", err)
		return CheckoutOutput{}, toHTTPError(err)
	}

	//コミット後にカートを空にする。失敗しても注文は成立している
	if err := u.carts.Clear(ctx, sessionID); err != nil {
		log.Warn("cart clear failed", "order_id", orderID, "err", err)
	}
	log.Info("order placed", "order_id", orderID)

	return CheckoutOutput{OrderID: orderID, RedirectURL: ReceiptURL(orderID)}, nil
}

func (u *CheckoutUsecase) chargeCard(ctx context.Context, token string, amountMinor int64, buyer model.Buyer) error {
	ctx, cancel := u.withPaymentTimeout(ctx)
	defer cancel()

	res, err := u.card.Charge(ctx, ChargeRequest{
		AmountMinor: amountMinor,
		Currency:    u.cfg.CardCurrency,
		Token:       token,
		Description: "Order payment for " + buyer.Name,
	})
	if err != nil {
		return classifyPaymentError(ctx, err)
	}
	if !res.Paid {
		return model.NewPaymentError(model.ErrPaymentDeclined, "Payment was not completed.")
	}
	return nil
}

func (u *CheckoutUsecase) startRedirectPayment(ctx context.Context, sessionID string, buyer model.Buyer, method model.PaymentMethod, cart model.Cart) (CheckoutOutput, error) {
	log := u.logger.With("session_id", sessionID, "payment_method", string(method))

	snapshot, err := json.Marshal(cart.SortedLines())
	if err != nil {
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	total := cart.Total()
	txRef := newTxRef(u.now())

	//先に待ち状態を保存（webhookが先に来ても見つけられるように）
	pending, err := u.pendings.Create(ctx, model.PendingPayment{
		TxRef:         txRef,
		SessionID:     sessionID,
		Buyer:         buyer,
		PaymentMethod: method,
		Amount:        total,
		Currency:      u.cfg.GatewayCurrency,
		CartJSON:      string(snapshot),
		Status:        model.PendingPaymentInitiated,
	})
	if err != nil {
		log.Error("pending payment save failed", "tx_ref", txRef, "err", err)
		return CheckoutOutput{}, toHTTPError(fmt.Errorf("%w: %v", model.ErrPersistenceFailure, err))
	}

	first, last := splitName(buyer.Name)
	base := strings.TrimRight(u.cfg.PublicBaseURL, "/")

	pctx, cancel := u.withPaymentTimeout(ctx)
	defer cancel()

	res, err := u.gateway.Initiate(pctx, InitiateRequest{
		TxRef:       txRef,
		Amount:      total,
		Currency:    u.cfg.GatewayCurrency,
		Email:       buyer.Email,
		FirstName:   first,
		LastName:    last,
		Phone:       buyer.Phone,
		CallbackURL: base + "/payments/chapa/webhook",
		ReturnURL:   base + "/payments/chapa/return/" + txRef,
	})
	if err != nil {
		err = classifyPaymentError(pctx, err)
		if uerr := u.pendings.UpdateStatus(ctx, pending.ID, model.PendingPaymentFailed, nil); uerr != nil {
			log.Error("pending payment update failed", "tx_ref", txRef, "err", uerr)
		}
		log.Warn("gateway initiate failed", "tx_ref", txRef, "err", err)
		return CheckoutOutput{}, toHTTPError(err)
	}

	log.Info("redirect payment initiated", "tx_ref", txRef)
	return CheckoutOutput{RedirectURL: res.CheckoutURL}, nil
}

func (u *CheckoutUsecase) withPaymentTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.cfg.PaymentTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, u.cfg.PaymentTimeout)
}

func buyerFromInput(in CheckoutInput) (model.Buyer, error) {
	city := strings.TrimSpace(in.City)
	if strings.EqualFold(city, "other") {
		city = strings.TrimSpace(in.OtherCity)
	}

	b := model.Buyer{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.TrimSpace(in.Email),
		Phone: strings.TrimSpace(in.Phone),
		City:  city,
	}
	if b.Name == "" || b.Email == "" || b.Phone == "" || b.City == "" {
		return model.Buyer{}, NewHTTPError(http.StatusBadRequest, "Please fill in all required fields.")
	}
	return b, nil
}

// アダプタが分類しきれなかったエラーをDeclined / Unavailable / Timeoutに寄せる
func classifyPaymentError(ctx context.Context, err error) error {
	if errors.Is(err, model.ErrPaymentDeclined) ||
		errors.Is(err, model.ErrPaymentServiceUnavailable) ||
		errors.Is(err, model.ErrPaymentTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", model.ErrPaymentTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", model.ErrPaymentTimeout, err)
	}
	return fmt.Errorf("%w: %v", model.ErrPaymentServiceUnavailable, err)
}

// TX-<yyyymmddHHMMSS>-<12桁の16進>
func newTxRef(now time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TX-" + now.Format("20060102150405") + "-" + hex[:12]
}

func splitName(name string) (string, string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], fields[len(fields)-1]
}
