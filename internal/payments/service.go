package payments

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fredrickBO/TwendeBus/internal/bookings"
	"github.com/fredrickBO/TwendeBus/internal/notifications"
	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/database"
	"github.com/fredrickBO/TwendeBus/internal/shared/identity"
	"github.com/fredrickBO/TwendeBus/internal/wallet"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Daraja's single STK push ceiling
var maxTopUp = decimal.NewFromInt(150000)

// Outcome describes what a callback did. It is logged and never returned to
// the gateway.
type Outcome string

const (
	OutcomeMalformed        Outcome = "ignored_malformed"
	OutcomeUnknown          Outcome = "ignored_unknown"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeTopUpSettled     Outcome = "topup_settled"
	OutcomeTopUpFailed      Outcome = "topup_failed"
	OutcomeBookingConfirmed Outcome = "booking_confirmed"
	OutcomeBookingRefunded  Outcome = "booking_refunded"
	OutcomePaymentFailed    Outcome = "payment_failed"
	OutcomeError            Outcome = "error"
)

type Service interface {
	// InitiateMpesaTopUp prompts the phone for payment and records a pending
	// deposit keyed by the checkout request id.
	InitiateMpesaTopUp(ctx context.Context, caller identity.Caller, req TopUpRequest) (*InitiateResponse, error)

	// InitiateMpesaBookingPayment prompts the phone to pay a pending booking
	InitiateMpesaBookingPayment(ctx context.Context, caller identity.Caller, bookingID uuid.UUID, req BookingPaymentRequest) (*InitiateResponse, error)

	// HandleCallback applies a gateway result. It never fails; replays and
	// unknown or malformed payloads change nothing.
	HandleCallback(ctx context.Context, raw []byte) Outcome
}

type service struct {
	gateway   Gateway
	runner    *database.TxRunner
	ledger    *wallet.Ledger
	publisher notifications.Publisher
	log       *logger.Logger
}

func NewService(gateway Gateway, runner *database.TxRunner, ledger *wallet.Ledger, publisher notifications.Publisher) Service {
	return &service{
		gateway:   gateway,
		runner:    runner,
		ledger:    ledger,
		publisher: publisher,
		log:       logger.GetDefault(),
	}
}

func (s *service) InitiateMpesaTopUp(ctx context.Context, caller identity.Caller, req TopUpRequest) (*InitiateResponse, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apperrors.InvalidArgument("amount must be greater than zero")
	}
	if req.Amount.GreaterThan(maxTopUp) {
		return nil, apperrors.InvalidArgument("amount exceeds the M-Pesa limit of KES %s", maxTopUp.String())
	}
	phone, err := NormalizeMSISDN(req.PhoneNumber)
	if err != nil {
		return nil, err
	}
	amount := req.Amount.Ceil()

	charge, err := s.gateway.InitiateCharge(ctx, ChargeRequest{
		Amount:      amount,
		PhoneNumber: phone,
		Reference:   "TOPUP",
		Description: "Wallet top-up",
	})
	if err != nil {
		return nil, err
	}

	err = s.runner.Run(ctx, func(tx *database.Tx) error {
		_, err := s.ledger.RecordPending(tx, caller.UserID, amount, wallet.Entry{
			ID:          charge.CheckoutRequestID,
			Details:     "M-Pesa top-up",
			PhoneNumber: phone,
		})
		return err
	})
	if err != nil {
		// The customer has been prompted but the callback will find nothing
		s.logUnrecordedCharge(ctx, "top-up", caller, charge, amount, err)
		return nil, err
	}

	return &InitiateResponse{
		Success:           true,
		Message:           "Check your phone and enter your M-Pesa PIN to complete the top-up.",
		CheckoutRequestID: charge.CheckoutRequestID,
	}, nil
}

func (s *service) InitiateMpesaBookingPayment(ctx context.Context, caller identity.Caller, bookingID uuid.UUID, req BookingPaymentRequest) (*InitiateResponse, error) {
	if err := caller.Authenticated(); err != nil {
		return nil, err
	}
	phone, err := NormalizeMSISDN(req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	// Validate before prompting the customer. No lock is held across the
	// gateway call.
	var amount decimal.Decimal
	err = s.runner.Run(ctx, func(tx *database.Tx) error {
		booking, err := s.payableBooking(tx, caller, bookingID)
		if err != nil {
			return err
		}
		amount = booking.FarePaid
		return nil
	})
	if err != nil {
		return nil, err
	}

	charge, err := s.gateway.InitiateCharge(ctx, ChargeRequest{
		Amount:      amount,
		PhoneNumber: phone,
		Reference:   "TB" + strings.ToUpper(bookingID.String()[:8]),
		Description: "Bus fare",
	})
	if err != nil {
		return nil, err
	}

	// The booking may have expired while the prompt was being sent. The
	// checkout is recorded regardless so a late payment is refunded to the
	// wallet. Each prompt keeps its own row.
	err = s.runner.Run(ctx, func(tx *database.Tx) error {
		booking, err := bookings.LockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		_, err = bookings.RecordCheckout(tx, booking, charge.MerchantRequestID, charge.CheckoutRequestID)
		return err
	})
	if err != nil {
		s.logUnrecordedCharge(ctx, "booking", caller, charge, amount, err)
		return nil, err
	}

	return &InitiateResponse{
		Success:           true,
		Message:           "Check your phone and enter your M-Pesa PIN to pay for your booking.",
		CheckoutRequestID: charge.CheckoutRequestID,
	}, nil
}

func (s *service) logUnrecordedCharge(ctx context.Context, purpose string, caller identity.Caller, charge *ChargeResult, amount decimal.Decimal, err error) {
	s.log.ErrorContext(ctx, "M-Pesa prompt sent but not recorded",
		slog.String("purpose", purpose),
		slog.String("checkout_request_id", charge.CheckoutRequestID),
		slog.String("merchant_request_id", charge.MerchantRequestID),
		slog.String("user_id", caller.UserID.String()),
		slog.String("amount", amount.String()),
		slog.String("error", err.Error()),
	)
}

func (s *service) payableBooking(tx *database.Tx, caller identity.Caller, bookingID uuid.UUID) (*bookings.Booking, error) {
	booking, err := bookings.LockBooking(tx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != caller.UserID {
		return nil, apperrors.PermissionDenied("booking belongs to another user")
	}
	if booking.Status != bookings.StatusPending {
		return nil, apperrors.FailedPrecondition("booking is %s, only pending bookings can be paid", booking.Status)
	}
	return booking, nil
}

func (s *service) HandleCallback(ctx context.Context, raw []byte) Outcome {
	cb, err := ParseCallback(raw)
	if err != nil {
		s.log.Warn("ignoring malformed M-Pesa callback", slog.String("error", err.Error()))
		return OutcomeMalformed
	}

	// Finish the work even if the gateway hangs up
	ctx = context.WithoutCancel(ctx)

	var outcome Outcome
	err = s.runner.Run(ctx, func(tx *database.Tx) error {
		var err error
		outcome, err = s.applyCallback(tx, cb)
		return err
	})
	if err != nil {
		s.log.Error("failed to apply M-Pesa callback",
			slog.String("checkout_request_id", cb.CheckoutRequestID),
			slog.String("error", err.Error()),
		)
		outcome = OutcomeError
	}

	s.log.LogPaymentCallback(ctx, cb.CheckoutRequestID, cb.ResultCode, string(outcome))
	return outcome
}

func (s *service) applyCallback(tx *database.Tx, cb *StkCallback) (Outcome, error) {
	txn, err := s.ledger.Find(tx, cb.CheckoutRequestID)
	if err != nil {
		return "", err
	}
	if txn != nil && txn.Type == wallet.TypeDeposit {
		return s.applyTopUp(tx, cb, txn)
	}

	checkout, booking, err := bookings.LockCheckout(tx, cb.CheckoutRequestID)
	if err != nil {
		return "", err
	}
	if checkout == nil {
		if cb.Succeeded() {
			// Money moved that nothing here asked for
			s.log.Error("successful M-Pesa payment matches no checkout",
				slog.String("checkout_request_id", cb.CheckoutRequestID),
				slog.String("amount", cb.Amount().String()),
				slog.String("receipt", cb.Receipt()),
				slog.String("phone", cb.PhoneNumber()),
			)
		}
		return OutcomeUnknown, nil
	}
	return s.applyBookingPayment(tx, cb, checkout, booking)
}

func (s *service) applyTopUp(tx *database.Tx, cb *StkCallback, txn *wallet.Transaction) (Outcome, error) {
	if !cb.Succeeded() {
		changed, err := s.ledger.Fail(tx, txn.ID, cb.ResultDesc)
		if err != nil || !changed {
			return OutcomeDuplicate, err
		}
		notifications.PublishAfterCommit(tx, s.publisher, notifications.TopUpFailed(txn.UserID, txn.Amount, cb.ResultDesc))
		return OutcomeTopUpFailed, nil
	}

	settled, credited, err := s.ledger.Settle(tx, txn.ID, cb.Receipt())
	if err != nil || !credited {
		return OutcomeDuplicate, err
	}
	notifications.PublishAfterCommit(tx, s.publisher, notifications.TopUpCompleted(settled.UserID, settled.Amount, settled.MpesaReceipt))
	return OutcomeTopUpSettled, nil
}

// applyBookingPayment handles a result for one checkout of a booking. A
// payment confirms the booking only while it is pending; any other payment
// is credited back to the wallet under the checkout id.
func (s *service) applyBookingPayment(tx *database.Tx, cb *StkCallback, checkout *bookings.Checkout, booking *bookings.Booking) (Outcome, error) {
	if checkout.Settled() {
		return OutcomeDuplicate, nil
	}

	if !cb.Succeeded() {
		// The booking stays pending; the reconciler releases it on expiry
		if err := bookings.SettleCheckout(tx, checkout, bookings.CheckoutFailed, "", cb.ResultDesc); err != nil {
			return "", err
		}
		return OutcomePaymentFailed, nil
	}

	if booking.Status == bookings.StatusPending {
		if err := bookings.SettleCheckout(tx, checkout, bookings.CheckoutPaid, cb.Receipt(), cb.ResultDesc); err != nil {
			return "", err
		}
		if err := bookings.Transition(tx, booking, bookings.StatusConfirmed, nil); err != nil {
			return "", err
		}
		notifications.PublishAfterCommit(tx, s.publisher,
			notifications.BookingConfirmed(booking.UserID, booking.ID, booking.SeatNumbers(), booking.FarePaid))
		return OutcomeBookingConfirmed, nil
	}

	// Expired, cancelled, or already paid by another checkout or the wallet
	details := "Refund of M-Pesa payment received after the booking expired"
	if booking.Status.IsPaid() {
		details = "Refund of duplicate M-Pesa payment for a booking already paid"
	}
	_, err := s.ledger.Credit(tx, booking.UserID, checkout.Amount, wallet.TypeRefund, wallet.Entry{
		ID:        checkout.CheckoutRequestID,
		BookingID: &booking.ID,
		Details:   details,
		Receipt:   cb.Receipt(),
	})
	if err != nil {
		return "", err
	}
	if err := bookings.SettleCheckout(tx, checkout, bookings.CheckoutRefunded, cb.Receipt(), cb.ResultDesc); err != nil {
		return "", err
	}
	notifications.PublishAfterCommit(tx, s.publisher,
		notifications.RefundIssued(booking.UserID, booking.ID, checkout.Amount))
	return OutcomeBookingRefunded, nil
}
