package midtrans

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"testing"

	midtransapi "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/course-api/internal/domain/entity"
	"github.com/yourusername/course-api/internal/payment"
	apperrors "github.com/yourusername/course-api/internal/pkg/errors"
)

type fakeSnap struct {
	lastReq *snap.Request
	err     *midtransapi.Error
}

func (f *fakeSnap) CreateTransaction(req *snap.Request) (*snap.Response, *midtransapi.Error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &snap.Response{Token: "tok_1", RedirectURL: "https://app.sandbox.midtrans.com/snap/v2/vtweb/tok_1"}, nil
}

type fakeStatus struct {
	status *coreapi.TransactionStatusResponse
}

func (f *fakeStatus) CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, *midtransapi.Error) {
	return f.status, nil
}

func sign(orderID, statusCode, gross, key string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + gross + key))
	return hex.EncodeToString(sum[:])
}

func TestInitiate(t *testing.T) {
	s := &fakeSnap{}
	g := &Gateway{snap: s, serverKey: "sk", currency: "IDR"}
	plan := &entity.PaymentPlan{Type: entity.PaymentPlanTypeOneTime, OneTimeAmount: decimal.NewFromInt(150000)}

	session, err := g.Initiate(context.Background(), payment.InitiateParams{
		Metadata: payment.Metadata{InvoiceID: "inv1", MembershipID: "m1"},
		Plan:     plan,
		Product:  entity.Product{ID: "c1", Title: "Kursus Go"},
		Origin:   "https://school.example",
		Amount:   plan.ChargeAmount(),
	})
	require.NoError(t, err)
	assert.Equal(t, "tok_1", session.ID)
	assert.Equal(t, "inv1", s.lastReq.TransactionDetails.OrderID)
	assert.Equal(t, int64(150000), s.lastReq.TransactionDetails.GrossAmt)
	assert.Equal(t, "m1", s.lastReq.CustomField1)

	sub := &entity.PaymentPlan{Type: entity.PaymentPlanTypeSubscription, SubscriptionMonthlyAmount: decimal.NewFromInt(10)}
	_, err = g.Initiate(context.Background(), payment.InitiateParams{Plan: sub, Amount: sub.ChargeAmount()})
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)

	s.err = &midtransapi.Error{Message: "boom", StatusCode: 500}
	_, err = g.Initiate(context.Background(), payment.InitiateParams{Plan: plan, Amount: plan.ChargeAmount()})
	assert.ErrorIs(t, err, apperrors.ErrGateway)
}

func TestParseEvent(t *testing.T) {
	st := &fakeStatus{status: &coreapi.TransactionStatusResponse{TransactionID: "tx1", TransactionStatus: "settlement", OrderID: "inv1"}}
	g := &Gateway{status: st, serverKey: "sk", currency: "IDR"}

	body := fmt.Sprintf(`{"transaction_id":"tx1","transaction_status":"settlement","order_id":"inv1","status_code":"200","gross_amount":"150000.00","signature_key":"%s"}`,
		sign("inv1", "200", "150000.00", "sk"))
	ev, err := g.ParseEvent(context.Background(), []byte(body), nil)
	require.NoError(t, err)
	cc, ok := ev.(payment.CheckoutCompleted)
	require.True(t, ok)
	assert.True(t, cc.Paid)
	assert.Equal(t, "inv1", cc.Metadata.InvoiceID)
	assert.Equal(t, "tx1:settlement", cc.EventID())

	bad := `{"transaction_id":"tx1","order_id":"inv1","status_code":"200","gross_amount":"1","signature_key":"deadbeef"}`
	_, err = g.ParseEvent(context.Background(), []byte(bad), nil)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = g.ParseEvent(context.Background(), []byte(`{}`), nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestToEvent(t *testing.T) {
	meta := payment.Metadata{InvoiceID: "inv1"}
	assert.IsType(t, payment.CheckoutExpired{}, toEvent("e", meta, "expire", "", "tx"))
	assert.IsType(t, payment.CheckoutExpired{}, toEvent("e", meta, "deny", "", "tx"))
	assert.IsType(t, payment.Ignored{}, toEvent("e", meta, "pending", "", "tx"))
	assert.IsType(t, payment.Ignored{}, toEvent("e", meta, "capture", "challenge", "tx"))
	assert.True(t, payment.IsSuccessfulPayment(toEvent("e", meta, "capture", "accept", "tx")))
}
