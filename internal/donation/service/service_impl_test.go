package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NanaWhan/RamadanApi/internal/bus"
	"github.com/NanaWhan/RamadanApi/internal/donation/domain"
	"github.com/NanaWhan/RamadanApi/internal/donation/repository"
	"github.com/NanaWhan/RamadanApi/internal/events"
	"github.com/NanaWhan/RamadanApi/internal/gateway"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeGateway struct {
	mu        sync.Mutex
	statuses  map[string]string
	verifyErr error
}

func (f *fakeGateway) setStatus(reference, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses == nil {
		f.statuses = make(map[string]string)
	}
	f.statuses[reference] = status
}

func (f *fakeGateway) Verify(_ context.Context, reference string) (*gateway.VerifyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	status, ok := f.statuses[reference]
	if !ok {
		status = "pending"
	}
	return &gateway.VerifyResult{Reference: reference, Status: status}, nil
}

func (f *fakeGateway) CreatePayLink(_ context.Context, req gateway.PayLinkRequest) (*gateway.PayLink, error) {
	return &gateway.PayLink{
		AuthorizationURL: "https://checkout.example.com/" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

type completedRecorder struct {
	mu     sync.Mutex
	events []events.DonationCompleted
}

func (r *completedRecorder) handle(_ context.Context, msg any) error {
	completed, ok := msg.(events.DonationCompleted)
	if !ok {
		return errors.New("unexpected payload")
	}
	r.mu.Lock()
	r.events = append(r.events, completed)
	r.mu.Unlock()
	return nil
}

func (r *completedRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type testHarness struct {
	svc      domain.Service
	db       *gorm.DB
	gateway  *fakeGateway
	bus      *bus.Bus
	recorder *completedRecorder
}

func setupService(t *testing.T, name string) *testHarness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// A single connection serializes writers; sqlite cannot take concurrent
	// write locks the way postgres does.
	sqlDB.SetMaxOpenConns(1)
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS donations (
			id BIGINT PRIMARY KEY,
			amount NUMERIC NOT NULL,
			currency TEXT NOT NULL DEFAULT 'GHS',
			payment_method TEXT NOT NULL DEFAULT '',
			transaction_reference TEXT NOT NULL UNIQUE,
			payment_status TEXT NOT NULL DEFAULT 'PENDING',
			donor_name TEXT NOT NULL DEFAULT '',
			donor_email TEXT NOT NULL DEFAULT '',
			donor_phone TEXT NOT NULL DEFAULT '',
			campaign_source TEXT NOT NULL DEFAULT '',
			donated_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS gateway_webhook_events (
			id BIGINT PRIMARY KEY,
			event_type TEXT NOT NULL,
			reference TEXT NOT NULL,
			payload TEXT NOT NULL,
			received_at DATETIME NOT NULL
		)`,
	} {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	b := bus.New(zap.NewNop(), bus.DefaultConfig())
	t.Cleanup(b.Stop)

	recorder := &completedRecorder{}
	if err := b.Subscribe(events.TopicDonationCompleted, "recorder", recorder.handle); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	gw := &fakeGateway{}
	svc := NewService(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    repository.Provide(),
		Gateway: gw,
		Bus:     b,
	})

	return &testHarness{svc: svc, db: db, gateway: gw, bus: b, recorder: recorder}
}

func waitForEvents(t *testing.T, r *completedRecorder, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.count() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("saw %d completion events, want %d", r.count(), want)
}

func createPending(t *testing.T, h *testHarness, amount int64) string {
	t.Helper()
	resp, err := h.svc.Create(context.Background(), domain.CreateDonationRequest{
		Amount:     decimal.NewFromInt(amount),
		DonorName:  "Test Donor",
		DonorPhone: "0551234567",
	})
	if err != nil {
		t.Fatalf("create donation: %v", err)
	}
	return resp.Reference
}

func statusOf(t *testing.T, h *testHarness, reference string) domain.PaymentStatus {
	t.Helper()
	var raw string
	err := h.db.Raw(
		`SELECT payment_status FROM donations WHERE transaction_reference = ?`, reference,
	).Scan(&raw).Error
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	return domain.PaymentStatus(raw)
}

func TestCreateReturnsPayLinkAndPendingRow(t *testing.T) {
	h := setupService(t, "donation_create")

	resp, err := h.svc.Create(context.Background(), domain.CreateDonationRequest{
		Amount:     decimal.NewFromInt(50),
		DonorEmail: "donor@example.com",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Reference == "" || resp.PaymentLink == "" {
		t.Fatalf("incomplete response: %+v", resp)
	}
	if got := statusOf(t, h, resp.Reference); got != domain.StatusPending {
		t.Fatalf("status = %s, want PENDING", got)
	}
}

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	h := setupService(t, "donation_create_invalid")

	_, err := h.svc.Create(context.Background(), domain.CreateDonationRequest{
		Amount: decimal.Zero,
	})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestWebhookSuccessPublishesOnce(t *testing.T) {
	h := setupService(t, "donation_webhook_once")
	reference := createPending(t, h, 50)

	payload := []byte(`{"event":"charge.success"}`)
	for i := 0; i < 3; i++ {
		if err := h.svc.HandleGatewayEvent(context.Background(), "charge.success", reference, payload); err != nil {
			t.Fatalf("handle webhook: %v", err)
		}
	}

	waitForEvents(t, h.recorder, 1)
	time.Sleep(50 * time.Millisecond)
	if got := h.recorder.count(); got != 1 {
		t.Fatalf("duplicate webhooks produced %d events, want 1", got)
	}
	if got := statusOf(t, h, reference); got != domain.StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", got)
	}
}

func TestWebhookUnknownReferenceIsNoOp(t *testing.T) {
	h := setupService(t, "donation_webhook_unknown")

	if err := h.svc.HandleGatewayEvent(context.Background(), "charge.success", "RR-DON-deadbeef", []byte(`{}`)); err != nil {
		t.Fatalf("unknown reference must not error: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := h.recorder.count(); got != 0 {
		t.Fatalf("unknown reference produced %d events", got)
	}
}

func TestWebhookFailureIsCorrectableToSuccess(t *testing.T) {
	h := setupService(t, "donation_failed_correctable")
	reference := createPending(t, h, 50)

	if err := h.svc.HandleGatewayEvent(context.Background(), "charge.failed", reference, []byte(`{}`)); err != nil {
		t.Fatalf("handle failed webhook: %v", err)
	}
	if got := statusOf(t, h, reference); got != domain.StatusFailed {
		t.Fatalf("status = %s, want FAILED", got)
	}

	if err := h.svc.HandleGatewayEvent(context.Background(), "charge.success", reference, []byte(`{}`)); err != nil {
		t.Fatalf("handle success webhook: %v", err)
	}
	waitForEvents(t, h.recorder, 1)
	if got := statusOf(t, h, reference); got != domain.StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", got)
	}
}

func TestSuccessIsSticky(t *testing.T) {
	h := setupService(t, "donation_sticky")
	reference := createPending(t, h, 50)

	if _, err := h.svc.ConfirmSuccess(context.Background(), reference); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := h.svc.HandleGatewayEvent(context.Background(), "charge.failed", reference, []byte(`{}`)); err != nil {
		t.Fatalf("handle failed webhook: %v", err)
	}
	if got := statusOf(t, h, reference); got != domain.StatusSuccess {
		t.Fatalf("status downgraded to %s", got)
	}
}

func TestCheckStatusPromotesOnGatewaySuccess(t *testing.T) {
	h := setupService(t, "donation_checkstatus")
	reference := createPending(t, h, 50)
	h.gateway.setStatus(reference, gateway.StatusSuccess)

	result, err := h.svc.CheckStatus(context.Background(), reference)
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if result.PaymentStatus != domain.StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", result.PaymentStatus)
	}
	waitForEvents(t, h.recorder, 1)
}

func TestCheckStatusSurvivesGatewayOutage(t *testing.T) {
	h := setupService(t, "donation_checkstatus_outage")
	reference := createPending(t, h, 50)
	h.gateway.verifyErr = gateway.ErrVerifyFailed

	result, err := h.svc.CheckStatus(context.Background(), reference)
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if result.PaymentStatus != domain.StatusPending {
		t.Fatalf("status = %s, want PENDING", result.PaymentStatus)
	}
	if result.GatewayStatus != "unknown" {
		t.Fatalf("gateway status = %s, want unknown", result.GatewayStatus)
	}
}

func TestCheckStatusUnknownReference(t *testing.T) {
	h := setupService(t, "donation_checkstatus_unknown")

	_, err := h.svc.CheckStatus(context.Background(), "RR-DON-deadbeef")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestVerifyPaymentRejectsUnpaid(t *testing.T) {
	h := setupService(t, "donation_verify_reject")
	reference := createPending(t, h, 50)
	h.gateway.setStatus(reference, gateway.StatusFailed)

	err := h.svc.VerifyPayment(context.Background(), reference)
	if !errors.Is(err, domain.ErrVerificationFailed) {
		t.Fatalf("err = %v, want ErrVerificationFailed", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := h.recorder.count(); got != 0 {
		t.Fatalf("rejected verification produced %d events", got)
	}
}

func TestVerifyPaymentConfirms(t *testing.T) {
	h := setupService(t, "donation_verify_ok")
	reference := createPending(t, h, 50)
	h.gateway.setStatus(reference, gateway.StatusSuccess)

	if err := h.svc.VerifyPayment(context.Background(), reference); err != nil {
		t.Fatalf("verify: %v", err)
	}
	waitForEvents(t, h.recorder, 1)
}

func TestForceStatusSuccessRoutesThroughEdgeGuard(t *testing.T) {
	h := setupService(t, "donation_force")
	reference := createPending(t, h, 50)

	if err := h.svc.ForceStatus(context.Background(), reference, domain.StatusSuccess); err != nil {
		t.Fatalf("force: %v", err)
	}
	waitForEvents(t, h.recorder, 1)

	// Forcing again is idempotent for side effects.
	if err := h.svc.ForceStatus(context.Background(), reference, domain.StatusSuccess); err != nil {
		t.Fatalf("force repeat: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := h.recorder.count(); got != 1 {
		t.Fatalf("repeat force produced %d events, want 1", got)
	}
}

func TestForceStatusUnknownReference(t *testing.T) {
	h := setupService(t, "donation_force_unknown")

	err := h.svc.ForceStatus(context.Background(), "RR-DON-deadbeef", domain.StatusFailed)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestConcurrentConfirmationsProduceOneEvent(t *testing.T) {
	h := setupService(t, "donation_concurrent")
	reference := createPending(t, h, 50)

	var wg sync.WaitGroup
	edges := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := h.svc.ConfirmSuccess(context.Background(), reference)
			if err == nil {
				edges <- changed
			}
		}()
	}
	wg.Wait()
	close(edges)

	observed := 0
	for changed := range edges {
		if changed {
			observed++
		}
	}
	if observed != 1 {
		t.Fatalf("%d callers observed the edge, want exactly 1", observed)
	}
	waitForEvents(t, h.recorder, 1)
	time.Sleep(50 * time.Millisecond)
	if got := h.recorder.count(); got != 1 {
		t.Fatalf("concurrent confirmations produced %d events, want 1", got)
	}
}
