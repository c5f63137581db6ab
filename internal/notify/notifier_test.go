package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/NanaWhan/RamadanApi/internal/config"
	"github.com/NanaWhan/RamadanApi/internal/events"
	statsdomain "github.com/NanaWhan/RamadanApi/internal/stats/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeSender struct {
	sent []sentSMS
	err  error
}

type sentSMS struct {
	to      string
	message string
}

func (f *fakeSender) Send(_ context.Context, to, message string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentSMS{to: to, message: message})
	return nil
}

type fakeStats struct {
	mealCost decimal.Decimal
}

func (f *fakeStats) Record(context.Context, decimal.Decimal) error { return nil }

func (f *fakeStats) Get(context.Context) (*statsdomain.Statistics, error) {
	return &statsdomain.Statistics{}, nil
}

func (f *fakeStats) MealsFor(amount decimal.Decimal) int64 {
	return amount.Div(f.mealCost).Floor().IntPart()
}

func newTestNotifier(t *testing.T, sender *fakeSender) *Notifier {
	t.Helper()
	return NewNotifier(Params{
		Log:    zap.NewNop(),
		Sender: sender,
		Stats:  &fakeStats{mealCost: decimal.NewFromInt(5)},
		Cfg:    config.Config{CountryCode: "+233"},
	})
}

func TestDonationCompletedSendsThankYou(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(t, sender)

	err := n.onDonationCompleted(context.Background(), events.DonationCompleted{
		Reference:  "RR-DON-1a2b3c4d",
		Amount:     decimal.NewFromInt(50),
		DonorPhone: "0551234567",
	})
	if err != nil {
		t.Fatalf("onDonationCompleted: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	got := sender.sent[0]
	if got.to != "+233551234567" {
		t.Fatalf("sent to %q, want normalized +233551234567", got.to)
	}
	if !strings.Contains(got.message, "50.00 GHS") {
		t.Fatalf("message missing amount: %q", got.message)
	}
	if !strings.Contains(got.message, "10 meals") {
		t.Fatalf("message missing meal count: %q", got.message)
	}
}

func TestDonationCompletedSkipsWithoutPhone(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(t, sender)

	err := n.onDonationCompleted(context.Background(), events.DonationCompleted{
		Reference: "RR-DON-1a2b3c4d",
		Amount:    decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatalf("onDonationCompleted: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("sent %d messages, want 0", len(sender.sent))
	}
}

func TestDonationCompletedSwallowsSenderFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("gateway down")}
	n := newTestNotifier(t, sender)

	err := n.onDonationCompleted(context.Background(), events.DonationCompleted{
		Reference:  "RR-DON-1a2b3c4d",
		Amount:     decimal.NewFromInt(20),
		DonorPhone: "0551234567",
	})
	if err != nil {
		t.Fatalf("send failure must not propagate, got %v", err)
	}
}

func TestDonationCompletedRejectsWrongPayload(t *testing.T) {
	n := newTestNotifier(t, &fakeSender{})
	if err := n.onDonationCompleted(context.Background(), "not a donation"); err == nil {
		t.Fatal("expected error for unexpected payload type")
	}
}

func TestDonationFormSubmittedNotifiesDonorAndAdmin(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(t, sender)

	err := n.onDonationFormSubmitted(context.Background(), events.DonationFormSubmitted{
		FullName:   "Ama Mensah",
		Email:      "ama@example.com",
		Phone:      "0551234567",
		Amount:     decimal.NewFromInt(100),
		AdminPhone: "0209876543",
	})
	if err != nil {
		t.Fatalf("onDonationFormSubmitted: %v", err)
	}

	if len(sender.sent) != 2 {
		t.Fatalf("sent %d messages, want donor and admin", len(sender.sent))
	}
	if sender.sent[0].to != "+233551234567" {
		t.Fatalf("donor sms to %q", sender.sent[0].to)
	}
	if sender.sent[1].to != "+233209876543" {
		t.Fatalf("admin sms to %q", sender.sent[1].to)
	}
	if !strings.Contains(sender.sent[1].message, "Ama Mensah") {
		t.Fatalf("admin sms missing donor name: %q", sender.sent[1].message)
	}
}

func TestEventRegisteredConfirmation(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(t, sender)

	err := n.onEventRegistered(context.Background(), events.EventRegistered{
		EventID:        1,
		EventTitle:     "Iftar Dinner",
		EventLocation:  "Accra",
		EventDate:      "2026-03-10",
		AttendeeName:   "Kwame",
		AttendeePhone:  "0551234567",
		NumberOfPeople: 3,
	})
	if err != nil {
		t.Fatalf("onEventRegistered: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0].message
	if !strings.Contains(msg, "Iftar Dinner") || !strings.Contains(msg, "Accra") {
		t.Fatalf("confirmation missing event details: %q", msg)
	}
}
