package whatsapp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/farebook/internal/config"
	"github.com/mamadbah2/farebook/internal/domain/models"
	client "github.com/mamadbah2/farebook/pkg/clients/whatsapp"
)

type fakeClient struct {
	sent []client.SendTextMessageRequest
	err  error
}

func (f *fakeClient) SendTextMessage(ctx context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected a deadline")
	}
	f.sent = append(f.sent, req)
	if f.err != nil {
		return nil, f.err
	}
	return &client.SendTextMessageResponse{}, nil
}

func TestNotifyForwarded(t *testing.T) {
	fake := &fakeClient{}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{AdminNumber: "9779811111111"}, fake, nil)

	entry := models.Entry{
		EntryID:     42,
		Type:        models.EntryBooking,
		Date:        "2024-03-10",
		EndDate:     "2024-03-12",
		Vehicle:     "Ba 2 Kha 1234",
		CashAmount:  decimal.RequireFromString("5000"),
		BankAmount:  decimal.RequireFromString("15000"),
		SubmittedBy: "ram",
		EntryStatus: models.StatusForwardedBank,
	}
	if err := svc.NotifyForwarded(context.Background(), entry, models.User{Username: "hari"}); err != nil {
		t.Fatalf("NotifyForwarded: %v", err)
	}

	if len(fake.sent) != 1 || fake.sent[0].To != "9779811111111" {
		t.Fatalf("unexpected sends %+v", fake.sent)
	}
	body := fake.sent[0].Body
	for _, want := range []string{"hari forwarded bank 15000.00", "ram's booking entry", "2024-03-10 to 2024-03-12", "#42", "Ba 2 Kha 1234"} {
		if !strings.Contains(body, want) {
			t.Errorf("message %q missing %q", body, want)
		}
	}
}

func TestSendReportPropagatesErrors(t *testing.T) {
	fake := &fakeClient{err: errors.New("rate limited")}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{AdminNumber: "1"}, fake, nil)

	err := svc.SendReport(context.Background(), "weekly")
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
	if fake.sent[0].Body != "weekly" {
		t.Fatalf("unexpected body %q", fake.sent[0].Body)
	}
}

func TestForwardedMessageCash(t *testing.T) {
	msg := ForwardedMessage(models.Entry{
		EntryID: 7, Type: models.EntryDaily, Date: "2024-03-04", EndDate: "2024-03-04",
		CashAmount: decimal.RequireFromString("3500.5"), SubmittedBy: "ram", EntryStatus: models.StatusForwardedCash,
	}, models.User{Username: "hari"})

	want := "hari forwarded cash 3500.50 of ram's daily entry (2024-03-04, #7). Please confirm."
	if msg != want {
		t.Fatalf("got %q, want %q", msg, want)
	}
}
