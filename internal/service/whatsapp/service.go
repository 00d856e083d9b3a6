package whatsapp

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/config"
	"github.com/mamadbah2/farebook/internal/domain/models"
	client "github.com/mamadbah2/farebook/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// MessagingService describes the outbound notifications the app sends.
type MessagingService interface {
	NotifyForwarded(ctx context.Context, entry models.Entry, actor models.User) error
	SendReport(ctx context.Context, report string) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg    config.WhatsAppConfig
	client client.Client
	logger *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// NotifyForwarded tells the admin that money has been handed over and awaits
// confirmation.
func (s *MetaWhatsAppService) NotifyForwarded(ctx context.Context, entry models.Entry, actor models.User) error {
	return s.SendOutbound(ctx, models.OutboundMessageRequest{
		To:      s.cfg.AdminNumber,
		Message: ForwardedMessage(entry, actor),
	})
}

// SendReport pushes a report text to the admin.
func (s *MetaWhatsAppService) SendReport(ctx context.Context, report string) error {
	return s.SendOutbound(ctx, models.OutboundMessageRequest{
		To:      s.cfg.AdminNumber,
		Message: report,
	})
}

// SendOutbound sends one text message.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	if err != nil {
		return fmt.Errorf("send whatsapp notice: %w", err)
	}

	s.logger.Info("whatsapp notice sent", zap.String("to", req.To), zap.String("message_id", resp.MessageID()))
	return nil
}

// ForwardedMessage renders the admin notice for a forwarded entry.
func ForwardedMessage(entry models.Entry, actor models.User) string {
	channel, amount := "cash", entry.CashAmount
	if entry.EntryStatus == models.StatusForwardedBank {
		channel, amount = "bank", entry.BankAmount
	}

	period := entry.Date
	if entry.EndDate != "" && entry.EndDate != entry.Date {
		period = fmt.Sprintf("%s to %s", entry.Date, entry.EndDate)
	}

	msg := fmt.Sprintf("%s forwarded %s %s of %s's %s entry (%s, #%d). Please confirm.",
		actor.Username, channel, amount.StringFixed(2), entry.SubmittedBy, entry.Type, period, entry.EntryID)
	if entry.Vehicle != "" {
		msg += fmt.Sprintf(" Vehicle %s.", entry.Vehicle)
	}
	return msg
}
