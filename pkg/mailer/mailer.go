package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/config"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/logger"
	"github.com/wrhermikkhh/InfiniteHome-sub000/prometheus"

	"go.uber.org/zap"
)

// Mailer delivers transactional mail by handing a payload to the external
// mail provider. Delivery is best-effort: callers fire it in a goroutine and
// never block an HTTP response on it.
type Mailer struct {
	ProviderURL string
	FromAddress string
	HTTPClient  *http.Client
}

var defaultMailer *Mailer

// Initialize configures the package-level mailer from config
func Initialize(cfg *config.MailerConfig) {
	defaultMailer = &Mailer{
		ProviderURL: cfg.ProviderURL,
		FromAddress: cfg.FromAddress,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether a provider URL has been configured
func (m *Mailer) Enabled() bool {
	return m != nil && m.ProviderURL != ""
}

// orderConfirmationPayload is the body posted to the mail provider
type orderConfirmationPayload struct {
	From        string       `json:"from"`
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	Template    string       `json:"template"`
	OrderNumber string       `json:"order_number"`
	Order       *model.Order `json:"order"`
}

// SendOrderConfirmation posts an order-confirmation payload to the provider.
// Returns an error for the caller to log; it must never be surfaced to the
// storefront response.
func (m *Mailer) SendOrderConfirmation(order *model.Order) error {
	if !m.Enabled() {
		return nil
	}

	payload := orderConfirmationPayload{
		From:        m.FromAddress,
		To:          order.CustomerEmail,
		Subject:     "Order confirmation " + order.OrderNumber,
		Template:    "order_confirmation",
		OrderNumber: order.OrderNumber,
		Order:       order,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode mail payload: %w", err)
	}

	resp, err := m.HTTPClient.Post(m.ProviderURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mail provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("mail provider returned status %d", resp.StatusCode)
	}

	return nil
}

// DispatchOrderConfirmation sends the confirmation in the background.
// Failures are logged and discarded.
func DispatchOrderConfirmation(order *model.Order) {
	m := defaultMailer
	if !m.Enabled() {
		return
	}

	go func() {
		if err := m.SendOrderConfirmation(order); err != nil {
			prometheus.RecordMailDispatch("failed")
			logger.GetLogger().Error("Failed to send order confirmation email",
				zap.String("order_number", order.OrderNumber),
				zap.Error(err))
			return
		}
		prometheus.RecordMailDispatch("sent")
		logger.GetLogger().Info("Order confirmation email dispatched",
			zap.String("order_number", order.OrderNumber),
			zap.String("to", order.CustomerEmail))
	}()
}
