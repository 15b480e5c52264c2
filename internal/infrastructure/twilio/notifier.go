package twilio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"BlogWatch/internal/config"
	"BlogWatch/internal/ports"
)

// Notifier sends WhatsApp digests via the Twilio Messages API.
type Notifier struct {
	accountSID string
	authToken  string
	fromNumber string
	client     *http.Client
}

var _ ports.ChatSender = (*Notifier)(nil)

// NewNotifier registers the account credentials and sender number.
func NewNotifier(cfg config.TwilioConfig) *Notifier {
	return &Notifier{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts one WhatsApp message to the destination number.
func (n *Notifier) Send(ctx context.Context, to, message string) error {
	if n.accountSID == "" || n.authToken == "" || n.fromNumber == "" {
		return fmt.Errorf("twilio notifier misconfigured")
	}

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", n.accountSID)
	form := url.Values{}
	form.Set("To", whatsappAddress(to))
	form.Set("From", whatsappAddress(n.fromNumber))
	form.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(n.accountSID, n.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("twilio error: %s", resp.Status)
	}

	return nil
}

func whatsappAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
