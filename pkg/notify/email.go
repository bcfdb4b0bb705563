package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Email is a single outbound HTML message.
type Email struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
}

// EmailSender delivers transactional email.
type EmailSender interface {
	SendEmail(ctx context.Context, msg Email) error
}

type zeptoRequest struct {
	From     zeptoAddress   `json:"from"`
	To       []zeptoMailbox `json:"to"`
	Subject  string         `json:"subject"`
	HTMLBody string         `json:"htmlbody"`
}

type zeptoAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type zeptoMailbox struct {
	Email zeptoAddress `json:"email_address"`
}

// ZeptoMailSender posts messages to the ZeptoMail HTTP API.
type ZeptoMailSender struct {
	apiURL string
	apiKey string
	from   string
	client *http.Client
}

// NewZeptoMailSender configures the sender. apiKey is sent verbatim as the Authorization header.
func NewZeptoMailSender(apiURL, apiKey, from string, timeout time.Duration) (*ZeptoMailSender, error) {
	if apiURL == "" || apiKey == "" || from == "" {
		return nil, fmt.Errorf("missing required email config")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ZeptoMailSender{apiURL: apiURL, apiKey: apiKey, from: from, client: &http.Client{Timeout: timeout}}, nil
}

// SendEmail implements EmailSender.
func (s *ZeptoMailSender) SendEmail(ctx context.Context, msg Email) error {
	if msg.To == "" {
		return fmt.Errorf("email recipient required")
	}
	payload, err := json.Marshal(zeptoRequest{
		From:     zeptoAddress{Address: s.from},
		To:       []zeptoMailbox{{Email: zeptoAddress{Address: msg.To, Name: msg.ToName}}},
		Subject:  msg.Subject,
		HTMLBody: msg.HTMLBody,
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("zeptomail API error: %s", resp.Status)
	}
	return nil
}
