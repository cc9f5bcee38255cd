package delivery

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailDeliverer sends messages through the Gmail API as the authenticated
// user. The caller supplies a token source; token refresh and storage live
// outside this package.
type GmailDeliverer struct {
	svc  *gmail.Service
	from string
}

// NewGmail builds a Gmail deliverer. from is the sender address shown in
// the message header; the API sends as whichever account the token belongs
// to regardless.
func NewGmail(ctx context.Context, from string, ts oauth2.TokenSource) (*GmailDeliverer, error) {
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	return &GmailDeliverer{svc: svc, from: from}, nil
}

func (d *GmailDeliverer) Name() string { return "gmail" }

func (d *GmailDeliverer) Deliver(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("gmail delivery: empty recipient")
	}
	raw := encodeMessage(d.from, msg)
	_, err := d.svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sending to %s: %w", msg.To, err)
	}
	return nil
}

// encodeMessage renders an RFC 2822 message and encodes it the way the
// Gmail API expects, base64url without padding.
func encodeMessage(from string, msg Message) string {
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return base64.RawURLEncoding.EncodeToString([]byte(b.String()))
}
