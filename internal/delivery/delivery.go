// Package delivery sends finished reports to their recipients. Delivery is
// best effort: a generated report that fails to send is still returned to
// the caller, so deliverers report errors but callers decide whether they
// are fatal.
package delivery

import (
	"context"
	"fmt"
	"io"
)

// Message is a single outbound report.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Deliverer sends a message over one channel.
type Deliverer interface {
	// Deliver sends the message. It returns an error when the channel
	// rejected the message; partial delivery is not reported.
	Deliver(ctx context.Context, msg Message) error

	// Name identifies the channel in logs.
	Name() string
}

// ConsoleDeliverer writes the message to a local writer. It is the default
// channel when no email transport is configured.
type ConsoleDeliverer struct {
	Out io.Writer
}

func (d *ConsoleDeliverer) Name() string { return "console" }

func (d *ConsoleDeliverer) Deliver(_ context.Context, msg Message) error {
	_, err := fmt.Fprintf(d.Out, "To: %s\nSubject: %s\n\n%s\n", msg.To, msg.Subject, msg.Body)
	return err
}
