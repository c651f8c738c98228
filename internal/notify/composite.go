package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// CompositeNotifier fans one message out to several channels. Every
// channel is attempted even when an earlier one fails.
type CompositeNotifier struct {
	children []Notifier
}

// NewCompositeNotifier creates a fan-out notifier.
func NewCompositeNotifier(children []Notifier) *CompositeNotifier {
	return &CompositeNotifier{children: children}
}

// Name returns the channel identifier.
func (n *CompositeNotifier) Name() string { return "composite" }

// Send delivers to all children and joins their errors.
func (n *CompositeNotifier) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, child := range n.children {
		if err := child.Send(ctx, msg); err != nil {
			slog.Warn("notify channel failed", "channel", child.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", child.Name(), err))
		}
	}
	return errors.Join(errs...)
}
