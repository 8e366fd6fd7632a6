// Package builtin registers every channel shipped with angelia.
package builtin

import (
	"fmt"

	"github.com/shaharia-lab/angelia/internal/channel"
	"github.com/shaharia-lab/angelia/internal/channel/gmail"
	"github.com/shaharia-lab/angelia/internal/channel/mailto"
	"github.com/shaharia-lab/angelia/internal/channel/ovhrest"
	"github.com/shaharia-lab/angelia/internal/channel/ovhsoap"
	"github.com/shaharia-lab/angelia/internal/channel/resend"
	"github.com/shaharia-lab/angelia/internal/channel/telegram"
)

var registrars = []func(*channel.Registry) error{
	mailto.Register,
	resend.Register,
	ovhrest.Register,
	ovhsoap.Register,
	gmail.Register,
	telegram.Register,
}

// Register adds all built-in channels to r.
func Register(r *channel.Registry) error {
	for _, register := range registrars {
		if err := register(r); err != nil {
			return fmt.Errorf("registering built-in channels: %w", err)
		}
	}
	return nil
}

// NewRegistry returns a registry holding all built-in channels.
func NewRegistry() (*channel.Registry, error) {
	r := channel.NewRegistry()
	if err := Register(r); err != nil {
		return nil, err
	}
	return r, nil
}
