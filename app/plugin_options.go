//go:build linux || darwin

package app

import (
	"context"

	"github.com/flagonhq/flagon/ext"
)

// WithPluginMiddleware loads middleware from a Go plugin built with
// -buildmode=plugin, exporting Handle as an ext.MiddlewareFunc.
func WithPluginMiddleware(path string) Option {
	return func(ctx context.Context, a *App) error {
		m, err := ext.NewPluginMiddleware(path)
		if err != nil {
			return err
		}
		a.AddMiddleware(m)
		return nil
	}
}

// WithPluginRuleListener loads a rule listener from a Go plugin exporting
// Listener as an ext.RuleListener.
func WithPluginRuleListener(path string) Option {
	return func(ctx context.Context, a *App) error {
		l, err := ext.NewPluginRuleListener(path)
		if err != nil {
			return err
		}
		a.AddRuleListener(l)
		return nil
	}
}
