//go:build linux || darwin

package ext

import (
	"fmt"
	"plugin"
)

// Symbol names a plugin must export: Handle for middleware, Listener for
// listeners.
const (
	middlewareSymbolName = "Handle"
	listenerSymbolName   = "Listener"
)

func lookupSymbol(path, name string) (plugin.Symbol, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return p.Lookup(name)
}

// NewPluginMiddleware loads a Middleware from a Go plugin built with
// -buildmode=plugin. The plugin exports Handle as a MiddlewareFunc.
func NewPluginMiddleware(path string) (Middleware, error) {
	sym, err := lookupSymbol(path, middlewareSymbolName)
	if err != nil {
		return nil, err
	}
	mw, ok := sym.(*MiddlewareFunc)
	if !ok {
		return nil, fmt.Errorf("%s is not a middleware function in plugin %s", middlewareSymbolName, path)
	}
	return mw, nil
}

// NewPluginRuleListener loads a RuleListener from a Go plugin exporting
// Listener.
func NewPluginRuleListener(path string) (RuleListener, error) {
	sym, err := lookupSymbol(path, listenerSymbolName)
	if err != nil {
		return nil, err
	}
	l, ok := sym.(RuleListener)
	if !ok {
		return nil, fmt.Errorf("%s is not a RuleListener in plugin %s", listenerSymbolName, path)
	}
	return l, nil
}
