//go:build windows || nacl || plan9

package common

import (
	"errors"
	"net/url"
)

// NewSyslogHook is unavailable here, syslog needs a unix-ish platform.
func NewSyslogHook(u *url.URL, prefix string) error {
	return errors.New("syslog is not supported on this platform")
}
