//go:build !windows && !nacl && !plan9

package common

import (
	"io"
	"net/url"

	"github.com/sirupsen/logrus"
	logrus_syslog "github.com/sirupsen/logrus/hooks/syslog"
)

// NewSyslogHook routes all logging to the syslog daemon at u, tagging lines
// with prefix. Plain output is silenced, syslog becomes the one destination.
func NewSyslogHook(u *url.URL, prefix string) error {
	hook, err := logrus_syslog.NewSyslogHook(u.Scheme, u.Host, 0, prefix)
	if err != nil {
		return err
	}
	logrus.AddHook(hook)
	logrus.SetOutput(io.Discard)
	return nil
}
