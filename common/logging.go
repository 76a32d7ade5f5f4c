package common

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetLogFormat switches the process logger between human readable text and
// json lines.
func SetLogFormat(format string) {
	switch format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logrus.WithFields(logrus.Fields{"format": format}).Warn("Unknown log format, using text. Options are json and text.")
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// SetLogLevel sets the process log level and keeps the router's mode in
// step, debug logging turns on the router's own debug chatter.
func SetLogLevel(ll string) {
	if ll == "" {
		ll = "info"
	}

	level, err := logrus.ParseLevel(ll)
	if err != nil {
		logrus.WithFields(logrus.Fields{"level": ll}).Warn("Could not parse log level, using info")
		level = logrus.InfoLevel
	}
	logrus.WithFields(logrus.Fields{"level": level}).Info("Setting log level")
	logrus.SetLevel(level)

	if level == logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}

// SetLogDest points the process logger at "stderr", a file:// path or a
// udp:// or tcp:// syslog location. A destination that can't be used logs
// the problem and leaves output on stderr. prefix tags syslog lines.
func SetLogDest(to, prefix string) {
	logrus.SetOutput(os.Stderr)
	if to == "stderr" {
		return
	}

	dest, err := parseLogDest(to)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"to": to}).Error("Invalid log destination, staying on stderr")
		return
	}

	switch dest.Scheme {
	case "udp", "tcp":
		if err := NewSyslogHook(dest, prefix); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"to": to}).Error("Unable to connect to syslog, staying on stderr")
		}
	case "file":
		f, err := os.OpenFile(dest.Path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"path": dest.Path}).Error("Cannot open log file, staying on stderr")
			return
		}
		logrus.SetOutput(f)
	default:
		logrus.WithFields(logrus.Fields{"scheme": dest.Scheme, "to": to}).Error("Unknown log destination scheme, staying on stderr")
	}
}

// parseLogDest reads [scheme://][host][:port][/path], defaulting the scheme
// to udp. Syslog locations carry only a host, file urls only a path.
func parseLogDest(to string) (*url.URL, error) {
	u, err := url.Parse(to)
	if err == nil && u.Host == "" && u.Path == "" {
		u, err = url.Parse("udp://" + to)
	}
	if err != nil {
		return nil, err
	}
	if (u.Host == "") == (u.Path == "") {
		return nil, fmt.Errorf("need either a syslog host or a file path, have %q", to)
	}
	return u, nil
}

// MaskPassword hides the password of a connection url for logging.
func MaskPassword(u *url.URL) string {
	if u.User != nil {
		p, set := u.User.Password()
		if set {
			return strings.Replace(u.String(), p+"@", "***@", 1)
		}
	}
	return u.String()
}

// NormalizeLogField rewrites a camelCase field name into the lowercase
// underscore form used for log fields. Runs of capitals stay one word, so
// "triggerID" becomes "trigger_id" and "asyncHWMark" becomes "async_hwmark".
func NormalizeLogField(field string) string {
	var b strings.Builder
	runes := []rune(field)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && !unicode.IsUpper(runes[i-1]) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
