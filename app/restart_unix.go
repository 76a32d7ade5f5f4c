//go:build !windows

package app

import (
	"os"
	"syscall"

	"github.com/sirupsen/logrus"
)

// restart replaces the process with whatever currently sits at our
// executable path. Paired with a rebuild step that writes the binary in
// place this reloads code, on its own it reloads templates and config.
func (a *App) restart(log logrus.FieldLogger) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"exe": exe}).Info("restarting")
	return syscall.Exec(exe, os.Args, os.Environ())
}
