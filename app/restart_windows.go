//go:build windows

package app

import "github.com/sirupsen/logrus"

// restart has no exec semantics to lean on here, the server just stops and
// whatever supervises it brings it back.
func (a *App) restart(log logrus.FieldLogger) error {
	log.Info("restart requested, exiting for the supervisor to bring us back")
	return nil
}
