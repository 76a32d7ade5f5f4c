package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flagonhq/flagon/models"
)

// OpenResource opens a file relative to the root path, for data that ships
// with the application source. The caller closes it.
func (a *App) OpenResource(resource string) (*os.File, error) {
	return openBelow(a.rootPath, resource)
}

// OpenInstanceResource opens a file relative to the instance path, for data
// written next to the deployment rather than the source.
func (a *App) OpenInstanceResource(resource string) (*os.File, error) {
	return openBelow(a.instancePath, resource)
}

func openBelow(root, resource string) (*os.File, error) {
	full, err := safeJoin(root, resource)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, models.NewAPIError(models.ErrResourceNotFound.Code(),
			fmt.Errorf("%v: %s", models.ErrResourceNotFound, resource))
	}
	return f, err
}

// safeJoin resolves name under root and rejects absolute names and anything
// that climbs out of root through dot segments.
func safeJoin(root, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", models.NewAPIError(models.ErrResourceEscapesRoot.Code(),
			fmt.Errorf("%v: %s", models.ErrResourceEscapesRoot, name))
	}
	root = filepath.Clean(root)
	full := filepath.Clean(filepath.Join(root, filepath.FromSlash(name)))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", models.NewAPIError(models.ErrResourceEscapesRoot.Code(),
			fmt.Errorf("%v: %s", models.ErrResourceEscapesRoot, name))
	}
	return full, nil
}
