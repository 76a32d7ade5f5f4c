package app

import (
	"fmt"
	"net/http"
	"os"

	"github.com/flagonhq/flagon/common"
	"github.com/flagonhq/flagon/models"
)

// handleStatic is the view behind the static rule. It resolves the captured
// filename against the static folder and serves the file with conditional
// and range support. Anything that walks out of the folder, directories
// included, answers 404 without a reason a probing client could learn from.
func (a *App) handleStatic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filename := Param(r, "filename")

	full, err := safeJoin(a.StaticFolder(), filename)
	if err != nil {
		common.Logger(ctx).WithError(err).Debug("static request escapes the static folder")
		HandleErrorResponse(ctx, w, staticNotFound(filename))
		return
	}

	fi, err := os.Stat(full)
	if err != nil || fi.IsDir() {
		HandleErrorResponse(ctx, w, staticNotFound(filename))
		return
	}

	http.ServeFile(w, r, full)
}

func staticNotFound(filename string) models.APIError {
	return models.NewAPIError(models.ErrResourceNotFound.Code(),
		fmt.Errorf("%v: %s", models.ErrResourceNotFound, filename))
}
