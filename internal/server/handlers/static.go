package handlers

import (
	"io/fs"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/smsgate/smsgate/internal/assets/web"
)

// IndexHandler serves the embedded send form.
func IndexHandler(w http.ResponseWriter, r *http.Request) {
	page, err := fs.ReadFile(web.FS, web.IndexFile)
	if err != nil {
		respondWithError(w, r, errors.NewErrorEnvelope("INTERNAL_ERROR", "index page unavailable"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}
