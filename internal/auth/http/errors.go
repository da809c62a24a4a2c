package http

import (
	"net/http"

	"github.com/aussiebroadwan/medmigrate/pkg/authsdk"
	"github.com/aussiebroadwan/medmigrate/pkg/slogx"
)

// writeServerError logs err and answers 500. The description carries the
// request id so a caller's report can be matched to the log line.
func writeServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	slogx.FromContext(ctx).Error(msg, "err", err)

	resp := *authsdk.ErrServerError
	if id := slogx.RequestID(ctx); id != "" {
		resp.Description += " (request " + id + ")"
	}
	resp.WriteError(w)
}
