package tenant

import (
	"context"
	"net/http"
)

type ctxKey string

const resolutionCtxKey ctxKey = "tenant_resolution"

// ReqWithResolution saves the resolution in the request's context.
func ReqWithResolution(r *http.Request, res *Resolution) *http.Request {
	ctx := context.WithValue(r.Context(), resolutionCtxKey, res)

	return r.WithContext(ctx)
}

// FromRequest extracts the resolution from the request's context. It returns
// nil when the resolution middleware did not run for this request.
func FromRequest(r *http.Request) *Resolution {
	res, _ := r.Context().Value(resolutionCtxKey).(*Resolution)
	return res
}
