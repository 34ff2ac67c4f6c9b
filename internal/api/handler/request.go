package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mcoot/hostguard/internal/api/apierr"
	"github.com/mcoot/hostguard/internal/engine"
)

// decodeJSON decodes a required JSON body into dst
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierr.NewInvalidRequestError("invalid request body")
	}
	return nil
}

// decodeOptional decodes a JSON body into dst, treating an empty body as
// no input
func decodeOptional(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apierr.NewInvalidRequestError("invalid request body")
	}
	return nil
}

// onEngine runs fn on the engine goroutine and returns whichever of the
// scheduling error or fn's own error occurred
func onEngine(ctx context.Context, e *engine.Engine, fn func() error) error {
	var inner error
	if err := e.Do(ctx, func() { inner = fn() }); err != nil {
		return err
	}
	return inner
}
