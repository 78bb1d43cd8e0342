// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/beestat/internal/auth"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/models"
	"github.com/tomtom215/beestat/internal/validation"
)

// maxBodyBytes bounds a JSON argument body.
const maxBodyBytes = 1 << 20

// Call is one invocation of resource.method.
type Call struct {
	Resource  string
	Method    string
	Arguments map[string]json.RawMessage

	// Session is nil for anonymous callers of public methods.
	Session *auth.Session

	w http.ResponseWriter
	r *http.Request
}

// UserID returns the session user, or zero.
func (c *Call) UserID() int64 {
	if c.Session == nil {
		return 0
	}
	return c.Session.UserID
}

// requireUser returns the session user or CodeSessionRequired.
func (c *Call) requireUser() (int64, error) {
	if c.Session == nil {
		return 0, models.NewCodedError(models.CodeSessionRequired,
			fmt.Sprintf("%s.%s requires a session", c.Resource, c.Method))
	}
	return c.Session.UserID, nil
}

// Has reports whether argument name was supplied.
func (c *Call) Has(name string) bool {
	_, ok := c.Arguments[name]
	return ok
}

// String returns argument name as a string. Non-string JSON values are
// returned as their literal text.
func (c *Call) String(name string) string {
	raw, ok := c.Arguments[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Bool interprets argument name as a boolean: JSON true, or one of the
// strings "true" and "1".
func (c *Call) Bool(name string) bool {
	raw, ok := c.Arguments[name]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	switch strings.ToLower(c.String(name)) {
	case "true", "1":
		return true
	}
	return false
}

// Decode unmarshals argument name into dst. A string argument holding JSON
// (as sent through a query parameter) is decoded from its contents.
func (c *Call) Decode(name string, dst interface{}) error {
	raw, ok := c.Arguments[name]
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(s)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &models.CodedError{
			Code:    models.CodeInvalidArgument,
			Message: fmt.Sprintf("Invalid %s argument", name),
			Err:     err,
		}
	}
	return nil
}

// Bind decodes every argument into the struct dst and validates it.
func (c *Call) Bind(dst interface{}) error {
	raw, err := json.Marshal(c.Arguments)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &models.CodedError{Code: models.CodeInvalidArgument, Message: "Invalid arguments", Err: err}
	}
	if ve := validation.ValidateStruct(dst); ve != nil {
		return ve.AsCodedError()
	}
	return nil
}

// Result is what a method returns. At most one of Redirect and HTML is
// set; otherwise Data is written in the envelope.
type Result struct {
	Data     interface{}
	Redirect string
	HTML     string
}

// MethodFunc implements one resource method.
type MethodFunc func(ctx context.Context, c *Call) (*Result, error)

// callFromRequest resolves the targeted resource and method, either from
// the /api/{resource}/{method} path or the legacy query form.
func callFromRequest(r *http.Request) (resource, method string) {
	resource = chi.URLParam(r, "resource")
	method = chi.URLParam(r, "method")
	if resource == "" {
		resource = r.FormValue("resource")
	}
	if method == "" {
		method = r.FormValue("method")
	}
	return resource, method
}

var reservedParams = map[string]bool{
	"resource":  true,
	"method":    true,
	"arguments": true,
}

// parseArguments merges query and form parameters, the legacy JSON
// "arguments" parameter and a JSON object body, later sources winning.
func parseArguments(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	invalid := func(msg string, err error) error {
		return &models.CodedError{Code: models.CodeInvalidArgument, Message: msg, Err: err}
	}

	if err := r.ParseForm(); err != nil {
		return nil, invalid("Invalid request parameters", err)
	}

	args := make(map[string]json.RawMessage)
	for name, values := range r.Form {
		if reservedParams[name] || len(values) == 0 {
			continue
		}
		raw, err := json.Marshal(values[0])
		if err != nil {
			return nil, invalid("Invalid request parameters", err)
		}
		args[name] = raw
	}

	if legacy := r.Form.Get("arguments"); legacy != "" {
		var m map[string]json.RawMessage
		if err := json.Unmarshal([]byte(legacy), &m); err != nil {
			return nil, invalid("arguments must be a JSON object", err)
		}
		for k, v := range m {
			args[k] = v
		}
	}

	if r.Method == http.MethodPost && isJSON(r.Header.Get("Content-Type")) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			return nil, invalid("Request body too large", err)
		}
		if len(bytes.TrimSpace(body)) > 0 {
			var m map[string]json.RawMessage
			if err := json.Unmarshal(body, &m); err != nil {
				return nil, invalid("Request body must be a JSON object", err)
			}
			for k, v := range m {
				args[k] = v
			}
		}
	}
	return args, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

// Call dispatches an RPC request. Authorization has already run.
func (h *Handler) Call(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	resource, method := callFromRequest(r)

	fn, ok := h.methods[resource][method]
	if !ok {
		rw.FromError(models.NewCodedError(models.CodeUnknownMethod,
			fmt.Sprintf("unknown method %s.%s", resource, method)))
		return
	}

	args, err := parseArguments(w, r)
	if err != nil {
		rw.FromError(err)
		return
	}

	ctx := r.Context()
	call := &Call{
		Resource:  resource,
		Method:    method,
		Arguments: args,
		Session:   auth.SessionFromContext(ctx),
		w:         w,
		r:         r,
	}

	result, err := fn(ctx, call)
	if err != nil {
		rw.FromError(err)
		return
	}
	if result == nil {
		result = &Result{}
	}

	logging.Ctx(ctx).Debug().
		Str("resource", resource).
		Str("method", method).
		Msg("RPC call completed")

	switch {
	case result.Redirect != "":
		rw.Redirect(result.Redirect)
	case result.HTML != "":
		rw.HTML(result.HTML)
	default:
		rw.Success(result.Data)
	}
}

// register adds fn as resource.method.
func (h *Handler) register(resource, method string, fn MethodFunc) {
	if h.methods[resource] == nil {
		h.methods[resource] = make(map[string]MethodFunc)
	}
	h.methods[resource][method] = fn
}

// Methods lists the registered methods per resource.
func (h *Handler) Methods() map[string][]string {
	out := make(map[string][]string, len(h.methods))
	for resource, methods := range h.methods {
		for method := range methods {
			out[resource] = append(out[resource], method)
		}
	}
	return out
}

var errNotConfigured = errors.New("not configured")

func notConfigured(what string) error {
	return &models.CodedError{
		Code:    models.CodeInvalidArgument,
		Message: what + " is not configured",
		Err:     errNotConfigured,
	}
}
