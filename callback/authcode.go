// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/cap-spa/auth"
)

// Exchanger completes an authentication attempt.  It's satisfied by
// *auth.Client.
type Exchanger interface {
	HandleRedirectCallback(ctx context.Context, state, code string) (sessionID string, err error)
}

// HasParams reports whether the query holds the result of an authorization
// code flow: both a "code" and a "state".
func HasParams(q url.Values) bool {
	return q.Get("code") != "" && q.Get("state") != ""
}

// HasErrorParams reports whether the query holds a provider's error response
// to an authorization request: both an "error" and a "state".
func HasErrorParams(q url.Values) bool {
	return q.Get("error") != "" && q.Get("state") != ""
}

// StripQuery returns the URL's path without its query or fragment, so the
// one-time code and state aren't left in the address bar or history.
func StripQuery(u *url.URL) string {
	if u == nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// AuthCode creates an authorization code callback handler which uses the
// Exchanger to complete the authentication attempt identified by the
// request's "state" parameter.  The exchange runs with the request's
// context.
//
// The SuccessResponseFunc is used to create a response when callback is
// successful. The ErrorResponseFunc is to create a response when the callback
// fails.
func AuthCode(ex Exchanger, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.AuthCode"
	switch {
	case ex == nil:
		return nil, fmt.Errorf("%s: exchanger is nil: %w", op, auth.ErrInvalidParameter)
	case sFn == nil:
		return nil, fmt.Errorf("%s: success response func is nil: %w", op, auth.ErrInvalidParameter)
	case eFn == nil:
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, auth.ErrInvalidParameter)
	}
	return func(w http.ResponseWriter, req *http.Request) {
		const op = "callback.AuthCode"

		// get parameters from either the body or query parameters.
		// FormValue prioritizes body values, if found
		reqState := req.FormValue("state")

		if err := req.FormValue("error"); err != "" {
			reqError := &AuthenErrorResponse{
				Error:       err,
				Description: req.FormValue("error_description"),
				Uri:         req.FormValue("error_uri"),
			}
			eFn(reqState, reqError, nil, w, req)
			return
		}

		reqCode := req.FormValue("code")
		if reqState == "" || reqCode == "" {
			eFn(reqState, nil, fmt.Errorf("%s: code and state are required: %w", op, auth.ErrInvalidParameter), w, req)
			return
		}

		sessionID, err := ex.HandleRedirectCallback(req.Context(), reqState, reqCode)
		if err != nil {
			eFn(reqState, nil, fmt.Errorf("%s: unable to complete authentication: %w", op, err), w, req)
			return
		}
		sFn(sessionID, w, req)
	}, nil
}
