// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"net/http"
)

// SuccessResponseFunc is used by AuthCode to create a http response when the
// callback is successful.
//
// The sessionID identifies the session created for the newly authenticated
// user.  The function should use the http.ResponseWriter to send back
// whatever content (cookies, redirects, html, etc) it wishes to the browser
// which completed the flow.
type SuccessResponseFunc func(sessionID string, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by AuthCode to create a http response when the
// callback fails.
//
// The function receives the state returned as part of the authentication
// response.  It also gets the provider's authentication error response and/or
// the error raised while processing the request.
type ErrorResponseFunc func(state string, respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse represents Oauth2 error responses.  See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type AuthenErrorResponse struct {
	Error       string
	Description string
	Uri         string
}
