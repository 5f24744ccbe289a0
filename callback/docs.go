// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
callback is a package that provides a callback (in the form of an
http.HandlerFunc) for handling a provider's redirect back to the page at the
end of an authorization code flow (with PKCE) authentication attempt.

	h, err := callback.AuthCode(client, successFn, errorFn)
	if err != nil {
		// handle error
	}
	http.Handle("/callback", h)
*/
package callback
