// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package app

import (
	"net/http"
)

// loginHandler sends the user to the provider to authenticate.
func (a *App) loginHandler(w http.ResponseWriter, req *http.Request) {
	if a.initErr != nil {
		http.Redirect(w, req, "/", http.StatusSeeOther)
		return
	}
	authURL, err := a.client.LoginURL(req.Context())
	if err != nil {
		a.logger.Error("unable to get login url", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, req, authURL, http.StatusTemporaryRedirect)
}
