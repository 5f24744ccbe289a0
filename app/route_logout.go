// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package app

import (
	"net/http"
)

// logoutHandler ends the browser's session and sends the user to the
// provider to end theirs, before returning to the page.
func (a *App) logoutHandler(w http.ResponseWriter, req *http.Request) {
	if a.initErr != nil {
		http.Redirect(w, req, "/", http.StatusSeeOther)
		return
	}
	sid := sessionID(req)
	logoutURL, err := a.client.LogoutURL(req.Context(), sid, a.origin())
	if err != nil {
		a.logger.Error("unable to get logout url", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.outputs.Delete(sid)
	a.clearSessionCookie(w)
	http.Redirect(w, req, logoutURL, http.StatusTemporaryRedirect)
}
