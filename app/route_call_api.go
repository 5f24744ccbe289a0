// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package app

import (
	"net/http"
)

// callAPIHandler calls the protected API for the browser's session and sends
// the browser back to the page, which displays the session's API output.
func (a *App) callAPIHandler(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sid := sessionID(req)
	if a.initErr != nil || sid == "" {
		http.Redirect(w, req, "/", http.StatusSeeOther)
		return
	}
	// only sessions of logged in users get an output region
	ok, err := a.client.IsAuthenticated(req.Context(), sid)
	if err != nil || !ok {
		if err != nil {
			a.logger.Error("unable to check the session", "error", err)
		}
		http.Redirect(w, req, "/", http.StatusSeeOther)
		return
	}
	// failures are displayed in the session's output region
	if err := a.caller.Call(req.Context(), a.outputs.display(sid), sid); err != nil {
		a.logger.Debug("protected API call failed", "error", err)
	}
	http.Redirect(w, req, "/", http.StatusSeeOther)
}
