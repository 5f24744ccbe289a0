// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/cap-spa/callback"
	"github.com/hashicorp/cap-spa/view"
)

// pageHandler runs the page's startup flow: initialization, the redirect
// callback when the provider sent the user back, then the user's
// authentication status and profile.
func (a *App) pageHandler(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		http.NotFound(w, req)
		return
	}
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := req.Context()
	page, c := a.newPage()

	if !c.Run(ctx, "initialize", func(context.Context) error { return a.initErr }) {
		a.render(w, page, http.StatusOK)
		return
	}

	q := req.URL.Query()
	if callback.HasParams(q) || callback.HasErrorParams(q) {
		a.callback(w, req)
		return
	}

	sid := sessionID(req)
	c.Run(ctx, "status", func(ctx context.Context) error {
		ok, err := a.client.IsAuthenticated(ctx, sid)
		if err != nil {
			return err
		}
		if ok {
			return c.Transition(view.LoggedIn())
		}
		return c.Transition(view.LoggedOut())
	})
	if c.State().Kind() == view.KindLoggedIn {
		c.Run(ctx, "profile", func(ctx context.Context) error {
			u, err := a.client.User(ctx, sid)
			if err != nil {
				return err
			}
			a.renderer.Render(page, u)
			return nil
		})
		page.SetText(view.RegionAPIOutput, a.outputs.Get(sid))
	}
	a.render(w, page, http.StatusOK)
}

// callbackSuccess keeps the new session in the browser and sends it back to
// the page without the code and state in its URL.
func (a *App) callbackSuccess(sessionID string, w http.ResponseWriter, req *http.Request) {
	a.setSessionCookie(w, sessionID)
	http.Redirect(w, req, callback.StripQuery(req.URL), http.StatusSeeOther)
}

// callbackFailed displays the page in its error state.
func (a *App) callbackFailed(state string, respErr *callback.AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
	page, c := a.newPage()
	status := http.StatusInternalServerError
	switch {
	case e != nil:
		a.logger.Error("callback failed", "state", state, "error", e)
		c.Fail(e)
	case respErr != nil:
		a.logger.Error("provider returned an error", "state", state, "error", respErr.Error, "description", respErr.Description)
		status = http.StatusUnauthorized
		c.Fail(fmt.Errorf("authentication failed: %s: %s", respErr.Error, respErr.Description))
	default:
		c.Fail(fmt.Errorf("authentication failed: unknown error from callback"))
	}
	a.render(w, page, status)
}

func (a *App) newPage() (*view.Page, *view.Controller) {
	page := view.NewPage()
	// NewController only fails for a nil display
	c, _ := view.NewController(page, view.WithLogger(a.logger.Named("view")))
	return page, c
}

func (a *App) render(w http.ResponseWriter, page *view.Page, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := page.Render(w); err != nil {
		a.logger.Error("unable to render page", "error", err)
	}
}
