// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
view is a package that drives what a page displays. A Controller holds the
page's State (Loading, Error, LoggedOut or LoggedIn) and applies it to a
Display by toggling the visibility of its regions. Page is an in-memory
Display which renders itself as an HTML document.

	page := view.NewPage()
	c, err := view.NewController(page)
	if err != nil {
		// handle error
	}
	c.Run(ctx, "status", func(ctx context.Context) error {
		ok, err := client.IsAuthenticated(ctx, sessionID)
		if err != nil {
			return err
		}
		if ok {
			return c.Transition(view.LoggedIn())
		}
		return c.Transition(view.LoggedOut())
	})
	_ = page.Render(w)
*/
package view
