// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package spa_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/cap-spa/auth"
	"github.com/hashicorp/cap-spa/callback"
	"github.com/hashicorp/cap-spa/profile"
	"github.com/hashicorp/cap-spa/resource"
	"github.com/hashicorp/cap-spa/view"
)

func Example_auth() {
	ctx := context.Background()

	// Create a new Config
	pc, err := auth.NewConfig(
		"your-tenant.us.auth0.com",
		"your_client_id",
		auth.WithRedirectURL("http://localhost:3000/"),
		auth.WithAudience("https://api.example.com"),
		auth.WithScopes("openid", "profile", "email", "offline_access"),
	)
	if err != nil {
		// handle error
	}

	// Create a client, which discovers the provider
	c, err := auth.NewClient(pc)
	if err != nil {
		// handle error
	}
	defer c.Done()

	// Create an auth URL for a user's authentication attempt
	authURL, err := c.LoginURL(ctx)
	if err != nil {
		// handle error
	}
	fmt.Println("open url to kick-off authentication: ", authURL)

	// Create a http.Handler for the provider's redirect back to the page
	successFn := func(sessionID string, w http.ResponseWriter, req *http.Request) {
		// keep the sessionID in a cookie and remove the code and state from
		// the URL
		http.Redirect(w, req, callback.StripQuery(req.URL), http.StatusSeeOther)
	}
	errorFn := func(state string, respErr *callback.AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
		// display the error
	}
	callbackHandler, err := callback.AuthCode(c, successFn, errorFn)
	if err != nil {
		// handle error
	}
	http.HandleFunc("/callback", callbackHandler)
}

func Example_page() {
	ctx := context.Background()
	var c *auth.Client // see Example_auth
	sessionID := "the id of the browser's session"

	page := view.NewPage()
	vc, err := view.NewController(page)
	if err != nil {
		// handle error
	}

	// every step which fails moves the page to its error state
	vc.Run(ctx, "status", func(ctx context.Context) error {
		ok, err := c.IsAuthenticated(ctx, sessionID)
		if err != nil {
			return err
		}
		if !ok {
			return vc.Transition(view.LoggedOut())
		}
		if err := vc.Transition(view.LoggedIn()); err != nil {
			return err
		}
		u, err := c.User(ctx, sessionID)
		if err != nil {
			return err
		}
		profile.NewRenderer().Render(page, u)
		return nil
	})

	// call the protected API, displaying the outcome in the page
	caller, err := resource.NewCaller(c, c)
	if err != nil {
		// handle error
	}
	_ = caller.Call(ctx, page, sessionID)
}
