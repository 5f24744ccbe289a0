// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package app

import (
	"net/http"
	"strings"
	"sync"

	"github.com/hashicorp/cap-spa/view"
)

// SessionCookie is the name of the cookie which holds the browser's session
// id.
const SessionCookie = "cap_spa_session"

func sessionID(req *http.Request) string {
	c, err := req.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (a *App) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   strings.HasPrefix(a.origin(), "https://"),
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *App) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// outputStore keeps the API output region of every session, so it survives
// the redirect back to the page.  It is concurrently safe.
type outputStore struct {
	m sync.Mutex
	c map[string]string
}

func newOutputStore() *outputStore {
	return &outputStore{
		c: map[string]string{},
	}
}

func (s *outputStore) Get(id string) string {
	s.m.Lock()
	defer s.m.Unlock()
	return s.c[id]
}

func (s *outputStore) Set(id, text string) {
	s.m.Lock()
	defer s.m.Unlock()
	s.c[id] = text
}

func (s *outputStore) Len() int {
	s.m.Lock()
	defer s.m.Unlock()
	return len(s.c)
}

func (s *outputStore) Delete(id string) {
	s.m.Lock()
	defer s.m.Unlock()
	delete(s.c, id)
}

// display returns a Display for the session which only holds its API output
// region.
func (s *outputStore) display(id string) view.Display {
	return &outputDisplay{store: s, id: id}
}

type outputDisplay struct {
	store *outputStore
	id    string
}

func (d *outputDisplay) SetVisible(view.Region, bool)         {}
func (d *outputDisplay) SetImage(view.Region, string, string) {}

func (d *outputDisplay) SetText(r view.Region, text string) {
	if r == view.RegionAPIOutput {
		d.store.Set(d.id, text)
	}
}
