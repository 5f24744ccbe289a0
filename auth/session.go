// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package auth

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Session is what the Client keeps for an authenticated browser: the tokens
// issued by the provider and the verified id_token claims.
type Session struct {
	ID           string
	IDToken      IDToken
	Claims       map[string]interface{}
	Scopes       []string
	RefreshToken string
	Created      time.Time

	// token is the latest oauth2 token issued for the session.
	token *oauth2.Token
}

// clone returns a copy which is safe to use outside the store's lock.
func (s *Session) clone() *Session {
	cp := *s
	cp.Claims = make(map[string]interface{}, len(s.Claims))
	for k, v := range s.Claims {
		cp.Claims[k] = v
	}
	cp.Scopes = append([]string(nil), s.Scopes...)
	return &cp
}

// sessionStore is the in-memory set of sessions.  It is concurrently safe.
type sessionStore struct {
	m sync.Mutex
	c map[string]*Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		c: map[string]*Session{},
	}
}

func (ss *sessionStore) Add(s *Session) {
	ss.m.Lock()
	defer ss.m.Unlock()
	ss.c[s.ID] = s
}

// Read returns a copy of the session.
func (ss *sessionStore) Read(id string) (*Session, error) {
	const op = "sessionStore.Read"
	ss.m.Lock()
	defer ss.m.Unlock()
	s, ok := ss.c[id]
	if !ok {
		return nil, fmt.Errorf("%s: session not found: %w", op, ErrNotFound)
	}
	return s.clone(), nil
}

// SetToken stores an access_token for the session. A refresh_token rotated by
// the provider replaces the session's refresh_token.
func (ss *sessionStore) SetToken(id string, t *oauth2.Token) error {
	const op = "sessionStore.SetToken"
	ss.m.Lock()
	defer ss.m.Unlock()
	s, ok := ss.c[id]
	if !ok {
		return fmt.Errorf("%s: session not found: %w", op, ErrNotFound)
	}
	s.token = t
	if t.RefreshToken != "" {
		s.RefreshToken = t.RefreshToken
	}
	return nil
}

func (ss *sessionStore) Delete(id string) {
	ss.m.Lock()
	defer ss.m.Unlock()
	delete(ss.c, id)
}

func (ss *sessionStore) Len() int {
	ss.m.Lock()
	defer ss.m.Unlock()
	return len(ss.c)
}
