/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: auth.go
Description: Shared authentication session for the Evogene Fuzzer transport.
Holds the bearer token and its absolute expiry under one mutex so that any
number of concurrent evaluation workers trigger at most one token refresh
per expiry cycle.
*/

package transport

import "sync"

// AuthSession is the process-wide bearer token cache. Safe for
// concurrent use. Callers needing a token go through EnsureToken;
// while one caller refreshes, the others block and then observe the
// refreshed token.
type AuthSession struct {
	mu     sync.Mutex
	token  string
	expiry int64          // Unix seconds; 0 means no token held
	now    func() int64   // Injectable clock for tests
}

// NewAuthSession creates an empty session using the given clock
func NewAuthSession(now func() int64) *AuthSession {
	return &AuthSession{now: now}
}

// EnsureToken returns a valid token, invoking refresh under the session
// lock when the held token is missing or expired. Exactly one refresh
// runs per expiry cycle regardless of caller concurrency. A refresh
// failure leaves the session empty and returns the error; the caller
// proceeds unauthenticated for this cycle.
func (s *AuthSession) EnsureToken(refresh func() (token string, expiresIn int64, err error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now() < s.expiry {
		return s.token, nil
	}

	token, expiresIn, err := refresh()
	if err != nil {
		s.token = ""
		s.expiry = 0
		return "", err
	}
	s.token = token
	s.expiry = s.now() + expiresIn
	return s.token, nil
}

// Token returns the currently held token without refreshing, empty if
// none is held or it has expired
func (s *AuthSession) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || s.now() >= s.expiry {
		return ""
	}
	return s.token
}

// Invalidate discards the held token, forcing the next EnsureToken to
// refresh
func (s *AuthSession) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiry = 0
}
