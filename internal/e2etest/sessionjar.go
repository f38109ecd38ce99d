package e2etest

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/myrjola/billeffect/internal/errors"
)

// sessionJar keeps the cookies of one browser session. The session and CSRF cookies are issued with the Secure
// flag, which a plain [cookiejar.Jar] refuses to send back over the http test server, so the flag is dropped.
type sessionJar struct {
	mu  sync.Mutex
	jar *cookiejar.Jar
}

func newSessionJar() (*sessionJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "new cookie jar")
	}
	return &sessionJar{mu: sync.Mutex{}, jar: jar}, nil
}

func (s *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	for _, cookie := range cookies {
		cookie.Secure = false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jar.SetCookies(u, cookies)
}

func (s *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jar.Cookies(u)
}

// reset drops every cookie like a browser that was closed. The next page visit is assigned a new workspace.
func (s *sessionJar) reset() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return errors.Wrap(err, "new cookie jar")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jar = jar
	return nil
}

// has reports whether a cookie with name would be sent to u.
func (s *sessionJar) has(u *url.URL, name string) bool {
	for _, cookie := range s.Cookies(u) {
		if cookie.Name == name {
			return true
		}
	}
	return false
}
