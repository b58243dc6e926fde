package session

import (
	"time"

	"github.com/gorilla/securecookie"
)

// cookieCodec signs session ids into cookie values. Values carry their
// issue time and are rejected once older than the session TTL.
type cookieCodec struct {
	name string
	sc   *securecookie.SecureCookie
}

func newCookieCodec(name string, secret []byte, ttl time.Duration) *cookieCodec {
	sc := securecookie.New(secret, nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int(ttl / time.Second))
	return &cookieCodec{name: name, sc: sc}
}

func (c *cookieCodec) encode(id string) (string, error) {
	return c.sc.Encode(c.name, id)
}

// decode verifies value and returns the session id it carries.
func (c *cookieCodec) decode(value string) (string, bool) {
	var id string
	if err := c.sc.Decode(c.name, value, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}
