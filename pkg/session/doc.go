// Package session provides rolling, Redis-backed cookie sessions.
//
// A session is stored as JSON under <prefix><id> with the configured TTL.
// The browser holds only the id, encoded with securecookie under the
// session secret and timestamped so stale cookies fail. A request without a valid cookie gets a fresh session that is
// written to the store only if a handler modifies it.
//
//	store := session.NewStore(kv, cfg.Session)
//	mgr := session.NewManager(store, cfg.Session)
//	router.Use(mgr.Middleware)
//
//	sess, _ := session.FromContext(r.Context())
//	sess.SetUser(&session.User{ID: "u-1"})
package session
