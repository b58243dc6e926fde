// Package kvstore is the single shared facade over the Redis deployment
// backing sessions and cached administrative values.
//
// # Modes
//
// "single" talks to one node (the first configured host); "cluster" talks
// to a Redis Cluster seeded from the configured nodes. Any other mode is a
// configuration error returned by Connect.
//
// # Failures
//
// Operations never panic and never swallow errors. Each failure is an
// *OpError whose kind is ErrNotFound or ErrUnavailable:
//
//	v, err := kv.Get(ctx, "user_admin")
//	switch {
//	case errors.Is(err, kvstore.ErrNotFound):
//	    // absent
//	case errors.Is(err, kvstore.ErrUnavailable):
//	    // store down or slow; treat as absent
//	}
//
// Failures are logged at warn with the key. Successful operations are
// logged at debug with the key only; values are never logged.
package kvstore
