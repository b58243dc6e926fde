// Package logging configures structured logging for the gateway.
//
// The package builds a log/slog logger whose handler does two things on top
// of the standard JSON or text handler:
//   - adds request_id, user_id and tenant_id from the record's context
//   - masks provider keys, bearer tokens and access codes in attributes
//
// # Usage
//
//	logger, err := logging.Install(logging.ConfigFrom(cfg))
//	if err != nil {
//	    return err
//	}
//
//	ctx = logging.WithRequestID(ctx, "9f2c...")
//	slog.InfoContext(ctx, "forwarding", "authorization", header) // masked
//
// Components log through the slog package-level functions with a context,
// so the request id follows every record without passing loggers around.
package logging
