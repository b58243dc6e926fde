// Package handlers implements the HTTP handlers of the public listener.
//
// OpenAIHandler serves /api/openai/*. For each request it:
//
//  1. Answers OPTIONS preflights with 200 {"body":"OK"}
//  2. Rejects sub-paths outside the allow-list with 403
//  3. Runs admission (401 on deny; Authorization rewritten on permit)
//  4. Optionally rejects gpt-4 family models with 403
//  5. Forwards upstream and streams the response back, flushing per chunk
//
// Allowed sub-paths:
//
//	/
//	v1/chat/completions
//	v1/models
//	dashboard/billing/usage
//	dashboard/billing/subscription
//
// Upstream transport failures are answered with 502 and an indented
// {"error":{"message":...,"type":"upstream_error"}} body. Upstream error
// statuses are relayed unchanged.
package handlers
