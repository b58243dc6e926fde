// Package types defines the JSON error envelope written by the gateway
// itself, as opposed to bodies relayed from the upstream provider.
//
// Upstream responses pass through untouched. Only failures that originate
// in the gateway (panics, oversized bodies, unreachable upstream) are
// rendered with these types:
//
//	{
//	  "error": {
//	    "message": "upstream request failed",
//	    "type": "upstream_error"
//	  }
//	}
//
// Admission and path denials use the flat {"error":true,"msg":...} shape
// instead; see the auth package.
package types
