// Package httputil provides HTTP handler utilities for consistent error handling,
// JSON encoding/decoding, request parsing and the common middleware chain.
//
// Error responses always carry the status code in the body:
//
//	{"code": 401, "error": "token revoked"}
//
// Middleware order used by the API server:
//
//	RequestIDMiddleware -> LoggingMiddleware -> RecoveryMiddleware -> handlers
package httputil
