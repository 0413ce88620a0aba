// Package http implements the HTTP handlers of the analytics API.
//
// Handlers only deal with HTTP: they decode and validate the request body,
// call a service through a narrow interface and encode the result. Numeric
// results pass through sanitize.ToSerializable so NaN and infinities are
// sent as null.
//
// Errors are written by the shared errors.ErrorHandler as RFC 7807 problem
// documents, with one exception: the portfolio analysis endpoint answers
// with a plain {"error": "..."} body that existing clients depend on.
//
// Each handler exposes Routes, mounted by the application router under
// /api. Liveness, metrics and the websocket feed are mounted at the root.
package http
