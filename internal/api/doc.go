// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It adapts the study service and the live session
// runtime to JSON over HTTP.
package api
