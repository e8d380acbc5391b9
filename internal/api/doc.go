// Package api handles incoming HTTP requests, request validation and
// response formatting. It adapts the skills extractor, the task runner and
// the performance dashboard to JSON endpoints.
package api
