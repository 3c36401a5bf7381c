// Package http implements the HTTP handlers of the index service. Handlers
// stay thin: they parse and validate the request, call the service layer and
// translate service errors into RFC 7807 problem details through
// errors.ErrorHandler.
//
// Routes are mounted by each handler's Routes method so the application
// router only composes middleware and mounts.
package http
