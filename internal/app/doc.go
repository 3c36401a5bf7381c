// Package app wires configuration, logging, telemetry, the index store, the
// websocket hub and the HTTP router into one Application and manages its
// lifecycle.
//
// The usual entry point is:
//
//	application, err := app.New()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Run blocks until SIGINT or SIGTERM, then shuts the server down within
// the configured shutdown timeout, stops the hub and flushes telemetry.
package app
