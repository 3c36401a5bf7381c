// Package services implements the business logic layer of the daily index
// API. Handlers depend on the interfaces they consume; the concrete services
// here own state and cross-cutting concerns (logging, metrics, tracing).
//
// # Available Services
//
//	- IndexService: owns the in-memory index table; load, merge, reset,
//	  lookup and pagination
//	- HealthService: liveness, readiness and version information
//
// # Error Handling
//
// Services return sentinel errors wrapped with fmt.Errorf("...: %w", err).
// Callers classify them with errors.Is:
//
//	pages, err := svc.Paginate(ctx, "FOO")
//	if errors.Is(err, services.ErrInvalidArgument) {
//	    // 400
//	}
package services
