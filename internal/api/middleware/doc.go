// Package middleware provides the HTTP middleware of the livepen server.
//
//   - CORS: cross-origin access to the editor API
//   - RateLimit: per-IP token bucket limiting, idle clients evicted
//   - GlobalRateLimit: one bucket shared by all clients
//   - Sandbox: sandboxing headers for served preview documents
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
//	router.GET("/preview/:id", middleware.Sandbox(), handlers.Preview)
package middleware
