package middleware

import "github.com/gin-gonic/gin"

// SandboxPolicy is the Content-Security-Policy served with preview
// documents. Scripts run in an opaque origin: no same-origin access to the
// host, its storage or its cookies.
const SandboxPolicy = "sandbox allow-scripts allow-modals allow-forms allow-popups"

// Sandbox marks responses as untrusted user documents
func Sandbox() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Security-Policy", SandboxPolicy)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		c.Next()
	}
}

// NoStore disables caching of API responses
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
