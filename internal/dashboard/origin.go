package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// origins accepts requests from the dashboard's own host and from the configured allowlist.
// A missing Origin header is accepted so non-browser clients keep working.
type origins map[string]struct{}

func newOrigins(allowed []string) origins {
	o := make(origins, len(allowed))
	for _, a := range allowed {
		o[a] = struct{}{}
	}
	return o
}

func (o origins) allow(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	_, ok := o[origin]
	return ok
}

// guard rejects state-changing requests from foreign pages before a session or flow is touched.
func (o origins) guard(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		c.Next()
		return
	}
	if !o.allow(c.Request) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "cross-origin request rejected"})
		return
	}
	c.Next()
}
