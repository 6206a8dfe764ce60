package dashboard

import (
	_ "embed"
	"html/template"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

//go:embed index.html.tmpl
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

// Router builds the HTTP surface.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			AllowCredentials: true,
		}))
	}
	r.Use(s.origins.guard)

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	r.GET("/api/contracts", s.Contracts)
	r.GET("/api/accounts/:id/sequence", s.Sequence)
	r.GET("/api/history", s.History)

	session := r.Group("/", s.sessions.middleware)
	{
		session.GET("/", s.Index)
		session.GET("/api/state", s.State)
		session.POST("/api/ratio/refresh", s.RefreshRatio)
		session.POST("/api/execute", s.Execute)
		session.GET("/api/events", s.Events)
	}
	return r
}
