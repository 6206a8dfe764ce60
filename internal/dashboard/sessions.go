package dashboard

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"govdash/internal/governance"
)

const (
	sessionCookie  = "govdash_session"
	sessionMaxAge  = 24 * time.Hour
	flowContextKey = "govdash.flow"
)

type sessionEntry struct {
	flow     *governance.Flow
	lastSeen time.Time
}

// sessions gives every browser its own governance flow.
type sessions struct {
	deps governance.Deps
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

func newSessions(deps governance.Deps) *sessions {
	return &sessions{deps: deps, now: time.Now, entries: make(map[string]*sessionEntry)}
}

func (s *sessions) get(id string) *governance.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[id]; ok {
		e.lastSeen = now
		return e.flow
	}
	for key, e := range s.entries {
		if now.Sub(e.lastSeen) > sessionMaxAge {
			delete(s.entries, key)
		}
	}
	e := &sessionEntry{flow: governance.NewFlow(s.deps, id), lastSeen: now}
	s.entries[id] = e
	return e.flow
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sessionMiddleware resolves the session cookie, issuing a fresh id when it is absent or malformed.
func (s *sessions) middleware(c *gin.Context) {
	id, err := c.Cookie(sessionCookie)
	if err == nil {
		_, err = uuid.Parse(id)
	}
	if err != nil {
		id = uuid.NewString()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, id, int(sessionMaxAge.Seconds()), "/", "", false, true)
	}
	c.Set(flowContextKey, s.get(id))
	c.Next()
}

func flowFrom(c *gin.Context) *governance.Flow {
	return c.MustGet(flowContextKey).(*governance.Flow)
}
