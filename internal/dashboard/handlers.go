package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"govdash/internal/governance"
	"govdash/internal/horizon"
	"govdash/internal/journal"
	"govdash/internal/monitor"
)

type executeReq struct {
	Target   string `form:"target"    json:"target"`
	NewValue string `form:"new_value" json:"new_value"`
}

type contractsRes struct {
	Governance string `json:"governance"`
	XAsset     string `json:"xasset"`
	Wallet     string `json:"wallet,omitempty"`
	Network    string `json:"network"`
}

type sequenceRes struct {
	State        string `json:"state"`
	AccountID    string `json:"account_id"`
	NextSequence string `json:"next_sequence,omitempty"`
	Message      string `json:"message,omitempty"`
}

type indexData struct {
	View    governance.View
	Latest  *monitor.Reading
	History []journal.Entry
	Network string
}

// GET /
func (s *Server) Index(c *gin.Context) {
	data := indexData{View: flowFrom(c).View(), Network: s.opts.Passphrase}
	if s.monitor != nil {
		if r, ok := s.monitor.Latest(); ok {
			data.Latest = &r
		}
	}
	if s.history != nil {
		data.History = newestFirst(s.history.Snapshot(), 10)
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := indexTemplate.Execute(c.Writer, data); err != nil {
		s.log.Error().Err(err).Msg("render dashboard")
	}
}

// GET /api/state
func (s *Server) State(c *gin.Context) {
	c.JSON(http.StatusOK, flowFrom(c).View())
}

// POST /api/ratio/refresh
func (s *Server) RefreshRatio(c *gin.Context) {
	v, err := flowFrom(c).LoadRatio(c.Request.Context())
	s.respondView(c, v, err)
}

// POST /api/execute
func (s *Server) Execute(c *gin.Context) {
	var req executeReq
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := flowFrom(c).ExecuteChange(c.Request.Context(), req.Target, req.NewValue)
	if err == nil && v.Execute.Phase == governance.Succeeded && v.Wallet != "" && s.cache != nil {
		// the submission consumed a sequence number
		s.cache.Invalidate(v.Wallet, "")
	}
	s.respondView(c, v, err)
}

func (s *Server) respondView(c *gin.Context, v governance.View, err error) {
	if c.ContentType() == "application/x-www-form-urlencoded" {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if errors.Is(err, governance.ErrActionPending) {
		c.JSON(http.StatusConflict, v)
		return
	}
	c.JSON(http.StatusOK, v)
}

// GET /api/events
func (s *Server) Events(c *gin.Context) {
	flow := flowFrom(c)
	s.hub.serve(c.Writer, c.Request, flow.Session(), flow.View())
}

// GET /api/contracts
func (s *Server) Contracts(c *gin.Context) {
	res := contractsRes{Network: s.opts.Passphrase}
	if s.deps.Governance != nil {
		res.Governance = s.deps.Governance.ContractID()
	}
	if s.deps.XAsset != nil {
		res.XAsset = s.deps.XAsset.ContractID()
	}
	if s.deps.Wallet != nil {
		res.Wallet = s.deps.Wallet.Address()
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/accounts/:id/sequence?unique_id=
func (s *Server) Sequence(c *gin.Context) {
	if s.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sequence lookups are not configured"})
		return
	}
	res, err := s.cache.Fetch(c.Request.Context(), horizon.Query{
		PublicKey:  c.Param("id"),
		HorizonURL: s.opts.HorizonURL,
		Headers:    s.opts.Headers,
		UniqueID:   c.Query("unique_id"),
		Enabled:    true,
	})
	if err != nil {
		c.JSON(sequenceStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sequenceRes{
		State:        res.State.String(),
		AccountID:    res.AccountID,
		NextSequence: res.NextSequence,
		Message:      res.Message,
	})
}

func sequenceStatus(err error) int {
	switch {
	case horizon.IsKind(err, horizon.KindServerUnreachable):
		return http.StatusServiceUnavailable
	case horizon.IsKind(err, horizon.KindRequestFailed), horizon.IsKind(err, horizon.KindNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// GET /api/history
func (s *Server) History(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, []journal.Entry{})
		return
	}
	c.JSON(http.StatusOK, newestFirst(s.history.Snapshot(), 0))
}

func newestFirst(entries []journal.Entry, limit int) []journal.Entry {
	out := make([]journal.Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, entries[i])
	}
	return out
}
