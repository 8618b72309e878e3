package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cfclient-project/cfclient/internal/model"
)

const (
	defaultPacketLimit = 100
	maxPacketLimit     = 1000
)

// handleGetState returns the handshake state and transport counters.
func (s *Server) handleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":        s.conn.State().String(),
		"login_method": s.conn.LoginMethod(),
		"account":      s.conn.AccountName(),
		"map_size":     s.conn.CurrentMapSize().String(),
		"look_objects": s.conn.NumLookObjects(),
		"transport":    s.conn.Stats(),
	})
}

// handleGetNegotiation returns the map size and look object negotiation.
func (s *Server) handleGetNegotiation(c *gin.Context) {
	c.JSON(http.StatusOK, s.conn.Negotiation())
}

// handleGetStats returns every stat received so far.
func (s *Server) handleGetStats(c *gin.Context) {
	stats := s.conn.Model().Stats().Snapshot()
	c.JSON(http.StatusOK, gin.H{"stats": stats, "count": len(stats)})
}

// handleGetItems returns the player and the inventory at ?location, the
// player's own inventory by default.
func (s *Server) handleGetItems(c *gin.Context) {
	items := s.conn.Model().Items()
	player, hasPlayer := items.Player()

	location := uint64(0)
	if hasPlayer {
		location = uint64(player.Tag)
	}
	if raw := c.Query("location"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location"})
			return
		}
		location = v
	}

	resp := gin.H{
		"location": location,
		"items":    items.Inventory(uint32(location)),
	}
	if hasPlayer {
		resp["player"] = player
	}
	c.JSON(http.StatusOK, resp)
}

// handleGetSpells returns the known spells.
func (s *Server) handleGetSpells(c *gin.Context) {
	spells := s.conn.Model().Spells().Spells()
	c.JSON(http.StatusOK, gin.H{"spells": spells, "count": len(spells)})
}

// handleGetQuests returns the known quests.
func (s *Server) handleGetQuests(c *gin.Context) {
	quests := s.conn.Model().Quests().Quests()
	c.JSON(http.StatusOK, gin.H{"quests": quests, "count": len(quests)})
}

// handleGetKnowledge returns the knowledge types and items.
func (s *Server) handleGetKnowledge(c *gin.Context) {
	k := s.conn.Model().Knowledge()
	c.JSON(http.StatusOK, gin.H{"types": k.Types(), "items": k.Items()})
}

// handleGetAccounts lists the accounts with a stored character roster.
func (s *Server) handleGetAccounts(c *gin.Context) {
	if s.roster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "capture database disabled"})
		return
	}
	accounts, err := s.roster.Accounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// handleGetCharacters returns the stored roster of one account.
func (s *Server) handleGetCharacters(c *gin.Context) {
	if s.roster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "capture database disabled"})
		return
	}
	chars, err := s.roster.Characters(c.Param("account"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": c.Param("account"), "characters": chars})
}

// handleGetPackets returns captured packets, newest first.
func (s *Server) handleGetPackets(c *gin.Context) {
	if s.capture == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "capture database disabled"})
		return
	}

	limit := defaultPacketLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = v
	}
	if limit > maxPacketLimit {
		limit = maxPacketLimit
	}

	packets, err := s.capture.Recent(limit, c.Query("command"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"packets": packets, "count": len(packets)})
}

// handleGetHealth returns the latest watchdog report.
func (s *Server) handleGetHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "health checks disabled"})
		return
	}
	report := s.health.LastReport()
	if report.CheckedAt.IsZero() {
		report = s.health.Run()
	}
	c.JSON(http.StatusOK, gin.H{"healthy": report.Healthy(), "report": report})
}

// handleGetSnapshot returns the latest stats snapshot, plus the connection
// state history when the model records it.
func (s *Server) handleGetSnapshot(c *gin.Context) {
	resp := gin.H{}
	if s.sched != nil {
		resp["snapshot"] = s.sched.LastSnapshot()
	}
	if gui, ok := s.conn.Model().GUIState().(*model.GUIState); ok {
		resp["state_history"] = gui.History()
	}
	c.JSON(http.StatusOK, resp)
}
