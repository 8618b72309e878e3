package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const redacted = "********"

// handleGetConfig returns the configuration with secrets redacted.
func (s *Server) handleGetConfig(c *gin.Context) {
	srv := s.cfg.GetServer()
	if srv.AccountPassword != "" {
		srv.AccountPassword = redacted
	}
	c.JSON(http.StatusOK, gin.H{
		"server":           srv,
		"client":           s.cfg.GetClient(),
		"application_data": s.cfg.GetApplicationData(),
	})
}

type clientFieldRequest struct {
	Key   string      `json:"key" binding:"required"`
	Value interface{} `json:"value"`
}

// handleSetClientField updates one client option and saves the config.
// Options take effect on the next start.
func (s *Server) handleSetClientField(c *gin.Context) {
	var req clientFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.cfg.UpdateClientField(req.Key, req.Value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.cfg.Path() != "" {
		if err := s.cfg.Save(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save config: " + err.Error()})
			return
		}
	}

	log.Info().Str("key", req.Key).Msg("client option updated via API")
	c.JSON(http.StatusOK, gin.H{"client": s.cfg.GetClient()})
}
