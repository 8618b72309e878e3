package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/cfclient-project/cfclient/internal/network"
)

type commandRequest struct {
	Command string `json:"command" binding:"required"`
	Repeat  uint32 `json:"repeat"`
}

type replyRequest struct {
	Text string `json:"text"`
}

type mapSizeRequest struct {
	Width  int `json:"width" binding:"required"`
	Height int `json:"height" binding:"required"`
}

type lookObjectsRequest struct {
	Count int `json:"count" binding:"required"`
}

type askFaceRequest struct {
	Max int `json:"max"`
}

// sendError maps a send failure to a response.
func sendError(c *gin.Context, err error) {
	if errors.Is(err, network.ErrNotConnected) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// handleSendCommand sends an ncom and returns its sequence number.
func (s *Server) handleSendCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	seq, err := s.conn.SendNcom(req.Repeat, req.Command)
	if err != nil {
		sendError(c, err)
		return
	}

	log.Info().Str("command", req.Command).Int("sequence", seq).Msg("command sent via API")
	c.JSON(http.StatusOK, gin.H{"sequence": seq})
}

// handleSendReply answers the pending query.
func (s *Server) handleSendReply(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.conn.SendReply(req.Text); err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// handleSetMapSize changes the preferred map size.
func (s *Server) handleSetMapSize(c *gin.Context) {
	var req mapSizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.conn.SetPreferredMapSize(req.Width, req.Height); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, s.conn.Negotiation())
}

// handleSetLookObjects changes the preferred look object count.
func (s *Server) handleSetLookObjects(c *gin.Context) {
	var req lookObjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.conn.SetPreferredNumLookObjects(req.Count); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, s.conn.Negotiation())
}

// handleFlushAskFaces requests queued face images.
func (s *Server) handleFlushAskFaces(c *gin.Context) {
	var req askFaceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	sent, err := s.conn.FlushAskFaces(req.Max)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}
