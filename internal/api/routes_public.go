package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cfclient-project/cfclient/internal/protocol"
	"github.com/cfclient-project/cfclient/internal/util"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "cfclient",
		"client":  s.cfg.GetClient().ClientName,
		"protocol": gin.H{
			"cs": protocol.ClientProtocolVersion,
			"sc": protocol.ServerProtocolVersion,
		},
	})
}

// handleGetSystem returns host and process information.
func (s *Server) handleGetSystem(c *gin.Context) {
	sysInfo := util.GetSystemInfo()
	resp := gin.H{
		"hostname":        sysInfo.Hostname,
		"os":              sysInfo.OS,
		"arch":            sysInfo.Architecture,
		"cpu_model":       sysInfo.CPUModel,
		"cpu_cores":       sysInfo.CPUCores,
		"total_memory_mb": sysInfo.TotalMemory,
		"go_version":      sysInfo.GoVersion,
	}
	if usage, err := util.GetProcessUsage(); err == nil {
		resp["process"] = usage
	}
	c.JSON(http.StatusOK, resp)
}
