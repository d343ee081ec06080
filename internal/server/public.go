package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/vibeyard/internal/catalog"
	"github.com/zulandar/vibeyard/internal/worker"
)

func (s *server) handleCatalog(c *gin.Context) {
	entries, err := catalog.ListLive(s.DB, s.lang(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": entries})
}

func (s *server) handleStats(c *gin.Context) {
	stats, err := catalog.ComputeStats(s.DB, s.lang(c), worker.MaxRetries)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
