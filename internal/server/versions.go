package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/vibeyard/internal/generate"
	"github.com/zulandar/vibeyard/internal/share"
	"github.com/zulandar/vibeyard/internal/studio"
	"github.com/zulandar/vibeyard/internal/tagger"
	"github.com/zulandar/vibeyard/internal/version"
)

func (s *server) handleVersion(c *gin.Context) {
	v, err := s.loadReadable(c, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newVersionView(v, 0, true))
}

func (s *server) handleHistory(c *gin.Context) {
	v, err := s.loadReadable(c, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	turns, err := studio.Transcript(s.DB, v.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"turns": turns})
}

// handleRender serves the version as a page. ?preview=1 serves the
// catalog tile instead.
func (s *server) handleRender(c *gin.Context) {
	v, err := s.loadReadable(c, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	body := v.Content
	if c.Query("preview") != "" {
		if v.PreviewArtifact == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no preview for version " + v.ID})
			return
		}
		body = *v.PreviewArtifact
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
}

func (s *server) lang(c *gin.Context) string {
	if l := c.Query("lang"); l != "" {
		return l
	}
	return s.Lang
}

func (s *server) handleReport(c *gin.Context) {
	v, err := s.loadReadable(c, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	feats, err := tagger.ForVersion(s.DB, v.ID, s.lang(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"version_id":             v.ID,
		"features":               feats,
		"functional_description": v.FunctionalDescription,
		"operating_instructions": v.OperatingInstructions,
	})
}

// handleGenerateReport runs risk analysis for a version now instead of
// waiting for the worker. Only the owner or an admin may run it, since it
// spends a model call and rewrites the version's tags.
func (s *server) handleGenerateReport(c *gin.Context) {
	if s.Reporter == nil {
		s.writeError(c, fmt.Errorf("%w: report generation is disabled", generate.ErrConfig))
		return
	}
	v, err := version.Get(s.DB, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !isAdmin(c) {
		if err := studio.CheckOwner(s.DB, v.SessionID, user(c)); err != nil {
			s.writeError(c, err)
			return
		}
	}
	lang := s.lang(c)
	vocab, err := tagger.Vocabulary(s.DB)
	if err != nil {
		s.writeError(c, err)
		return
	}
	report, err := s.Reporter.Report(c.Request.Context(), generate.ReportRequest{HTML: v.Content, Lang: lang, Existing: vocab})
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := tagger.TagVersion(s.DB, v.ID, report, lang); err != nil {
		s.writeError(c, err)
		return
	}
	s.handleReport(c)
}

type shareBody struct {
	TTLSeconds int64 `json:"ttl_seconds"`
}

func (s *server) handleCreateShare(c *gin.Context) {
	var body shareBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
	}
	v, err := version.Get(s.DB, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := studio.CheckOwner(s.DB, v.SessionID, user(c)); err != nil {
		s.writeError(c, err)
		return
	}
	sh, err := share.Create(s.DB, v.ID, user(c), time.Duration(body.TTLSeconds)*time.Second)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"share_id": sh.ShareID, "version_id": sh.VersionID, "expires_at": sh.ExpiresAt})
}

func (s *server) handleListShares(c *gin.Context) {
	shares, err := share.ListByOwner(s.DB, user(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]gin.H, len(shares))
	for i, sh := range shares {
		out[i] = gin.H{"share_id": sh.ShareID, "version_id": sh.VersionID, "expires_at": sh.ExpiresAt, "created_at": sh.CreatedAt}
	}
	c.JSON(http.StatusOK, gin.H{"shares": out})
}

func (s *server) handleShareRender(c *gin.Context) {
	v, err := share.Resolve(s.DB, c.Param("shareID"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(v.Content))
}

func (s *server) handleDeleteShare(c *gin.Context) {
	if err := share.Delete(s.DB, c.Param("shareID"), user(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
