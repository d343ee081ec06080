package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/zulandar/vibeyard/internal/generate"
	"github.com/zulandar/vibeyard/internal/lifecycle"
	"github.com/zulandar/vibeyard/internal/models"
	"github.com/zulandar/vibeyard/internal/studio"
	"github.com/zulandar/vibeyard/internal/version"
)

func (s *server) handleCreateSession(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"session_id": uuid.NewString()})
}

// checkSession allows the session owner and administrators.
func (s *server) checkSession(c *gin.Context, sessionID string) error {
	if isAdmin(c) {
		return nil
	}
	return studio.CheckOwner(s.DB, sessionID, user(c))
}

func (s *server) handleSessionVersions(c *gin.Context) {
	sid := c.Param("sid")
	if err := s.checkSession(c, sid); err != nil {
		s.writeError(c, err)
		return
	}
	versions, err := version.SessionVersions(s.DB, sid)
	if err != nil {
		s.writeError(c, err)
		return
	}
	views := make([]versionView, len(versions))
	for i := range versions {
		views[i] = newVersionView(&versions[i], i+1, false)
	}
	c.JSON(http.StatusOK, gin.H{"versions": views})
}

func (s *server) handleSessionApplication(c *gin.Context) {
	sid := c.Param("sid")
	if err := s.checkSession(c, sid); err != nil {
		s.writeError(c, err)
		return
	}
	app, err := lifecycle.GetBySession(s.DB, sid)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAppView(app))
}

type generateBody struct {
	ParentID string `json:"parent_id"`
	Request  string `json:"request" binding:"required"`
	Lang     string `json:"lang"`
}

// handleGenerate streams tokens as SSE "token" events and finishes with a
// "version" or an "error" event. The error event echoes the request so the
// client can restore its input.
func (s *server) handleGenerate(c *gin.Context) {
	var body generateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	sid := c.Param("sid")
	stream := &sseStream{c: c}

	out, err := s.Studio.Generate(c.Request.Context(), studio.GenerateOpts{
		SessionID: sid,
		Owner:     user(c),
		ParentID:  body.ParentID,
		Request:   body.Request,
		Lang:      body.Lang,
		OnToken: func(tok string) {
			stream.send("token", gin.H{"text": tok})
		},
	})
	if err != nil {
		if errors.Is(err, generate.ErrCancelled) {
			s.Log.Info("generation cancelled by client", "session", sid)
			if !stream.started {
				c.Status(499)
			}
			return
		}
		if !stream.started {
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "kind": generate.Kind(err), "request": body.Request})
			return
		}
		stream.send("error", gin.H{"error": err.Error(), "kind": generate.Kind(err), "request": body.Request})
		return
	}

	stream.send("version", gin.H{
		"version_id":     out.Version.ID,
		"parent_id":      out.Version.ParentID,
		"application_id": out.Application.ID,
		"think":          out.Think,
		"model":          out.Model,
	})
}

type editBody struct {
	ParentID string `json:"parent_id" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

func (s *server) handleManualEdit(c *gin.Context) {
	var body editBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	out, err := s.Studio.ManualEdit(studio.ManualEditOpts{
		SessionID: c.Param("sid"),
		Owner:     user(c),
		ParentID:  body.ParentID,
		Content:   body.Content,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"version":     newVersionView(out.Version, 0, false),
		"application": newAppView(out.Application),
	})
}

// loadReadable returns a version the caller may read: their own, any for
// administrators, and live versions of published applications for everyone.
func (s *server) loadReadable(c *gin.Context, id string) (*models.Version, error) {
	v, err := version.Get(s.DB, id)
	if err != nil {
		return nil, err
	}
	if isAdmin(c) {
		return v, nil
	}
	app, err := lifecycle.GetBySession(s.DB, v.SessionID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return v, nil
	}
	if err != nil {
		return nil, err
	}
	if app.Owner == user(c) {
		return v, nil
	}
	if app.Status == models.StatusPublished && app.LiveVersionID != nil && *app.LiveVersionID == v.ID {
		return v, nil
	}
	return nil, errForbidden
}
