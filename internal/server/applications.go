package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/vibeyard/internal/lifecycle"
	"github.com/zulandar/vibeyard/internal/messaging"
	"github.com/zulandar/vibeyard/internal/models"
	"github.com/zulandar/vibeyard/internal/notify"
)

// loadApp resolves :id and checks that the caller owns it, or is an
// administrator when adminOK is set.
func (s *server) loadApp(c *gin.Context, adminOK bool) (*models.Application, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid application id %q", c.Param("id")))
		return nil, false
	}
	app, err := lifecycle.Get(s.DB, uint(id))
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	if app.Owner != user(c) && !(adminOK && isAdmin(c)) {
		s.writeError(c, fmt.Errorf("%w: application %d", errForbidden, app.ID))
		return nil, false
	}
	return app, true
}

func (s *server) handleListApplications(c *gin.Context) {
	var (
		apps []models.Application
		err  error
	)
	if name := c.Query("status"); name != "" {
		if !isAdmin(c) {
			s.writeError(c, fmt.Errorf("%w: listing by status", errForbidden))
			return
		}
		status, ok := models.ParseAppStatus(name)
		if !ok {
			badRequest(c, fmt.Errorf("unknown status %q", name))
			return
		}
		apps, err = lifecycle.ListByStatus(s.DB, status)
	} else {
		apps, err = lifecycle.ListByOwner(s.DB, user(c))
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": appViews(apps)})
}

type submitBody struct {
	VersionID string `json:"version_id" binding:"required"`
	Name      string `json:"name"`
}

func (s *server) handleSubmit(c *gin.Context) {
	var body submitBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	app, ok := s.loadApp(c, false)
	if !ok {
		return
	}
	updated, err := lifecycle.Submit(s.DB, app.ID, body.VersionID, body.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	notify.Send(c.Request.Context(), s.Notifier, s.Log, notify.Submitted(updated))
	c.JSON(http.StatusOK, newAppView(updated))
}

func (s *server) handleCancel(c *gin.Context) {
	app, ok := s.loadApp(c, false)
	if !ok {
		return
	}
	updated, err := lifecycle.CancelSubmission(s.DB, app.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAppView(updated))
}

type reviewBody struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Comments string `json:"comments"`
}

func (s *server) handleReview(c *gin.Context) {
	var body reviewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	app, ok := s.loadApp(c, true)
	if !ok {
		return
	}
	decision := models.DecisionReject
	if body.Decision == "approve" {
		decision = models.DecisionApprove
	}
	out, err := lifecycle.Review(s.DB, app.ID, lifecycle.ReviewOpts{
		Reviewer: user(c),
		Decision: decision,
		Comments: body.Comments,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	notify.Send(ctx, s.Notifier, s.Log, notify.Reviewed(out.Application, out.Review))
	if out.Published {
		notify.Send(ctx, s.Notifier, s.Log, notify.Published(out.Application))
	}
	if err := messaging.ReviewDecided(s.DB, out.Application, out.Review, out.Published); err != nil {
		s.Log.Error("owner message failed", "app", app.ID, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"application": newAppView(out.Application),
		"review_id":   out.Review.ID,
		"published":   out.Published,
	})
}

func (s *server) handlePublish(c *gin.Context) {
	app, ok := s.loadApp(c, true)
	if !ok {
		return
	}
	updated, err := lifecycle.Publish(s.DB, app.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	notify.Send(c.Request.Context(), s.Notifier, s.Log, notify.Published(updated))
	c.JSON(http.StatusOK, newAppView(updated))
}

// handleArchive archives for the owner. An administrator acting on someone
// else's application unpublishes it instead.
func (s *server) handleArchive(c *gin.Context) {
	app, ok := s.loadApp(c, true)
	if !ok {
		return
	}
	byAdmin := app.Owner != user(c)
	updated, err := lifecycle.Archive(s.DB, app.ID, byAdmin)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if byAdmin {
		s.Log.Info("application unpublished by administrator", "app", app.ID, "admin", user(c))
		if err := messaging.TakenDown(s.DB, updated, user(c)); err != nil {
			s.Log.Error("owner message failed", "app", app.ID, "error", err)
		}
	}
	c.JSON(http.StatusOK, newAppView(updated))
}

func (s *server) handleDelete(c *gin.Context) {
	app, ok := s.loadApp(c, false)
	if !ok {
		return
	}
	updated, err := lifecycle.Delete(s.DB, app.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAppView(updated))
}

func (s *server) handleReviews(c *gin.Context) {
	app, ok := s.loadApp(c, true)
	if !ok {
		return
	}
	reviews, err := lifecycle.Reviews(s.DB, app.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]gin.H, len(reviews))
	for i, r := range reviews {
		out[i] = gin.H{
			"id":         r.ID,
			"version_id": r.VersionID,
			"reviewer":   r.Reviewer,
			"decision":   decisionName(r.Decision),
			"comments":   r.Comments,
			"created_at": r.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"reviews": out})
}

func decisionName(d models.Decision) string {
	if d == models.DecisionApprove {
		return "approve"
	}
	return "reject"
}
