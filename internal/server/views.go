package server

import (
	"time"

	"github.com/zulandar/vibeyard/internal/models"
	"github.com/zulandar/vibeyard/internal/worker"
)

type versionView struct {
	ID                    string    `json:"id"`
	SessionID             string    `json:"session_id"`
	ParentID              *string   `json:"parent_id"`
	Number                int       `json:"number,omitempty"`
	UserRequest           string    `json:"user_request"`
	Content               string    `json:"content,omitempty"`
	HasPreview            bool      `json:"has_preview"`
	FunctionalDescription string    `json:"functional_description,omitempty"`
	OperatingInstructions string    `json:"operating_instructions,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

func newVersionView(v *models.Version, number int, withContent bool) versionView {
	view := versionView{
		ID:                    v.ID,
		SessionID:             v.SessionID,
		ParentID:              v.ParentID,
		Number:                number,
		UserRequest:           v.UserRequest,
		HasPreview:            v.PreviewArtifact != nil,
		FunctionalDescription: v.FunctionalDescription,
		OperatingInstructions: v.OperatingInstructions,
		CreatedAt:             v.CreatedAt,
	}
	if withContent {
		view.Content = v.Content
	}
	return view
}

type appView struct {
	ID                       uint       `json:"id"`
	SessionID                string     `json:"session_id"`
	Owner                    string     `json:"owner"`
	Name                     string     `json:"name"`
	Description              string     `json:"description"`
	Status                   string     `json:"status"`
	LatestSubmittedVersionID *string    `json:"latest_submitted_version_id"`
	LiveVersionID            *string    `json:"live_version_id"`
	SubmittedAt              *time.Time `json:"submitted_at"`
	LastReviewedAt           *time.Time `json:"last_reviewed_at"`
	PublishedAt              *time.Time `json:"published_at"`
	PreviewStatus            string     `json:"preview_status"`
	PreviewRetries           int        `json:"preview_retries"`
	PreviewError             string     `json:"preview_error,omitempty"`
	PreviewExhausted         bool       `json:"preview_exhausted"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

func newAppView(a *models.Application) appView {
	return appView{
		ID:                       a.ID,
		SessionID:                a.SessionID,
		Owner:                    a.Owner,
		Name:                     a.Name,
		Description:              a.Description,
		Status:                   a.Status.String(),
		LatestSubmittedVersionID: a.LatestSubmittedVersionID,
		LiveVersionID:            a.LiveVersionID,
		SubmittedAt:              a.SubmittedAt,
		LastReviewedAt:           a.LastReviewedAt,
		PublishedAt:              a.PublishedAt,
		PreviewStatus:            a.PreviewStatus.String(),
		PreviewRetries:           a.PreviewRetries,
		PreviewError:             a.PreviewError,
		PreviewExhausted:         worker.Exhausted(a),
		UpdatedAt:                a.UpdatedAt,
	}
}

func appViews(apps []models.Application) []appView {
	out := make([]appView, len(apps))
	for i := range apps {
		out[i] = newAppView(&apps[i])
	}
	return out
}
