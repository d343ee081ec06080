package notify

import (
	"fmt"
	"strconv"

	"github.com/zulandar/vibeyard/internal/models"
)

func appFields(app *models.Application) []Field {
	return []Field{
		{Name: "Application", Value: strconv.FormatUint(uint64(app.ID), 10), Short: true},
		{Name: "Owner", Value: app.Owner, Short: true},
	}
}

// Submitted announces a new submission awaiting review.
func Submitted(app *models.Application) Event {
	return Event{
		Title:    fmt.Sprintf("%s submitted for review", app.Name),
		Severity: SeverityInfo,
		Fields:   appFields(app),
	}
}

// Reviewed announces a review decision.
func Reviewed(app *models.Application, r models.Review) Event {
	evt := Event{
		Title:  fmt.Sprintf("%s %s by %s", app.Name, decisionVerb(r.Decision), r.Reviewer),
		Body:   r.Comments,
		Fields: appFields(app),
	}
	if r.Decision == models.DecisionApprove {
		evt.Severity = SeveritySuccess
	} else {
		evt.Severity = SeverityWarning
	}
	return evt
}

func decisionVerb(d models.Decision) string {
	if d == models.DecisionApprove {
		return "approved"
	}
	return "rejected"
}

// Published announces that an application went live.
func Published(app *models.Application) Event {
	return Event{
		Title:    fmt.Sprintf("%s is live", app.Name),
		Severity: SeveritySuccess,
		Fields:   appFields(app),
	}
}

// DerivationExhausted announces that the worker gave up on an application.
func DerivationExhausted(app *models.Application, lastErr string) Event {
	return Event{
		Title:    fmt.Sprintf("Preview and report generation failed for %s", app.Name),
		Body:     lastErr,
		Severity: SeverityError,
		Fields: append(appFields(app), Field{
			Name: "Retries", Value: strconv.Itoa(app.PreviewRetries), Short: true,
		}),
	}
}
