package messaging

import (
	"fmt"

	"github.com/zulandar/vibeyard/internal/models"
	"gorm.io/gorm"
)

// ReviewDecided tells the owner how their submission was reviewed.
func ReviewDecided(db *gorm.DB, app *models.Application, r models.Review, published bool) error {
	var subject string
	switch {
	case r.Decision == models.DecisionReject:
		subject = fmt.Sprintf("%s was rejected", app.Name)
	case published:
		subject = fmt.Sprintf("%s was approved and is now live", app.Name)
	default:
		subject = fmt.Sprintf("%s was approved and can be published", app.Name)
	}
	_, err := Send(db, r.Reviewer, app.Owner, subject, r.Comments, SendOpts{ApplicationID: app.ID})
	return err
}

// TakenDown tells the owner an administrator pulled their application.
func TakenDown(db *gorm.DB, app *models.Application, admin string) error {
	subject := fmt.Sprintf("%s was taken down by an administrator", app.Name)
	_, err := Send(db, admin, app.Owner, subject, "", SendOpts{ApplicationID: app.ID, Priority: PriorityUrgent})
	return err
}

// DerivationFailed tells the owner the worker stopped retrying previews and
// reports for their application.
func DerivationFailed(db *gorm.DB, app *models.Application, lastErr string) error {
	subject := fmt.Sprintf("Preview generation for %s failed", app.Name)
	body := "Generation was retried without success. Submit again to retry.\n\nLast error: " + lastErr
	_, err := Send(db, SenderWorker, app.Owner, subject, body, SendOpts{ApplicationID: app.ID, Priority: PriorityUrgent})
	return err
}
