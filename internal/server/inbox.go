package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/vibeyard/internal/messaging"
	"github.com/zulandar/vibeyard/internal/models"
)

type messageView struct {
	ID            uint      `json:"id"`
	Sender        string    `json:"sender"`
	ApplicationID *uint     `json:"application_id"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body,omitempty"`
	Priority      string    `json:"priority"`
	CreatedAt     time.Time `json:"created_at"`
}

func newMessageView(m models.Message) messageView {
	return messageView{
		ID:            m.ID,
		Sender:        m.Sender,
		ApplicationID: m.ApplicationID,
		Subject:       m.Subject,
		Body:          m.Body,
		Priority:      m.Priority,
		CreatedAt:     m.CreatedAt,
	}
}

func (s *server) handleInbox(c *gin.Context) {
	msgs, err := messaging.Inbox(s.DB, user(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]messageView, len(msgs))
	for i, m := range msgs {
		out[i] = newMessageView(m)
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (s *server) handleAcknowledge(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid message id %q", c.Param("id")))
		return
	}
	if err := messaging.Acknowledge(s.DB, uint(id), user(c)); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
