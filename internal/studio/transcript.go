package studio

import (
	"time"

	"github.com/zulandar/vibeyard/internal/generate"
	"github.com/zulandar/vibeyard/internal/version"
	"gorm.io/gorm"
)

// Turn is one step of a replayed conversation.
type Turn struct {
	Number    int       `json:"number"`
	VersionID string    `json:"version_id"`
	Request   string    `json:"request"`
	Think     string    `json:"think,omitempty"`
	Manual    bool      `json:"manual"`
	CreatedAt time.Time `json:"created_at"`
}

// Transcript replays the branch leading to versionID, recovering each
// turn's reasoning from the stored raw output.
func Transcript(db *gorm.DB, versionID string) ([]Turn, error) {
	history, err := version.History(db, versionID)
	if err != nil {
		return nil, err
	}
	all, err := version.SessionVersions(db, history[0].SessionID)
	if err != nil {
		return nil, err
	}
	numbering := version.Numbering(all)

	turns := make([]Turn, 0, len(history))
	for _, v := range history {
		t := Turn{
			Number:    numbering[v.ID],
			VersionID: v.ID,
			Request:   v.UserRequest,
			Manual:    version.IsManualEdit(v),
			CreatedAt: v.CreatedAt,
		}
		if !t.Manual {
			t.Think = generate.ParseResponse(v.RawModelOutput).Think
		}
		turns = append(turns, t)
	}
	return turns, nil
}
