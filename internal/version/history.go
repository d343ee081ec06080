package version

import (
	"fmt"
	"strings"

	"github.com/zulandar/vibeyard/internal/models"
	"gorm.io/gorm"
)

// History returns the chain of versions from the session root down to
// versionID, oldest first. The walk is bounded by the number of versions in
// the session, so a cycle or a dangling parent yields ErrCorruptGraph.
func History(db *gorm.DB, versionID string) ([]models.Version, error) {
	tip, err := Get(db, versionID)
	if err != nil {
		return nil, err
	}
	arena, err := SessionVersions(db, tip.SessionID)
	if err != nil {
		return nil, err
	}
	return walk(arena, tip.ID)
}

// walk follows parent links inside one session's arena.
func walk(arena []models.Version, tipID string) ([]models.Version, error) {
	byID := make(map[string]*models.Version, len(arena))
	for i := range arena {
		byID[arena[i].ID] = &arena[i]
	}

	var chain []models.Version
	cur, ok := byID[tipID]
	if !ok {
		return nil, fmt.Errorf("%w: %s not in its session", ErrCorruptGraph, tipID)
	}
	for steps := 0; ; steps++ {
		if steps >= len(arena) {
			return nil, fmt.Errorf("%w: walk from %s exceeded %d steps", ErrCorruptGraph, tipID, len(arena))
		}
		chain = append(chain, *cur)
		if cur.ParentID == nil {
			break
		}
		next, ok := byID[*cur.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: %s points at missing parent %s", ErrCorruptGraph, cur.ID, *cur.ParentID)
		}
		cur = next
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Numbering assigns 1-based display numbers in creation order.
func Numbering(versions []models.Version) map[string]int {
	n := make(map[string]int, len(versions))
	for i, v := range versions {
		n[v.ID] = i + 1
	}
	return n
}

// IsManualEdit reports whether v came from a direct code edit.
func IsManualEdit(v models.Version) bool {
	return v.UserRequest == ManualEditRequest
}

// ConversationContext renders a branch history as prompt context, one line
// per version.
func ConversationContext(history []models.Version, numbering map[string]int) string {
	if len(history) == 0 {
		return "No history"
	}
	var b strings.Builder
	for i, v := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		req := v.UserRequest
		if IsManualEdit(v) {
			req = "[manual code edit]"
		}
		fmt.Fprintf(&b, "V%d: %s", numbering[v.ID], req)
	}
	return b.String()
}
