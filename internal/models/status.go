package models

// AppStatus is the lifecycle state of an Application.
type AppStatus int

const (
	StatusDraft AppStatus = iota
	StatusPendingApproval
	StatusApproved
	StatusRejected
	StatusPublished
	StatusArchived
	StatusDeleted
)

var appStatusNames = [...]string{
	"draft", "pending_approval", "approved", "rejected", "published", "archived", "deleted",
}

func (s AppStatus) String() string {
	if s < 0 || int(s) >= len(appStatusNames) {
		return "unknown"
	}
	return appStatusNames[s]
}

// ParseAppStatus maps a status name back to its value.
func ParseAppStatus(name string) (AppStatus, bool) {
	for i, n := range appStatusNames {
		if n == name {
			return AppStatus(i), true
		}
	}
	return 0, false
}

// PreviewStatus tracks the derived-artifact job for an Application.
type PreviewStatus int

const (
	PreviewNone PreviewStatus = iota
	PreviewPending
	PreviewInProgress
	PreviewCompleted
	PreviewFailed
)

var previewStatusNames = [...]string{"none", "pending", "in_progress", "completed", "failed"}

func (s PreviewStatus) String() string {
	if s < 0 || int(s) >= len(previewStatusNames) {
		return "unknown"
	}
	return previewStatusNames[s]
}

// Decision is a reviewer verdict.
type Decision int

const (
	DecisionApprove Decision = 1
	DecisionReject  Decision = 2
)

func (d Decision) String() string {
	switch d {
	case DecisionApprove:
		return "approve"
	case DecisionReject:
		return "reject"
	}
	return "unknown"
}
