package model

// AuditActor identifies who triggered an audited action.
type AuditActor struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	IP       string `json:"ip,omitempty"`
}

// AuditEntry is one append-only line of the moderation audit trail.
type AuditEntry struct {
	Action     string     `json:"action"`
	OccurredAt string     `json:"occurred_at"`
	Actor      AuditActor `json:"actor"`
	Status     string     `json:"status"`
	Resource   string     `json:"resource"`
	Before     any        `json:"before,omitempty"`
	After      any        `json:"after,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type AuditListData struct {
	Items []AuditEntry `json:"items"`
}

type AuditQuery struct {
	Action  string
	ActorID string
	Status  string
	Path    string
	From    string
	To      string
	Page    int
	Limit   int
}
