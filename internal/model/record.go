package model

import (
	"fmt"
	"strings"
)

// RecordKind discriminates the closed set of moderatable entity variants.
type RecordKind string

const (
	RecordKindAccount RecordKind = "account"
	RecordKindMedia   RecordKind = "media"
	RecordKindEvent   RecordKind = "event"
)

// VariantOrder fixes the order variants appear in catalogs and summaries so
// the menu is stable across re-renders for the same selection composition.
var VariantOrder = []RecordKind{RecordKindAccount, RecordKindMedia, RecordKindEvent}

func (k RecordKind) Valid() bool {
	switch k {
	case RecordKindAccount, RecordKindMedia, RecordKindEvent:
		return true
	}
	return false
}

type AccountRecord struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Status   string `json:"status,omitempty"`
}

type MediaRecord struct {
	Title      string `json:"title"`
	UploaderID string `json:"uploader_id,omitempty"`
	Status     string `json:"status,omitempty"`
}

type EventRecord struct {
	Title    string `json:"title"`
	StartsAt string `json:"starts_at,omitempty"`
	Status   string `json:"status,omitempty"`
}

// SelectableRecord is a read-only reference to a moderatable entity. Exactly
// one of the variant payloads is set, matching Kind. The console never mutates
// record content, only selection membership.
type SelectableRecord struct {
	ID      string         `json:"id"`
	Kind    RecordKind     `json:"kind"`
	Account *AccountRecord `json:"account,omitempty"`
	Media   *MediaRecord   `json:"media,omitempty"`
	Event   *EventRecord   `json:"event,omitempty"`
}

func (r SelectableRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("record id is required")
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("unknown record kind %q", r.Kind)
	}

	switch r.Kind {
	case RecordKindAccount:
		if r.Account == nil {
			return fmt.Errorf("record %s: account payload is required", r.ID)
		}
	case RecordKindMedia:
		if r.Media == nil {
			return fmt.Errorf("record %s: media payload is required", r.ID)
		}
	case RecordKindEvent:
		if r.Event == nil {
			return fmt.Errorf("record %s: event payload is required", r.ID)
		}
	}

	return nil
}

// DisplayLabel returns the human-readable name shown in result listings.
func (r SelectableRecord) DisplayLabel() string {
	switch r.Kind {
	case RecordKindAccount:
		if r.Account != nil {
			return r.Account.Username
		}
	case RecordKindMedia:
		if r.Media != nil {
			return r.Media.Title
		}
	case RecordKindEvent:
		if r.Event != nil {
			return r.Event.Title
		}
	}
	return r.ID
}
