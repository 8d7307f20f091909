package integration

import (
	"time"

	"github.com/pulsewatch/pulsewatch/internal/domain/check"
)

type Type string

const (
	TypeWebhook Type = "webhook"
	TypeEmail   Type = "email"
)

func (t Type) Valid() bool { return t == TypeWebhook || t == TypeEmail }

// Integration is a notification rule bound to one check. Target is a URL for
// webhooks and a recipient address for email.
type Integration struct {
	ID        int64          `json:"id"`
	CheckID   int64          `json:"check_id"`
	Type      Type           `json:"type"`
	Name      string         `json:"name"`
	Target    string         `json:"target"`
	NotifyOn  []check.Status `json:"notify_on"`
	Enabled   bool           `json:"enabled"`
	CreatedAt time.Time      `json:"created_at"`
}

// WantsStatus reports whether the rule subscribes to transitions into s.
func (i *Integration) WantsStatus(s check.Status) bool {
	for _, w := range i.NotifyOn {
		if w == s {
			return true
		}
	}
	return false
}
