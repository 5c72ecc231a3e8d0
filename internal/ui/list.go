package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/mwx/internal/models"
)

var _ list.Item = subscriberItem{}

// subscriberItem wraps [models.Subscriber] to implement [list.Item].
type subscriberItem struct {
	subscriber models.Subscriber
	key        string
}

func (i subscriberItem) FilterValue() string { return i.Title() }

// Title shows the duplicate criteria field, falling back to the first field with a value.
func (i subscriberItem) Title() string {
	if f, ok := i.subscriber.Field(i.key); ok && f.Value != "" {
		return f.Value
	}
	for _, f := range i.subscriber.Fields {
		if f.Value != "" {
			return f.String()
		}
	}
	return "(no fields)"
}

func (i subscriberItem) Description() string {
	parts := []string{fmt.Sprintf("%d fields", len(i.subscriber.Fields))}
	if i.subscriber.MailFormat != "" {
		parts = append(parts, string(i.subscriber.MailFormat))
	}
	if i.subscriber.Status != models.StatusUnchanged {
		parts = append(parts, string(i.subscriber.Status))
	}
	if i.subscriber.Language != "" {
		parts = append(parts, i.subscriber.Language)
	}
	if i.subscriber.OptIn {
		parts = append(parts, "opt-in")
	}
	return strings.Join(parts, " • ")
}
