// package models defines the data model for the mailworx campaign workflow
package models

import (
	"time"

	"github.com/google/uuid"
)

// SecurityContext holds the login data sent with every webservice request.
type SecurityContext struct {
	Account  string // Name of the mailworx account
	Username string
	Password string
	Source   string // Registered name of the calling application
}

// ProfileType distinguishes static from dynamic profiles. Only static profiles can be import targets.
type ProfileType string

const (
	ProfileTypeStatic  ProfileType = "Static"
	ProfileTypeDynamic ProfileType = "Dynamic"
)

// Profile is a named subscriber group.
type Profile struct {
	ID   uuid.UUID
	Name string
	Type ProfileType
}

// MailFormat is the format a subscriber receives newsletters in.
type MailFormat string

const (
	MailFormatMultipart MailFormat = "Multipart"
	MailFormatHTML      MailFormat = "HTML"
	MailFormatText      MailFormat = "Text"
)

// SubscriberStatus is the requested status change for an imported subscriber.
//
// The zero value leaves the status of existing subscribers unchanged.
type SubscriberStatus string

const (
	StatusUnchanged              SubscriberStatus = ""
	StatusActive                 SubscriberStatus = "Active"
	StatusInactive               SubscriberStatus = "Inactive"
	StatusActiveIfManualInactive SubscriberStatus = "ActiveIfManualInactive"
	StatusInactiveIfActive       SubscriberStatus = "InactiveIfActive"
)

// Subscriber is a record submitted for import.
type Subscriber struct {
	OptIn      bool
	MailFormat MailFormat
	Language   string // Falls back to the language of the request when empty
	Status     SubscriberStatus
	Fields     []Field
}

// Field returns the field with the given internal name.
func (s Subscriber) Field(internalName string) (Field, bool) {
	for _, f := range s.Fields {
		if f.InternalName == internalName {
			return f, true
		}
	}
	return Field{}, false
}

// ImportFeedback is the per-record outcome of an import.
type ImportFeedback struct {
	UniqueID   string    // Value of the duplicate criteria field, e.g. the email address
	Subscriber uuid.UUID // Id of the inserted or updated subscriber, Nil on error
	Error      string
}

// Failed reports whether the record was rejected.
func (f ImportFeedback) Failed() bool {
	return f.Error != ""
}

// ImportResult summarizes a subscriber import.
type ImportResult struct {
	Imported   int
	Updated    int
	Duplicates int
	Errors     int
	Feedback   []ImportFeedback
}

// Campaign is a single email send definition.
type Campaign struct {
	ID            uuid.UUID
	TemplateID    uuid.UUID
	Name          string
	Culture       string
	SenderName    string
	SenderAddress string
	Subject       string
	ProfileID     uuid.UUID
}

// CampaignType selects campaigns by lifecycle state.
type CampaignType string

const (
	CampaignTypeInWork CampaignType = "InWork"
	CampaignTypeSent   CampaignType = "Sent"
)

// SectionDefinition is the schema of a content block type of a template.
type SectionDefinition struct {
	Name   string
	Fields []Field
}

// Section is a content block populated with concrete values.
type Section struct {
	DefinitionName string
	StatisticName  string
	Created        time.Time
	Fields         []Field
}

// MDBFile is a file stored in the mailworx media database.
type MDBFile struct {
	ID   uuid.UUID
	Name string
	Path string
}

// SendType selects how a campaign is sent.
type SendType string

const (
	SendTypeManual  SendType = "Manual"
	SendTypeABSplit SendType = "ABSplit"
)

// SendResult is the webservice's answer to a send command.
type SendResult struct {
	RecipientsEffective int
}
