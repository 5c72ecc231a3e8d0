// package services defines interface Agent for calling the mailworx webservice
package services

import (
	"context"
	"strings"
	"time"

	"github.com/desertthunder/mwx/internal/models"
	"github.com/google/uuid"
)

// Agent is the client side of the mailworx webservice.
//
// Operations that create or change something report an absent result (nil, [uuid.Nil] or false) without an error when
// the webservice answers with no result. Callers treat that as "the step did not happen".
type Agent interface {
	// GetProfiles lists the profiles of the given type.
	GetProfiles(ctx context.Context, profileType models.ProfileType) ([]models.Profile, error)

	// GetSubscriberFields lists the subscriber fields of the account.
	GetSubscriberFields(ctx context.Context, fieldSet FieldSet) ([]models.Field, error)

	// ImportSubscribers submits a batch of subscribers.
	ImportSubscribers(ctx context.Context, req ImportRequest) (*models.ImportResult, error)

	// GetCampaigns lists campaigns matching the query.
	GetCampaigns(ctx context.Context, query CampaignQuery) ([]models.Campaign, error)

	// CopyCampaign clones a campaign and returns the id of the copy.
	CopyCampaign(ctx context.Context, campaignID uuid.UUID) (uuid.UUID, error)

	// UpdateCampaign overwrites the text fields and the profile of a campaign.
	UpdateCampaign(ctx context.Context, update CampaignUpdate) (bool, error)

	// GetSectionDefinitions lists the section schemas of a template.
	GetSectionDefinitions(ctx context.Context, templateID uuid.UUID) ([]models.SectionDefinition, error)

	// CreateSection adds a section to a campaign and returns its id.
	CreateSection(ctx context.Context, campaignID uuid.UUID, section models.Section) (uuid.UUID, error)

	// GetMDBFiles lists the files stored below path in the media database.
	GetMDBFiles(ctx context.Context, path string) ([]models.MDBFile, error)

	// UploadFileToMDB stores a file in the media database and returns its id.
	UploadFileToMDB(ctx context.Context, path, name string, data []byte) (uuid.UUID, error)

	// SendCampaign triggers the send of a campaign.
	SendCampaign(ctx context.Context, req SendRequest) (*models.SendResult, error)
}

// FieldSet selects which subscriber fields GetSubscriberFields returns.
type FieldSet int

const (
	// MetaInformation selects predefined fields such as email, firstname and lastname.
	MetaInformation FieldSet = 1 << iota
	// CustomInformation selects fields defined by the account.
	CustomInformation

	AllFields = MetaInformation | CustomInformation
)

// String renders the set the way the webservice expects flag enums: space separated names.
func (f FieldSet) String() string {
	names := []string{}
	if f&MetaInformation != 0 {
		names = append(names, "MetaInformation")
	}
	if f&CustomInformation != 0 {
		names = append(names, "CustomInformation")
	}
	return strings.Join(names, " ")
}

// ExecuteWith selects which imported subscribers a post import action applies to.
type ExecuteWith int

const (
	// ExecuteOnInsert applies to subscribers created by the import.
	ExecuteOnInsert ExecuteWith = 1 << iota
	// ExecuteOnUpdate applies to subscribers that already existed.
	ExecuteOnUpdate
)

// String renders the flags as space separated names.
func (e ExecuteWith) String() string {
	names := []string{}
	if e&ExecuteOnInsert != 0 {
		names = append(names, "Insert")
	}
	if e&ExecuteOnUpdate != 0 {
		names = append(names, "Update")
	}
	return strings.Join(names, " ")
}

// ClearProfileAction removes all subscribers from the named profile before the import starts.
type ClearProfileAction struct {
	Name string
}

// ProfileAdderAction adds imported subscribers to the named profile, creating it if needed.
type ProfileAdderAction struct {
	Name        string
	ExecuteWith ExecuteWith
}

// ImportRequest is a batch of subscribers with its import settings.
type ImportRequest struct {
	Subscribers       []models.Subscriber
	DuplicateCriteria string // Internal name of the field used to detect existing subscribers
	BeforeImport      []ClearProfileAction
	AfterImport       []ProfileAdderAction
}

// CampaignQuery filters GetCampaigns.
type CampaignQuery struct {
	Type models.CampaignType
	ID   uuid.UUID // Optional; Nil lists all campaigns of Type
}

// CampaignUpdate carries every text field of a campaign.
//
// The webservice resets text fields that are left out of an update to the empty string, so there is no partial update:
// every field is always serialized.
type CampaignUpdate struct {
	CampaignID    uuid.UUID
	ProfileID     uuid.UUID
	Language      string
	Name          string
	SenderAddress string
	SenderName    string
	Subject       string
}

// SendRequest is a send command.
type SendRequest struct {
	CampaignID    uuid.UUID
	Type          models.SendType
	SendTime      time.Time // Used by manual sends
	IgnoreCulture bool      // false sends only to subscribers with the campaign's language
	UseIRated     bool
	UseRTR        bool
	Language      string // Overrides the client language when set
}
