package tasks

import (
	"github.com/desertthunder/mwx/internal/shared"
)

// Settings holds the fixed names the workflow looks things up by.
type Settings struct {
	Language             string // Language of the send request
	ProfileName          string // Static profile the subscribers are imported to
	TemplateCampaignName string // Name of the pristine campaign that gets copied
	CampaignName         string // Name of the provisioned copy
	SenderAddress        string
	SenderName           string
	Subject              string
	DuplicateCriteria    string // Internal name of the field used to detect existing subscribers
	MediaPath            string // Media database folder for uploaded assets
	AssetsDir            string // Local directory relative asset paths are resolved against
}

// NewSettings builds settings from the loaded configuration.
func NewSettings(cfg *shared.Config) Settings {
	w := cfg.Workflow
	return Settings{
		Language:             cfg.Mailworx.Language,
		ProfileName:          w.ProfileName,
		TemplateCampaignName: w.TemplateCampaignName,
		CampaignName:         w.CampaignName,
		SenderAddress:        w.SenderAddress,
		SenderName:           w.SenderName,
		Subject:              w.Subject,
		DuplicateCriteria:    w.DuplicateCriteria,
		MediaPath:            w.MediaPath,
		AssetsDir:            w.AssetsDir,
	}
}

// DefaultSettings returns the settings of the embedded example config.
func DefaultSettings() Settings {
	return NewSettings(shared.DefaultConfig())
}
