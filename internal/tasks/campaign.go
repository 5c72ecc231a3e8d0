package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/mwx/internal/models"
	"github.com/desertthunder/mwx/internal/services"
	"github.com/desertthunder/mwx/internal/shared"
	"github.com/google/uuid"
)

// CampaignRef identifies a provisioned campaign and the template it is built from.
type CampaignRef struct {
	CampaignID uuid.UUID
	TemplateID uuid.UUID
}

// Empty reports whether either id is missing.
func (r CampaignRef) Empty() bool {
	return r.CampaignID == uuid.Nil || r.TemplateID == uuid.Nil
}

// CampaignProvisioner finds or creates the workflow's campaign.
type CampaignProvisioner struct {
	agent    services.Agent
	settings Settings
}

// NewCampaignProvisioner creates a provisioner.
func NewCampaignProvisioner(agent services.Agent, settings Settings) *CampaignProvisioner {
	return &CampaignProvisioner{agent: agent, settings: settings}
}

// Provision returns the campaign to send to the given profile.
//
// A campaign that still carries the template name is copied and the copy is updated. A campaign with any other
// name was provisioned before and is returned as is. An empty ref means no campaign is available.
func (p *CampaignProvisioner) Provision(
	ctx context.Context,
	profileID uuid.UUID,
	progress chan<- ProgressUpdate,
) (CampaignRef, error) {
	if profileID == uuid.Nil {
		return CampaignRef{}, fmt.Errorf("%w: profile id must not be empty", shared.ErrInvalidArgument)
	}

	campaign, err := p.find(ctx, progress)
	if err != nil {
		return CampaignRef{}, err
	}
	if campaign == nil {
		sendProgress(progress, campaignFailedUpdate(fmt.Sprintf(
			"No campaign named %q or %q in work", p.settings.CampaignName, p.settings.TemplateCampaignName)))
		return CampaignRef{}, nil
	}

	if campaign.Name != p.settings.TemplateCampaignName {
		sendProgress(progress, campaignUpdate(fmt.Sprintf("Using existing campaign %q (ID: %s)", campaign.Name, campaign.ID), campaign))
		return CampaignRef{CampaignID: campaign.ID, TemplateID: campaign.TemplateID}, nil
	}

	copyID, err := p.agent.CopyCampaign(ctx, campaign.ID)
	if err != nil {
		return CampaignRef{}, fmt.Errorf("failed to copy campaign %s: %w", campaign.ID, err)
	}
	if copyID == uuid.Nil {
		sendProgress(progress, campaignFailedUpdate(fmt.Sprintf("Copying campaign %q returned no id", campaign.Name)))
		return CampaignRef{}, nil
	}

	copied, err := p.load(ctx, copyID)
	if err != nil {
		return CampaignRef{}, err
	}
	if copied == nil {
		sendProgress(progress, campaignFailedUpdate(fmt.Sprintf("Copied campaign %s could not be loaded", copyID)))
		return CampaignRef{}, nil
	}
	sendProgress(progress, campaignUpdate(fmt.Sprintf("Copied %q to %s", campaign.Name, copied.ID), copied))

	ok, err := p.agent.UpdateCampaign(ctx, services.CampaignUpdate{
		CampaignID:    copied.ID,
		ProfileID:     profileID,
		Language:      copied.Culture,
		Name:          p.settings.CampaignName,
		SenderAddress: p.settings.SenderAddress,
		SenderName:    p.settings.SenderName,
		Subject:       p.settings.Subject,
	})
	if err != nil {
		return CampaignRef{}, fmt.Errorf("failed to update campaign %s: %w", copied.ID, err)
	}
	if !ok {
		sendProgress(progress, campaignFailedUpdate(fmt.Sprintf("Updating campaign %s returned no result", copied.ID)))
		return CampaignRef{}, nil
	}

	sendProgress(progress, campaignUpdate(fmt.Sprintf("Campaign %q is ready (ID: %s)", p.settings.CampaignName, copied.ID), copied))
	return CampaignRef{CampaignID: copied.ID, TemplateID: copied.TemplateID}, nil
}

// find looks up the in-work campaign, preferring an already provisioned one over the template.
func (p *CampaignProvisioner) find(ctx context.Context, progress chan<- ProgressUpdate) (*models.Campaign, error) {
	campaigns, err := p.agent.GetCampaigns(ctx, services.CampaignQuery{Type: models.CampaignTypeInWork})
	if err != nil {
		sendProgress(progress, lookupFailedUpdate(PhaseCampaign, "campaigns", err))
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}

	for _, name := range []string{p.settings.CampaignName, p.settings.TemplateCampaignName} {
		if name == "" {
			continue
		}
		for _, c := range campaigns {
			if strings.EqualFold(c.Name, name) {
				return &c, nil
			}
		}
	}
	return nil, nil
}

func (p *CampaignProvisioner) load(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	campaigns, err := p.agent.GetCampaigns(ctx, services.CampaignQuery{Type: models.CampaignTypeInWork, ID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %s: %w", id, err)
	}
	if len(campaigns) == 0 {
		return nil, nil
	}
	return &campaigns[0], nil
}
