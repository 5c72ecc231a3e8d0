// package tasks implements the mailworx campaign workflow.
//
// The core abstraction is Workflow, which imports subscribers, provisions a campaign and its sections and sends it.
// Operations emit progress updates via channels for non-blocking status reporting to the CLI layer.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/mwx/internal/models"
	"github.com/desertthunder/mwx/internal/services"
	"github.com/desertthunder/mwx/internal/shared"
	"github.com/google/uuid"
)

// RunResult contains all data from a full workflow run.
type RunResult struct {
	HaltedAt    Phase              // Stage that stopped the run; PhaseNone when every stage ran
	ProfileID   uuid.UUID          // Target profile of the import
	ImportedIDs []uuid.UUID        // Subscribers imported or updated
	Import      *ImportOutcome     // Full import outcome
	Campaign    CampaignRef        // Provisioned campaign
	Sections    bool               // Whether every section was created
	Send        *models.SendResult // Nil when the campaign was not sent
}

// Sent reports whether the send stage returned a result.
func (r *RunResult) Sent() bool {
	return r.Send != nil
}

// Completed reports whether the run went through every stage.
func (r *RunResult) Completed() bool {
	return r.HaltedAt == PhaseNone && r.Sent()
}

// Workflow defines the stages of the campaign workflow.
type Workflow interface {
	// Run performs every stage in order, stopping at the first stage that does not succeed.
	Run(ctx context.Context, subscribers []models.Subscriber, progress chan<- ProgressUpdate) (*RunResult, error)

	// Import imports subscribers into the workflow profile.
	Import(ctx context.Context, subscribers []models.Subscriber, progress chan<- ProgressUpdate) (*ImportOutcome, error)

	// Campaign finds or creates the campaign for a profile.
	Campaign(ctx context.Context, profileID uuid.UUID, progress chan<- ProgressUpdate) (CampaignRef, error)

	// Sections adds the blueprint's sections to a campaign.
	Sections(ctx context.Context, ref CampaignRef, progress chan<- ProgressUpdate) (bool, error)

	// Send sends a campaign immediately.
	Send(ctx context.Context, campaignID uuid.UUID, progress chan<- ProgressUpdate) (*models.SendResult, error)
}

// WorkflowEngine implements [Workflow] on top of a [services.Agent].
type WorkflowEngine struct {
	agent    services.Agent
	settings Settings
	importer *SubscriberImporter
	campaign *CampaignProvisioner
	sections *SectionProvisioner
	now      func() time.Time
}

// NewWorkflowEngine creates an engine. A nil blueprint uses [DefaultBlueprint].
func NewWorkflowEngine(agent services.Agent, settings Settings, blueprint Blueprint) *WorkflowEngine {
	return &WorkflowEngine{
		agent:    agent,
		settings: settings,
		importer: NewSubscriberImporter(agent, settings),
		campaign: NewCampaignProvisioner(agent, settings),
		sections: NewSectionProvisioner(agent, settings, blueprint),
		now:      time.Now,
	}
}

// Importer exposes the engine's subscriber importer.
func (e *WorkflowEngine) Importer() *SubscriberImporter { return e.importer }

// SectionProvisioner exposes the engine's section provisioner.
func (e *WorkflowEngine) SectionProvisioner() *SectionProvisioner { return e.sections }

// Run performs the full workflow. Errors of any stage are returned unchanged along with the partial result.
// Nothing done by earlier stages is rolled back.
func (e *WorkflowEngine) Run(
	ctx context.Context,
	subscribers []models.Subscriber,
	progress chan<- ProgressUpdate,
) (*RunResult, error) {
	result := &RunResult{}

	outcome, err := e.Import(ctx, subscribers, progress)
	if err != nil {
		return result, err
	}
	result.Import = outcome
	result.ProfileID = outcome.ProfileID
	result.ImportedIDs = outcome.ImportedIDs
	if len(outcome.ImportedIDs) == 0 {
		return e.halt(result, PhaseImport, "no subscribers were imported", progress), nil
	}

	ref, err := e.Campaign(ctx, outcome.ProfileID, progress)
	if err != nil {
		return result, err
	}
	result.Campaign = ref
	if ref.Empty() {
		return e.halt(result, PhaseCampaign, "no campaign available", progress), nil
	}

	ok, err := e.Sections(ctx, ref, progress)
	if err != nil {
		return result, err
	}
	result.Sections = ok
	if !ok {
		return e.halt(result, PhaseSections, "sections were not created", progress), nil
	}

	sent, err := e.Send(ctx, ref.CampaignID, progress)
	if err != nil {
		return result, err
	}
	result.Send = sent
	if sent == nil {
		result.HaltedAt = PhaseSend
	}

	return result, nil
}

func (e *WorkflowEngine) halt(result *RunResult, phase Phase, reason string, progress chan<- ProgressUpdate) *RunResult {
	result.HaltedAt = phase
	sendProgress(progress, haltUpdate(phase, reason))
	return result
}

// Import runs the import stage.
func (e *WorkflowEngine) Import(
	ctx context.Context,
	subscribers []models.Subscriber,
	progress chan<- ProgressUpdate,
) (*ImportOutcome, error) {
	if len(subscribers) == 0 {
		return nil, fmt.Errorf("%w: no subscribers to import", shared.ErrInvalidArgument)
	}
	return e.importer.Import(ctx, subscribers, progress)
}

// Campaign runs the campaign stage.
func (e *WorkflowEngine) Campaign(ctx context.Context, profileID uuid.UUID, progress chan<- ProgressUpdate) (CampaignRef, error) {
	return e.campaign.Provision(ctx, profileID, progress)
}

// Sections runs the section stage.
func (e *WorkflowEngine) Sections(ctx context.Context, ref CampaignRef, progress chan<- ProgressUpdate) (bool, error) {
	return e.sections.Provision(ctx, ref.CampaignID, ref.TemplateID, progress)
}

// Send sends the campaign manually and immediately with real time reporting. A nil result means the campaign was not
// sent.
func (e *WorkflowEngine) Send(
	ctx context.Context,
	campaignID uuid.UUID,
	progress chan<- ProgressUpdate,
) (*models.SendResult, error) {
	if campaignID == uuid.Nil {
		return nil, fmt.Errorf("%w: campaign id must not be empty", shared.ErrInvalidArgument)
	}

	result, err := e.agent.SendCampaign(ctx, services.SendRequest{
		CampaignID:    campaignID,
		Type:          models.SendTypeManual,
		SendTime:      e.now(),
		IgnoreCulture: false,
		UseIRated:     false,
		UseRTR:        true,
		Language:      e.settings.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send campaign %s: %w", campaignID, err)
	}

	sendProgress(progress, sendUpdate(campaignID, result))
	return result, nil
}
