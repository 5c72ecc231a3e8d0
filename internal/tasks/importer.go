package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/mwx/internal/models"
	"github.com/desertthunder/mwx/internal/services"
	"github.com/desertthunder/mwx/internal/shared"
	"github.com/google/uuid"
)

// ImportOutcome is the result of [SubscriberImporter.Import].
type ImportOutcome struct {
	ProfileID   uuid.UUID               // Id of the target profile, resolved after the import when it was created by it
	ImportedIDs []uuid.UUID             // Ids of inserted or updated subscribers
	Failures    []models.ImportFeedback // Rejected records
	Result      models.ImportResult
}

// SubscriberImporter imports subscribers into the workflow's static profile.
type SubscriberImporter struct {
	agent    services.Agent
	settings Settings
}

// NewSubscriberImporter creates an importer.
func NewSubscriberImporter(agent services.Agent, settings Settings) *SubscriberImporter {
	return &SubscriberImporter{agent: agent, settings: settings}
}

// Import submits the subscribers and adds every inserted or updated one to the profile.
//
// An existing profile is cleared before the import. Records rejected by the webservice are reported and left out of
// the returned ids.
func (i *SubscriberImporter) Import(
	ctx context.Context,
	subscribers []models.Subscriber,
	progress chan<- ProgressUpdate,
) (*ImportOutcome, error) {
	profile, err := i.findProfile(ctx, progress)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, profileUpdate(i.settings.ProfileName, profile))

	req := services.ImportRequest{
		Subscribers:       subscribers,
		DuplicateCriteria: i.settings.DuplicateCriteria,
		AfterImport: []services.ProfileAdderAction{{
			Name:        i.settings.ProfileName,
			ExecuteWith: services.ExecuteOnInsert | services.ExecuteOnUpdate,
		}},
	}
	if profile != nil {
		req.BeforeImport = []services.ClearProfileAction{{Name: profile.Name}}
	}

	sendProgress(progress, importingUpdate(len(subscribers)))

	result, err := i.agent.ImportSubscribers(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to import subscribers: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: import returned no result", shared.ErrAPIRequest)
	}

	outcome := &ImportOutcome{Result: *result, ImportedIDs: []uuid.UUID{}}
	total := len(result.Feedback)
	for n, fb := range result.Feedback {
		sendProgress(progress, feedbackUpdate(n+1, total, fb))
		if fb.Failed() {
			outcome.Failures = append(outcome.Failures, fb)
			continue
		}
		outcome.ImportedIDs = append(outcome.ImportedIDs, fb.Subscriber)
	}
	sendProgress(progress, importResultUpdate(result))

	if profile == nil {
		profile, err = i.findProfile(ctx, progress)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, fmt.Errorf("%w: %q after import", shared.ErrProfileNotFound, i.settings.ProfileName)
		}
		sendProgress(progress, profileUpdate(i.settings.ProfileName, profile))
	}
	outcome.ProfileID = profile.ID

	return outcome, nil
}

// Fields lists the meta and custom subscriber fields of the account.
func (i *SubscriberImporter) Fields(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Field, error) {
	fields, err := i.agent.GetSubscriberFields(ctx, services.AllFields)
	if err != nil {
		sendProgress(progress, lookupFailedUpdate(PhaseFields, "subscriber fields", err))
		return nil, fmt.Errorf("failed to load subscriber fields: %w", err)
	}

	sendProgress(progress, fieldsUpdate(fields))
	return fields, nil
}

// findProfile returns the static profile named exactly like the configured profile, or nil.
func (i *SubscriberImporter) findProfile(ctx context.Context, progress chan<- ProgressUpdate) (*models.Profile, error) {
	profiles, err := i.agent.GetProfiles(ctx, models.ProfileTypeStatic)
	if err != nil {
		sendProgress(progress, lookupFailedUpdate(PhaseProfile, "profiles", err))
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	for _, p := range profiles {
		if p.Name == i.settings.ProfileName {
			return &p, nil
		}
	}
	return nil, nil
}
