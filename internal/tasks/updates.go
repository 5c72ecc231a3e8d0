package tasks

import (
	"fmt"

	"github.com/desertthunder/mwx/internal/models"
	"github.com/google/uuid"
)

// ProgressUpdate represents a progress event during a workflow stage.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Workflow phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data (feedback, definitions, results)
	Failure bool   // Set when the update reports something that did not happen
}

// Phase enumerates the workflow phases.
//
// [PhaseNone] doubles as the "not halted" marker of [RunResult].
type Phase int

const (
	PhaseNone Phase = iota
	PhaseFields
	PhaseProfile
	PhaseImport
	PhaseCampaign
	PhaseDefinitions
	PhaseSections
	PhaseUpload
	PhaseSend
)

func (p Phase) String() string {
	switch p {
	case PhaseFields:
		return "fields"
	case PhaseProfile:
		return "profile"
	case PhaseImport:
		return "import"
	case PhaseCampaign:
		return "campaign"
	case PhaseDefinitions:
		return "definitions"
	case PhaseSections:
		return "sections"
	case PhaseUpload:
		return "upload"
	case PhaseSend:
		return "send"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}

func fieldsUpdate(fields []models.Field) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFields,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded %d subscriber fields", len(fields)),
		Data:    fields,
	}
}

func lookupFailedUpdate(phase Phase, what string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Message: fmt.Sprintf("Failed to load %s: %v", what, err),
		Failure: true,
	}
}

func profileUpdate(name string, profile *models.Profile) ProgressUpdate {
	if profile == nil {
		return ProgressUpdate{
			Phase:   PhaseProfile,
			Step:    1,
			Total:   1,
			Message: fmt.Sprintf("Profile %q does not exist yet", name),
		}
	}
	return ProgressUpdate{
		Phase:   PhaseProfile,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found profile %q (ID: %s)", profile.Name, profile.ID),
		Data:    *profile,
	}
}

func importingUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseImport,
		Step:    0,
		Total:   count,
		Message: fmt.Sprintf("Importing %d subscribers...", count),
	}
}

func feedbackUpdate(step, total int, fb models.ImportFeedback) ProgressUpdate {
	u := ProgressUpdate{Phase: PhaseImport, Step: step, Total: total, Data: fb}
	if fb.Failed() {
		u.Message = fmt.Sprintf("[%d/%d] ✗ %s", step, total, fb.Error)
		u.Failure = true
	} else {
		u.Message = fmt.Sprintf("[%d/%d] ✓ %s (ID: %s)", step, total, fb.UniqueID, fb.Subscriber)
	}
	return u
}

func importResultUpdate(result *models.ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase: PhaseImport,
		Step:  len(result.Feedback),
		Total: len(result.Feedback),
		Message: fmt.Sprintf("Imported: %d, Updated: %d, Duplicates: %d, Errors: %d",
			result.Imported, result.Updated, result.Duplicates, result.Errors),
		Data: *result,
	}
}

func campaignUpdate(message string, campaign *models.Campaign) ProgressUpdate {
	u := ProgressUpdate{Phase: PhaseCampaign, Message: message}
	if campaign != nil {
		u.Data = *campaign
	}
	return u
}

func campaignFailedUpdate(message string) ProgressUpdate {
	return ProgressUpdate{Phase: PhaseCampaign, Message: message, Failure: true}
}

func definitionsUpdate(templateID uuid.UUID, defs []models.SectionDefinition) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseDefinitions,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Template %s has %d section definitions", templateID, len(defs)),
		Data:    defs,
		Failure: len(defs) == 0,
	}
}

func sectionUpdate(step, total int, block Block, id uuid.UUID) ProgressUpdate {
	if id == uuid.Nil {
		return ProgressUpdate{
			Phase:   PhaseSections,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s was not created", step, total, block.Definition),
			Failure: true,
		}
	}
	return ProgressUpdate{
		Phase:   PhaseSections,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (ID: %s)", step, total, block.Definition, id),
		Data:    id,
	}
}

func sectionSkippedUpdate(step, total int, block Block) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseSections,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] - %s is not part of the template", step, total, block.Definition),
	}
}

func assetReusedUpdate(file models.MDBFile) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseUpload,
		Message: fmt.Sprintf("Reusing %s/%s (ID: %s)", file.Path, file.Name, file.ID),
		Data:    file,
	}
}

func assetUploadedUpdate(file models.MDBFile) ProgressUpdate {
	if file.ID == uuid.Nil {
		return ProgressUpdate{
			Phase:   PhaseUpload,
			Message: fmt.Sprintf("Upload of %s returned no id", file.Name),
			Failure: true,
		}
	}
	return ProgressUpdate{
		Phase:   PhaseUpload,
		Message: fmt.Sprintf("Uploaded %s/%s (ID: %s)", file.Path, file.Name, file.ID),
		Data:    file,
	}
}

func sendUpdate(campaignID uuid.UUID, result *models.SendResult) ProgressUpdate {
	if result == nil {
		return ProgressUpdate{
			Phase:   PhaseSend,
			Step:    1,
			Total:   1,
			Message: fmt.Sprintf("Sending campaign %s failed: no result", campaignID),
			Failure: true,
		}
	}
	return ProgressUpdate{
		Phase:   PhaseSend,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Effective subscribers: %d", result.RecipientsEffective),
		Data:    *result,
	}
}

func haltUpdate(phase Phase, reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Message: fmt.Sprintf("Workflow halted at %s: %s", phase, reason),
		Failure: true,
	}
}
