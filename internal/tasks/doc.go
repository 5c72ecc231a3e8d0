// Package tasks orchestrates the mailworx campaign workflow with real-time progress reporting.
//
// # Stages
//
// The [Workflow] interface runs four stages, each gating the next:
//
//  1. [Workflow.Import] : subscriber import
//     - Clears the workflow profile when it exists
//     - Adds inserted and updated subscribers to the profile, creating it if needed
//     - Collects the ids of accepted records and reports rejected ones
//
//  2. [Workflow.Campaign] : campaign provisioning
//     - Reuses a campaign that was provisioned before
//     - Otherwise copies the template campaign and updates sender, subject and profile of the copy
//
//  3. [Workflow.Sections] : section provisioning
//     - Creates the blocks of a [Blueprint] the template has definitions for
//     - Stores assets in the media database, reusing files with the same name
//
//  4. [Workflow.Send] : manual, immediate send with real time reporting
//
// A stage that yields nothing halts [Workflow.Run]: later stages are not invoked and earlier ones are not undone.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data such as import feedback or
// section definitions. Updates use select with default to prevent blocking.
//
// # Implementation
//
// [WorkflowEngine] implements [Workflow] with [SubscriberImporter], [CampaignProvisioner] and [SectionProvisioner],
// all sharing one [services.Agent].
package tasks
