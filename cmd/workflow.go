package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mwx/internal/formatter"
	"github.com/desertthunder/mwx/internal/models"
	"github.com/desertthunder/mwx/internal/shared"
	"github.com/desertthunder/mwx/internal/tasks"
	"github.com/desertthunder/mwx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Run performs import, campaign, sections and send in order.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	subscribers, err := r.loadSubscribers(cmd.String("subscribers"))
	if err != nil {
		return err
	}

	if cmd.Bool("tui") {
		return r.runTUI(ctx, cmd, subscribers)
	}

	engine, err := r.engine()
	if err != nil {
		return err
	}

	r.logger.Info("starting workflow", "subscribers", len(subscribers), "profile", r.config.Workflow.ProfileName)
	r.writePlainHeader("Running campaign workflow")

	var result *tasks.RunResult
	r.withProgress(func(progress chan<- tasks.ProgressUpdate) {
		result, err = engine.Run(ctx, subscribers, progress)
	})
	if result != nil && result.Import != nil {
		if ferr := r.writeFeedback(cmd, result.Import.Result.Feedback); ferr != nil {
			return ferr
		}
	}
	if err != nil {
		return err
	}

	r.logger.Info("workflow finished", "completed", result.Completed(), "halted_at", result.HaltedAt)
	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	r.writePlain("\n")
	return r.writeBytes(formatter.RunSummary(result))
}

func (r *Runner) runTUI(ctx context.Context, cmd *cli.Command, subscribers []models.Subscriber) error {
	logFile, err := shared.OpenLogFile(cmd.String("log-file"))
	if err != nil {
		return err
	}
	defer logFile.Close()
	r.logger.SetOutput(logFile)

	engine, err := r.engine()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, engine, r.settings(), subscribers)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	result, err := model.Result()
	if err != nil {
		return err
	}
	if result == nil {
		r.writePlain("Workflow not started\n")
		return nil
	}
	return r.writeBytes(formatter.RunSummary(result))
}

// Import imports subscribers and reports the per record feedback.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	subscribers, err := r.loadSubscribers(cmd.String("subscribers"))
	if err != nil {
		return err
	}
	engine, err := r.engine()
	if err != nil {
		return err
	}

	r.logger.Info("importing subscribers", "count", len(subscribers))
	r.writePlainHeader("Importing subscribers")

	var outcome *tasks.ImportOutcome
	r.withProgress(func(progress chan<- tasks.ProgressUpdate) {
		outcome, err = engine.Import(ctx, subscribers, progress)
	})
	if err != nil {
		return err
	}

	if err := r.writeFeedback(cmd, outcome.Result.Feedback); err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(outcome, true)
	}

	r.writePlain("\n")
	if err := r.writeBytes(formatter.ImportReport(outcome.Result)); err != nil {
		return err
	}
	return r.writePlain("Profile: %s\n", outcome.ProfileID)
}

// Campaign provisions the workflow campaign for a profile.
func (r *Runner) Campaign(ctx context.Context, cmd *cli.Command) error {
	profileID, err := shared.ParseID(cmd.String("profile-id"))
	if err != nil {
		return err
	}
	engine, err := r.engine()
	if err != nil {
		return err
	}

	r.logger.Info("provisioning campaign", "profile", profileID)

	var ref tasks.CampaignRef
	r.withProgress(func(progress chan<- tasks.ProgressUpdate) {
		ref, err = engine.Campaign(ctx, profileID, progress)
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(ref, true)
	}
	if ref.Empty() {
		return r.writePlain("No campaign available\n")
	}
	return r.writePlain("Campaign: %s\nTemplate: %s\n", ref.CampaignID, ref.TemplateID)
}

// Sections creates the blueprint's sections in a campaign.
func (r *Runner) Sections(ctx context.Context, cmd *cli.Command) error {
	campaignID, err := shared.ParseID(cmd.String("campaign-id"))
	if err != nil {
		return err
	}
	templateID, err := shared.ParseID(cmd.String("template-id"))
	if err != nil {
		return err
	}
	engine, err := r.engine()
	if err != nil {
		return err
	}

	r.logger.Info("creating sections", "campaign", campaignID, "template", templateID)

	var created bool
	r.withProgress(func(progress chan<- tasks.ProgressUpdate) {
		created, err = engine.Sections(ctx, tasks.CampaignRef{CampaignID: campaignID, TemplateID: templateID}, progress)
	})
	if err != nil {
		return err
	}

	if !created {
		return r.writePlain("Sections were not created\n")
	}
	return r.writePlain("Sections created\n")
}

// Send sends a campaign immediately.
func (r *Runner) Send(ctx context.Context, cmd *cli.Command) error {
	campaignID, err := shared.ParseID(cmd.String("campaign-id"))
	if err != nil {
		return err
	}
	engine, err := r.engine()
	if err != nil {
		return err
	}

	r.logger.Info("sending campaign", "campaign", campaignID)

	var result *models.SendResult
	r.withProgress(func(progress chan<- tasks.ProgressUpdate) {
		result, err = engine.Send(ctx, campaignID, progress)
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	if result == nil {
		return r.writePlain("Something went wrong: the campaign was not sent\n")
	}
	return r.writePlain("Effective subscribers: %d\n", result.RecipientsEffective)
}

// loadSubscribers reads path, or returns the sample subscribers when path is empty.
func (r *Runner) loadSubscribers(path string) ([]models.Subscriber, error) {
	if path == "" {
		r.logger.Debug("using sample subscribers")
		return tasks.DefaultSubscribers(time.Now()), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subscriber file: %w", err)
	}
	defer f.Close()

	subscribers, err := formatter.ReadSubscribersCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	r.logger.Debug("read subscriber file", "path", path, "count", len(subscribers))
	return subscribers, nil
}

func (r *Runner) writeFeedback(cmd *cli.Command, feedback []models.ImportFeedback) error {
	path := cmd.String("feedback")
	if path == "" {
		return nil
	}
	if err := formatter.WriteFeedbackCSV(feedback, path); err != nil {
		return err
	}
	r.logger.Info("feedback written", "path", path, "records", len(feedback))
	return nil
}
