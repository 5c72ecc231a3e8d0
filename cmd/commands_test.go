package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mwx/internal/formatter"
	"github.com/desertthunder/mwx/internal/models"
	"github.com/desertthunder/mwx/internal/services"
	"github.com/desertthunder/mwx/internal/shared"
	"github.com/desertthunder/mwx/internal/tasks"
	tu "github.com/desertthunder/mwx/internal/testing"
	"github.com/google/uuid"
)

var (
	profileID  = uuid.MustParse("0b6f1d4e-2d1a-4f4b-8b4e-3f0c7b0c9a11")
	templateID = uuid.MustParse("9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b")
	originalID = uuid.MustParse("5a1c3e2b-7f0d-4e8a-9c1b-2d3e4f5a6b7c")
	copyID     = uuid.MustParse("c0ffee00-1234-4abc-8def-000000000001")
)

// textBlueprint avoids asset uploads so commands run without local files.
func textBlueprint() tasks.Blueprint {
	return tasks.Blueprint{
		{Definition: "article", StatisticName: "my first article", Fields: map[string]tasks.Filler{
			"a_show": tasks.Flag(true),
			"name":   tasks.Text("Hello from mwx"),
		}},
	}
}

func newTestRunner(t *testing.T, agent services.Agent) (*Runner, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Agent:     agent,
		Blueprint: textBlueprint(),
		Logger:    log.New(io.Discard),
		Output:    output,
	})
	return runner, output
}

func run(t *testing.T, runner *Runner, args ...string) error {
	t.Helper()
	config := filepath.Join(t.TempDir(), "config.toml")
	return runner.app().Run(context.Background(), append([]string{"mwx", "--config", config}, args...))
}

func happyAgent() *tu.MockAgent {
	return &tu.MockAgent{
		Profiles: [][]models.Profile{{{ID: profileID, Name: "MyFirstProfile", Type: models.ProfileTypeStatic}}},
		ImportResult: &models.ImportResult{Imported: 1, Errors: 1, Feedback: []models.ImportFeedback{
			{UniqueID: "max@mustermann.at", Subscriber: uuid.New()},
			{UniqueID: "broken", Error: "invalid email address"},
		}},
		Campaigns: []models.Campaign{
			{ID: originalID, TemplateID: templateID, Name: "mailworx campaign", Culture: "EN"},
			{ID: copyID, TemplateID: templateID, Name: "mailworx campaign", Culture: "EN"},
		},
		CopyID:   copyID,
		UpdateOK: true,
		Definitions: []models.SectionDefinition{
			{Name: "article", Fields: []models.Field{
				{Kind: models.KindBoolean, InternalName: "a_show"},
				{Kind: models.KindText, InternalName: "name"},
			}},
		},
		SendResult: &models.SendResult{RecipientsEffective: 2},
	}
}

func TestRunCommand(t *testing.T) {
	t.Run("Sends Campaign", func(t *testing.T) {
		agent := happyAgent()
		runner, output := newTestRunner(t, agent)

		if err := run(t, runner, "run"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := output.String()
		for _, want := range []string{"Running campaign workflow", "Effective subscribers: 2", "Rejected subscribers: 1", "broken: invalid email address"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got %s", want, out)
			}
		}
		if len(agent.Imports) != 1 || len(agent.Imports[0].Subscribers) != 4 {
			t.Errorf("expected the sample subscribers to be imported, got %+v", agent.Imports)
		}
		if len(agent.Sends) != 1 || agent.Sends[0].CampaignID != copyID {
			t.Errorf("expected the copy to be sent, got %+v", agent.Sends)
		}
	})

	t.Run("Subscriber File And Feedback", func(t *testing.T) {
		dir := t.TempDir()
		subscribers := filepath.Join(dir, "subscribers.csv")
		feedback := filepath.Join(dir, "feedback.csv")
		tu.MustWriteFile(t, subscribers, []byte("optin,text:email\ntrue,max@mustermann.at\nfalse,broken\n"))
		agent := happyAgent()
		runner, _ := newTestRunner(t, agent)

		if err := run(t, runner, "run", "--subscribers", subscribers, "--feedback", feedback); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(agent.Imports) != 1 || len(agent.Imports[0].Subscribers) != 2 {
			t.Fatalf("expected 2 subscribers from file, got %+v", agent.Imports)
		}
		tu.AssertFileExists(t, feedback)
		if !strings.Contains(tu.MustReadFile(t, feedback), "invalid email address") {
			t.Error("expected feedback file to contain the rejected record")
		}
	})

	t.Run("Invalid Subscriber File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "subscribers.csv")
		tu.MustWriteFile(t, path, []byte("email\nmax@mustermann.at\n"))
		agent := happyAgent()
		runner, _ := newTestRunner(t, agent)

		err := run(t, runner, "run", "--subscribers", path)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if len(agent.Calls) != 0 {
			t.Errorf("expected no webservice calls, got %v", agent.Calls)
		}
	})

	t.Run("Halts Without Campaign", func(t *testing.T) {
		agent := happyAgent()
		agent.Campaigns = nil
		runner, output := newTestRunner(t, agent)

		if err := run(t, runner, "run"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "no campaign available") {
			t.Errorf("expected halt message, got %s", output.String())
		}
		if agent.CallCount("SendCampaign") != 0 {
			t.Error("expected no send")
		}
	})

	t.Run("Propagates Errors", func(t *testing.T) {
		agent := happyAgent()
		agent.ImportErr = shared.ErrAPIRequest
		runner, _ := newTestRunner(t, agent)

		if err := run(t, runner, "run"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		runner, output := newTestRunner(t, happyAgent())

		if err := run(t, runner, "run", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := output.String()
		var result tasks.RunResult
		if err := json.Unmarshal([]byte(out[strings.Index(out, "{"):]), &result); err != nil {
			t.Fatalf("expected JSON result, got %v", err)
		}
		if result.Send == nil || result.Send.RecipientsEffective != 2 {
			t.Errorf("unexpected result %+v", result)
		}
	})
}

func TestStageCommands(t *testing.T) {
	t.Run("Import", func(t *testing.T) {
		runner, output := newTestRunner(t, happyAgent())

		if err := run(t, runner, "import"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := output.String()
		if !strings.Contains(out, "Imported: 1") || !strings.Contains(out, "Profile: "+profileID.String()) {
			t.Errorf("unexpected output %s", out)
		}
	})

	t.Run("Campaign", func(t *testing.T) {
		agent := happyAgent()
		runner, output := newTestRunner(t, agent)

		if err := run(t, runner, "campaign", "--profile-id", "{"+profileID.String()+"}"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Campaign: "+copyID.String()) {
			t.Errorf("unexpected output %s", output.String())
		}
		if len(agent.Updates) != 1 || agent.Updates[0].ProfileID != profileID {
			t.Errorf("expected the copy to be assigned to the profile, got %+v", agent.Updates)
		}
	})

	t.Run("Campaign Invalid ID", func(t *testing.T) {
		agent := happyAgent()
		runner, _ := newTestRunner(t, agent)

		err := run(t, runner, "campaign", "--profile-id", "not-a-guid")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if len(agent.Calls) != 0 {
			t.Errorf("expected no webservice calls, got %v", agent.Calls)
		}
	})

	t.Run("Campaign Missing Flag", func(t *testing.T) {
		runner, _ := newTestRunner(t, happyAgent())

		if err := run(t, runner, "campaign"); err == nil {
			t.Error("expected error for missing --profile-id")
		}
	})

	t.Run("Sections", func(t *testing.T) {
		agent := happyAgent()
		runner, output := newTestRunner(t, agent)

		err := run(t, runner, "sections", "--campaign-id", copyID.String(), "--template-id", templateID.String())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Sections created") {
			t.Errorf("unexpected output %s", output.String())
		}
		if len(agent.CreatedSections) != 1 {
			t.Errorf("expected one section, got %d", len(agent.CreatedSections))
		}
	})

	t.Run("Sections Not Created", func(t *testing.T) {
		agent := happyAgent()
		agent.Definitions = nil
		runner, output := newTestRunner(t, agent)

		err := run(t, runner, "sections", "--campaign-id", copyID.String(), "--template-id", templateID.String())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Sections were not created") {
			t.Errorf("unexpected output %s", output.String())
		}
	})

	t.Run("Send", func(t *testing.T) {
		agent := happyAgent()
		runner, output := newTestRunner(t, agent)

		if err := run(t, runner, "send", "--campaign-id", copyID.String()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Effective subscribers: 2") {
			t.Errorf("unexpected output %s", output.String())
		}
		if len(agent.Sends) != 1 || agent.Sends[0].Type != models.SendTypeManual || !agent.Sends[0].UseRTR {
			t.Errorf("unexpected send request %+v", agent.Sends)
		}
	})

	t.Run("Send Without Result", func(t *testing.T) {
		agent := happyAgent()
		agent.SendResult = nil
		runner, output := newTestRunner(t, agent)

		if err := run(t, runner, "send", "--campaign-id", copyID.String()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "the campaign was not sent") {
			t.Errorf("unexpected output %s", output.String())
		}
	})
}

func TestInspectCommands(t *testing.T) {
	t.Run("Fields", func(t *testing.T) {
		agent := happyAgent()
		agent.Fields = []models.Field{models.TextField("email", ""), {Kind: models.KindNumber, InternalName: "customerid"}}
		runner, output := newTestRunner(t, agent)

		if err := run(t, runner, "fields"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "2. customerid (NumberField)") {
			t.Errorf("unexpected output %s", output.String())
		}
		if len(agent.FieldSets) != 1 || agent.FieldSets[0] != services.AllFields {
			t.Errorf("expected all fields to be requested, got %v", agent.FieldSets)
		}
	})

	t.Run("Definitions", func(t *testing.T) {
		runner, output := newTestRunner(t, happyAgent())

		if err := run(t, runner, "definitions", "--template-id", templateID.String()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "1. article") {
			t.Errorf("unexpected output %s", output.String())
		}
	})

	t.Run("Definitions JSON", func(t *testing.T) {
		runner, output := newTestRunner(t, happyAgent())

		if err := run(t, runner, "definitions", "--template-id", templateID.String(), "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var defs []models.SectionDefinition
		if err := json.Unmarshal(output.Bytes(), &defs); err != nil {
			t.Fatalf("expected JSON output, got %v", err)
		}
		if len(defs) != 1 || defs[0].Name != "article" {
			t.Errorf("unexpected definitions %+v", defs)
		}
	})
}

func TestSamplesCommand(t *testing.T) {
	t.Run("Writes File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "subscribers.csv")
		runner, _ := newTestRunner(t, nil)

		if err := run(t, runner, "samples", "--output", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("failed to open samples: %v", err)
		}
		defer f.Close()

		subscribers, err := formatter.ReadSubscribersCSV(f)
		if err != nil {
			t.Fatalf("expected readable samples, got %v", err)
		}
		if len(subscribers) != 4 {
			t.Errorf("expected 4 subscribers, got %d", len(subscribers))
		}
	})

	t.Run("Writes Stdout", func(t *testing.T) {
		runner, output := newTestRunner(t, nil)

		if err := run(t, runner, "samples"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.HasPrefix(output.String(), "optin,mailformat,language,status") {
			t.Errorf("unexpected output %s", output.String())
		}
	})
}
