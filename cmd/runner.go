package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mwx/internal/models"
	"github.com/desertthunder/mwx/internal/services"
	"github.com/desertthunder/mwx/internal/shared"
	"github.com/desertthunder/mwx/internal/tasks"
	"github.com/desertthunder/mwx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	agent      services.Agent
	blueprint  tasks.Blueprint
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Agent      services.Agent // Built from the config on first use when nil
	Blueprint  tasks.Blueprint
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		agent:      opts.Agent,
		blueprint:  opts.Blueprint,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, importCommand, campaignCommand, sectionsCommand, sendCommand,
		fieldsCommand, definitionsCommand, samplesCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the config file and applies environment and flag overrides before any command runs.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	r.configPath = path
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.logger.Debug("loaded config", "path", path)
	} else if cmd.IsSet("config") {
		r.logger.Warn("config file not found, using defaults", "path", path)
	}

	shared.ApplyEnv(r.config)
	for flag, target := range map[string]*string{
		"endpoint": &r.config.Mailworx.Endpoint,
		"account":  &r.config.Mailworx.Account,
		"username": &r.config.Mailworx.Username,
		"password": &r.config.Mailworx.Password,
		"source":   &r.config.Mailworx.Source,
	} {
		if v := cmd.String(flag); cmd.IsSet(flag) && v != "" {
			*target = v
		}
	}

	return ctx, nil
}

// client returns the injected agent or builds a webservice client from the config.
func (r *Runner) client() (services.Agent, error) {
	if r.agent != nil {
		return r.agent, nil
	}

	m := r.config.Mailworx
	if err := m.Validate(); err != nil {
		return nil, err
	}

	client, err := services.NewClient(services.ClientOpts{
		Endpoint:  m.Endpoint,
		Namespace: m.Namespace,
		Security: models.SecurityContext{
			Account:  m.Account,
			Username: m.Username,
			Password: m.Password,
			Source:   m.Source,
		},
		Language:          m.Language,
		Timeout:           m.Timeout(),
		RequestsPerSecond: m.RequestsPerSecond,
		Logger:            r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	r.agent = client
	return client, nil
}

func (r *Runner) settings() tasks.Settings {
	return tasks.NewSettings(r.config)
}

func (r *Runner) engine() (*tasks.WorkflowEngine, error) {
	agent, err := r.client()
	if err != nil {
		return nil, err
	}
	return tasks.NewWorkflowEngine(agent, r.settings(), r.blueprint), nil
}

// withProgress prints every update sent while run executes and returns once all of them are written.
func (r *Runner) withProgress(run func(progress chan<- tasks.ProgressUpdate)) {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			r.writeUpdate(update)
		}
	}()

	run(progress)
	close(progress)
	<-done
}

func (r *Runner) writeUpdate(update tasks.ProgressUpdate) {
	r.logger.Debug("progress", "phase", update.Phase, "step", update.Step, "total", update.Total, "failure", update.Failure)

	switch {
	case update.Failure:
		r.writePlain("✗ %s\n", update.Message)
	case update.Step > 0:
		r.writePlain("   %s\n", update.Message)
	default:
		r.writePlain("%s %s\n", phaseIcon(update.Phase), update.Message)
	}
}

func phaseIcon(p tasks.Phase) string {
	switch p {
	case tasks.PhaseFields, tasks.PhaseProfile, tasks.PhaseDefinitions:
		return "🔍"
	case tasks.PhaseImport:
		return "📥"
	case tasks.PhaseCampaign, tasks.PhaseSections:
		return "📝"
	case tasks.PhaseUpload:
		return "📤"
	case tasks.PhaseSend:
		return "✉"
	default:
		return "•"
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("%s\n", ui.Title(title))
}
