// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/mwx/internal/shared"
	"github.com/urfave/cli/v3"
)

func init() {
	// -v belongs to --verbose.
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}
}

// app builds the root command. Global flags are readable from every subcommand.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "mwx",
		Usage:   "Import subscribers, provision a campaign and send it through the mailworx webservice",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log every webservice call",
			},
			&cli.StringFlag{
				Name:    "endpoint",
				Usage:   "Webservice endpoint URL",
				Sources: cli.EnvVars(shared.EnvEndpoint),
			},
			&cli.StringFlag{
				Name:    "account",
				Usage:   "mailworx account name",
				Sources: cli.EnvVars(shared.EnvAccount),
			},
			&cli.StringFlag{
				Name:    "username",
				Usage:   "mailworx user name",
				Sources: cli.EnvVars(shared.EnvUsername),
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "mailworx password",
				Sources: cli.EnvVars(shared.EnvPassword),
			},
			&cli.StringFlag{
				Name:    "source",
				Usage:   "Registered application source",
				Sources: cli.EnvVars(shared.EnvSource),
			},
		},
		Before:   r.configure,
		Commands: r.register(),
	}
}

func subscribersFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "subscribers",
		Aliases: []string{"s"},
		Usage:   "CSV file of subscribers to import (default: built-in sample subscribers)",
	}
}

func feedbackFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "feedback",
		Usage: "Write the per subscriber import feedback to this CSV file",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func idFlag(name, usage string) cli.Flag {
	return &cli.StringFlag{
		Name:     name,
		Usage:    usage,
		Required: true,
	}
}

// runCommand runs the whole workflow.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Import subscribers, provision the campaign and its sections, then send it",
		Flags: []cli.Flag{
			subscribersFlag(),
			feedbackFlag(),
			jsonFlag(),
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Preview the subscribers and follow the run in an interactive terminal UI",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log file used while the TUI owns the terminal",
				Value: "./tmp/mwx-tui.log",
			},
		},
		Action: r.Run,
	}
}

// importCommand runs the import stage on its own.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "import",
		Usage:  "Import subscribers into the workflow profile",
		Flags:  []cli.Flag{subscribersFlag(), feedbackFlag(), jsonFlag()},
		Action: r.Import,
	}
}

// campaignCommand runs the campaign stage on its own.
func campaignCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "campaign",
		Usage:  "Find or copy the workflow campaign and assign it to a profile",
		Flags:  []cli.Flag{idFlag("profile-id", "Profile the campaign is sent to"), jsonFlag()},
		Action: r.Campaign,
	}
}

// sectionsCommand runs the section stage on its own.
func sectionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sections",
		Usage: "Create the newsletter sections in a campaign",
		Flags: []cli.Flag{
			idFlag("campaign-id", "Campaign to add sections to"),
			idFlag("template-id", "Template whose section definitions are used"),
		},
		Action: r.Sections,
	}
}

// sendCommand sends a campaign.
func sendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "send",
		Usage:  "Send a campaign immediately",
		Flags:  []cli.Flag{idFlag("campaign-id", "Campaign to send"), jsonFlag()},
		Action: r.Send,
	}
}

// fieldsCommand lists subscriber fields.
func fieldsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "fields",
		Usage:  "List the subscriber fields of the account",
		Flags:  []cli.Flag{jsonFlag()},
		Action: r.Fields,
	}
}

// definitionsCommand lists section definitions.
func definitionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "definitions",
		Aliases: []string{"defs"},
		Usage:   "List the section definitions of a template",
		Flags:   []cli.Flag{idFlag("template-id", "Template to inspect"), jsonFlag()},
		Action:  r.Definitions,
	}
}

// samplesCommand writes the built-in subscribers as CSV.
func samplesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "samples",
		Usage: "Write the built-in sample subscribers as a CSV file to start from",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (default: stdout)",
			},
		},
		Action: r.Samples,
	}
}

// setupCommand writes a config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml from the built-in example and check the credentials",
		Action: r.Setup,
	}
}
