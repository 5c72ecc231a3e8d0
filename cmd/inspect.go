package main

import (
	"context"

	"github.com/desertthunder/mwx/internal/formatter"
	"github.com/desertthunder/mwx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Fields lists the meta and custom subscriber fields of the account.
func (r *Runner) Fields(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine()
	if err != nil {
		return err
	}

	fields, err := engine.Importer().Fields(ctx, nil)
	if err != nil {
		return err
	}
	r.logger.Debug("fields loaded", "count", len(fields))

	if cmd.Bool("json") {
		return r.writeJSON(fields, true)
	}
	r.writePlainHeader("Subscriber fields")
	return r.writeBytes(formatter.FieldsReport(fields))
}

// Definitions lists the section definitions of a template.
func (r *Runner) Definitions(ctx context.Context, cmd *cli.Command) error {
	templateID, err := shared.ParseID(cmd.String("template-id"))
	if err != nil {
		return err
	}
	engine, err := r.engine()
	if err != nil {
		return err
	}

	defs, err := engine.SectionProvisioner().Definitions(ctx, templateID, nil)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(defs, true)
	}
	r.writePlainHeader("Section definitions")
	return r.writeBytes(formatter.DefinitionsReport(defs))
}
