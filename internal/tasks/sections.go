package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/mwx/internal/models"
	"github.com/desertthunder/mwx/internal/services"
	"github.com/desertthunder/mwx/internal/shared"
	"github.com/google/uuid"
)

// Filler produces the value of one section field. It is implemented by [Text], [Flag], [Token] and [Asset].
type Filler interface {
	fill(ctx context.Context, name string, assets *AssetUploader) (models.Field, bool, error)
}

// Text is a literal text value. Links must use double quotes, HTML encoded inside text.
type Text string

// Flag is a boolean value.
type Flag bool

// Token is a personalization placeholder such as [%mwr:briefanrede%], resolved per subscriber when sending.
type Token string

// Asset is a local file stored in the media database under RemoteName.
type Asset struct {
	LocalPath  string
	RemoteName string
}

func (t Text) fill(_ context.Context, name string, _ *AssetUploader) (models.Field, bool, error) {
	return models.TextField(name, string(t)), true, nil
}

func (f Flag) fill(_ context.Context, name string, _ *AssetUploader) (models.Field, bool, error) {
	return models.BooleanField(name, bool(f)), true, nil
}

func (t Token) fill(_ context.Context, name string, _ *AssetUploader) (models.Field, bool, error) {
	return models.TextField(name, string(t)), true, nil
}

// fill omits the field when the upload returns no id.
func (a Asset) fill(ctx context.Context, name string, assets *AssetUploader) (models.Field, bool, error) {
	id, err := assets.Upload(ctx, a.LocalPath, a.RemoteName)
	if err != nil {
		return models.Field{}, false, err
	}
	if id == uuid.Nil {
		return models.Field{}, false, nil
	}
	return models.MDBField(name, id), true, nil
}

// Block describes one section to create: the definition it instantiates and the values of its fields by internal
// name.
type Block struct {
	Definition    string
	StatisticName string
	Fields        map[string]Filler
}

// Blueprint is the ordered list of sections added to a campaign.
type Blueprint []Block

// SectionProvisioner fills a campaign with the sections of a [Blueprint].
type SectionProvisioner struct {
	agent     services.Agent
	settings  Settings
	blueprint Blueprint
	now       func() time.Time
}

// NewSectionProvisioner creates a provisioner. A nil blueprint uses [DefaultBlueprint].
func NewSectionProvisioner(agent services.Agent, settings Settings, blueprint Blueprint) *SectionProvisioner {
	if blueprint == nil {
		blueprint = DefaultBlueprint()
	}
	return &SectionProvisioner{agent: agent, settings: settings, blueprint: blueprint, now: time.Now}
}

// Definitions lists the section definitions of a template.
func (p *SectionProvisioner) Definitions(
	ctx context.Context,
	templateID uuid.UUID,
	progress chan<- ProgressUpdate,
) ([]models.SectionDefinition, error) {
	if templateID == uuid.Nil {
		return nil, fmt.Errorf("%w: template id must not be empty", shared.ErrInvalidArgument)
	}

	defs, err := p.agent.GetSectionDefinitions(ctx, templateID)
	if err != nil {
		sendProgress(progress, lookupFailedUpdate(PhaseDefinitions, "section definitions", err))
		return nil, fmt.Errorf("failed to load section definitions: %w", err)
	}

	sendProgress(progress, definitionsUpdate(templateID, defs))
	return defs, nil
}

// Provision creates every block of the blueprint whose definition is part of the template.
//
// It fails when the template has no section definitions at all or when any attempted creation returns no id.
// Blocks without a matching definition are skipped and do not count as failures.
func (p *SectionProvisioner) Provision(
	ctx context.Context,
	campaignID, templateID uuid.UUID,
	progress chan<- ProgressUpdate,
) (bool, error) {
	if campaignID == uuid.Nil {
		return false, fmt.Errorf("%w: campaign id must not be empty", shared.ErrInvalidArgument)
	}

	defs, err := p.Definitions(ctx, templateID, progress)
	if err != nil {
		return false, err
	}
	if len(defs) == 0 {
		return false, nil
	}

	assets := NewAssetUploader(p.agent, p.settings.MediaPath, p.settings.AssetsDir, progress)
	created := true
	total := len(p.blueprint)

	for n, block := range p.blueprint {
		def, ok := findDefinition(defs, block.Definition)
		if !ok {
			sendProgress(progress, sectionSkippedUpdate(n+1, total, block))
			continue
		}

		fields, err := p.fields(ctx, def, block, assets)
		if err != nil {
			return false, fmt.Errorf("failed to build section %q: %w", block.Definition, err)
		}

		id, err := p.agent.CreateSection(ctx, campaignID, models.Section{
			DefinitionName: def.Name,
			StatisticName:  block.StatisticName,
			Created:        p.now(),
			Fields:         fields,
		})
		if err != nil {
			return false, fmt.Errorf("failed to create section %q: %w", block.Definition, err)
		}

		sendProgress(progress, sectionUpdate(n+1, total, block, id))
		created = created && id != uuid.Nil
	}

	return created, nil
}

// fields walks the definition's fields in order and fills those the block has a value for.
func (p *SectionProvisioner) fields(
	ctx context.Context,
	def models.SectionDefinition,
	block Block,
	assets *AssetUploader,
) ([]models.Field, error) {
	fields := []models.Field{}
	for _, f := range def.Fields {
		filler, ok := block.Fields[f.InternalName]
		if !ok {
			continue
		}

		field, ok, err := filler.fill(ctx, f.InternalName, assets)
		if err != nil {
			return nil, err
		}
		if ok {
			fields = append(fields, field)
		}
	}
	return fields, nil
}

func findDefinition(defs []models.SectionDefinition, name string) (models.SectionDefinition, bool) {
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return models.SectionDefinition{}, false
}

// AssetUploader stores local files in a media database folder, reusing files that are already there by name.
//
// The folder is listed once per uploader.
type AssetUploader struct {
	agent    services.Agent
	path     string
	dir      string
	progress chan<- ProgressUpdate
	files    []models.MDBFile
	listed   bool
}

// NewAssetUploader creates an uploader for the media database folder path. Relative local paths are resolved against
// dir.
func NewAssetUploader(agent services.Agent, path, dir string, progress chan<- ProgressUpdate) *AssetUploader {
	return &AssetUploader{agent: agent, path: path, dir: dir, progress: progress}
}

// Upload returns the id of the file named remoteName, uploading localPath when the folder has no such file.
func (u *AssetUploader) Upload(ctx context.Context, localPath, remoteName string) (uuid.UUID, error) {
	if !u.listed {
		files, err := u.agent.GetMDBFiles(ctx, u.path)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to list media database folder %q: %w", u.path, err)
		}
		u.files = files
		u.listed = true
	}

	for _, f := range u.files {
		if f.Name == remoteName {
			sendProgress(u.progress, assetReusedUpdate(f))
			return f.ID, nil
		}
	}

	if !filepath.IsAbs(localPath) && u.dir != "" {
		localPath = filepath.Join(u.dir, localPath)
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return uuid.Nil, fmt.Errorf("%w: %s", shared.ErrAssetNotFound, localPath)
		}
		return uuid.Nil, fmt.Errorf("failed to read asset %s: %w", localPath, err)
	}

	id, err := u.agent.UploadFileToMDB(ctx, u.path, remoteName, data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to upload %s: %w", remoteName, err)
	}

	file := models.MDBFile{ID: id, Name: remoteName, Path: u.path}
	sendProgress(u.progress, assetUploadedUpdate(file))
	if id != uuid.Nil {
		u.files = append(u.files, file)
	}
	return id, nil
}
