// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/mwx/internal/models"
	"github.com/desertthunder/mwx/internal/services"
	"github.com/google/uuid"
)

// Upload records a call to [MockAgent.UploadFileToMDB].
type Upload struct {
	Path string
	Name string
	Data []byte
}

// MockAgent is a test double for [services.Agent].
//
// Results are configured through the exported fields; every call is recorded.
type MockAgent struct {
	mu sync.Mutex

	// Profiles holds the results of successive GetProfiles calls. The last entry repeats.
	Profiles    [][]models.Profile
	ProfilesErr error

	Fields    []models.Field
	FieldsErr error

	ImportResult *models.ImportResult
	ImportErr    error

	Campaigns    []models.Campaign // Filtered by id when the query has one
	CampaignsErr error
	CopyID       uuid.UUID
	CopyErr      error
	UpdateOK     bool
	UpdateErr    error

	Definitions    []models.SectionDefinition
	DefinitionsErr error

	// SectionIDs maps definition names to created ids. A nil map creates a random id for every section; a missing
	// key returns [uuid.Nil].
	SectionIDs map[string]uuid.UUID
	SectionErr error

	Files     []models.MDBFile
	FilesErr  error
	UploadID  uuid.UUID
	UploadErr error

	SendResult *models.SendResult
	SendErr    error

	Calls           []string
	FieldSets       []services.FieldSet
	Imports         []services.ImportRequest
	CampaignQueries []services.CampaignQuery
	Copies          []uuid.UUID
	Updates         []services.CampaignUpdate
	CreatedSections []models.Section
	Uploads         []Upload
	Sends           []services.SendRequest
	profileCalls    int
}

var _ services.Agent = (*MockAgent)(nil)

func (m *MockAgent) record(op string) {
	m.Calls = append(m.Calls, op)
}

// CallCount returns how often op was called.
func (m *MockAgent) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (m *MockAgent) GetProfiles(ctx context.Context, profileType models.ProfileType) ([]models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetProfiles")

	if m.ProfilesErr != nil {
		return nil, m.ProfilesErr
	}
	if len(m.Profiles) == 0 {
		return []models.Profile{}, nil
	}
	i := min(m.profileCalls, len(m.Profiles)-1)
	m.profileCalls++
	return m.Profiles[i], nil
}

func (m *MockAgent) GetSubscriberFields(ctx context.Context, fieldSet services.FieldSet) ([]models.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetSubscriberFields")
	m.FieldSets = append(m.FieldSets, fieldSet)

	if m.FieldsErr != nil {
		return nil, m.FieldsErr
	}
	return m.Fields, nil
}

func (m *MockAgent) ImportSubscribers(ctx context.Context, req services.ImportRequest) (*models.ImportResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ImportSubscribers")
	m.Imports = append(m.Imports, req)

	if m.ImportErr != nil {
		return nil, m.ImportErr
	}
	return m.ImportResult, nil
}

func (m *MockAgent) GetCampaigns(ctx context.Context, query services.CampaignQuery) ([]models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetCampaigns")
	m.CampaignQueries = append(m.CampaignQueries, query)

	if m.CampaignsErr != nil {
		return nil, m.CampaignsErr
	}
	if query.ID == uuid.Nil {
		return m.Campaigns, nil
	}

	found := []models.Campaign{}
	for _, c := range m.Campaigns {
		if c.ID == query.ID {
			found = append(found, c)
		}
	}
	return found, nil
}

func (m *MockAgent) CopyCampaign(ctx context.Context, campaignID uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CopyCampaign")
	m.Copies = append(m.Copies, campaignID)

	if m.CopyErr != nil {
		return uuid.Nil, m.CopyErr
	}
	return m.CopyID, nil
}

func (m *MockAgent) UpdateCampaign(ctx context.Context, update services.CampaignUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UpdateCampaign")
	m.Updates = append(m.Updates, update)

	if m.UpdateErr != nil {
		return false, m.UpdateErr
	}
	return m.UpdateOK, nil
}

func (m *MockAgent) GetSectionDefinitions(ctx context.Context, templateID uuid.UUID) ([]models.SectionDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetSectionDefinitions")

	if m.DefinitionsErr != nil {
		return nil, m.DefinitionsErr
	}
	return m.Definitions, nil
}

func (m *MockAgent) CreateSection(ctx context.Context, campaignID uuid.UUID, section models.Section) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateSection")
	m.CreatedSections = append(m.CreatedSections, section)

	if m.SectionErr != nil {
		return uuid.Nil, m.SectionErr
	}
	if m.SectionIDs == nil {
		return uuid.New(), nil
	}
	return m.SectionIDs[section.DefinitionName], nil
}

func (m *MockAgent) GetMDBFiles(ctx context.Context, path string) ([]models.MDBFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetMDBFiles")

	if m.FilesErr != nil {
		return nil, m.FilesErr
	}
	return m.Files, nil
}

func (m *MockAgent) UploadFileToMDB(ctx context.Context, path, name string, data []byte) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UploadFileToMDB")
	m.Uploads = append(m.Uploads, Upload{Path: path, Name: name, Data: data})

	if m.UploadErr != nil {
		return uuid.Nil, m.UploadErr
	}
	return m.UploadID, nil
}

func (m *MockAgent) SendCampaign(ctx context.Context, req services.SendRequest) (*models.SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SendCampaign")
	m.Sends = append(m.Sends, req)

	if m.SendErr != nil {
		return nil, m.SendErr
	}
	return m.SendResult, nil
}

// Drain collects every update buffered in progress. The channel must not be written to concurrently.
func Drain[T any](progress chan T) []T {
	out := []T{}
	for {
		select {
		case u := <-progress:
			out = append(out, u)
		default:
			return out
		}
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
