// mailworx webservice implementation of [Agent]
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mwx/internal/models"
	"github.com/desertthunder/mwx/internal/shared"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	DefaultEndpoint  = "http://sys.mailworx.info/services/serviceagent.asmx"
	DefaultNamespace = "http://tempuri.org/"
	DefaultLanguage  = "EN"
)

// ClientOpts configures a [Client]. Zero values fall back to the defaults above.
type ClientOpts struct {
	Endpoint          string
	Namespace         string
	Security          models.SecurityContext
	Language          string
	HTTPClient        *http.Client
	Timeout           time.Duration // Ignored when HTTPClient is set
	RequestsPerSecond float64       // 0 disables throttling
	Logger            *log.Logger
}

// Client talks SOAP 1.1 to the mailworx webservice.
type Client struct {
	endpoint   string
	namespace  string
	security   models.SecurityContext
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewClient validates the options and creates a client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	u, err := url.Parse(opts.Endpoint)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: endpoint %q is not an absolute url", shared.ErrInvalidConfig, opts.Endpoint)
	}

	sc := opts.Security
	missing := []string{}
	for name, v := range map[string]string{
		"account":  sc.Account,
		"username": sc.Username,
		"password": sc.Password,
		"source":   sc.Source,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %v", shared.ErrMissingCredentials, missing)
	}

	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(os.Stderr)
	}

	c := &Client{
		endpoint:   opts.Endpoint,
		namespace:  opts.Namespace,
		security:   sc,
		language:   opts.Language,
		httpClient: opts.HTTPClient,
		logger:     shared.WithLogger(opts.Logger, "component", "soap"),
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c, nil
}

func (c *Client) header() header {
	return c.headerIn(c.language)
}

func (c *Client) headerIn(language string) header {
	return header{
		SecurityContext: wireSecurityContext{
			Account:  c.security.Account,
			Username: c.security.Username,
			Password: c.security.Password,
			Source:   c.security.Source,
		},
		Language: language,
	}
}

func (c *Client) GetProfiles(ctx context.Context, profileType models.ProfileType) ([]models.Profile, error) {
	resp, err := call[profilesResponse](ctx, c, "GetProfiles", profilesRequest{header: c.header(), Type: profileType})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return []models.Profile{}, nil
	}
	profiles, err := resp.toModels()
	if err != nil {
		return nil, fmt.Errorf("%w: GetProfiles: %v", shared.ErrAPIRequest, err)
	}
	return profiles, nil
}

func (c *Client) GetSubscriberFields(ctx context.Context, fieldSet FieldSet) ([]models.Field, error) {
	req := subscriberFieldRequest{header: c.header(), FieldType: fieldSet.String()}
	resp, err := call[subscriberFieldResponse](ctx, c, "GetSubscriberFields", req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return []models.Field{}, nil
	}
	return fromWireFields(resp.Fields), nil
}

func (c *Client) ImportSubscribers(ctx context.Context, req ImportRequest) (*models.ImportResult, error) {
	resp, err := call[importResponse](ctx, c, "ImportSubscribers", newImportRequest(c.header(), req))
	if err != nil || resp == nil {
		return nil, err
	}
	result, err := resp.toModel()
	if err != nil {
		return nil, fmt.Errorf("%w: ImportSubscribers: %v", shared.ErrAPIRequest, err)
	}
	return result, nil
}

func (c *Client) GetCampaigns(ctx context.Context, query CampaignQuery) ([]models.Campaign, error) {
	req := campaignsRequest{header: c.header(), Type: query.Type}
	if req.Type == "" {
		req.Type = models.CampaignTypeInWork
	}
	if query.ID != uuid.Nil {
		id := query.ID
		req.Id = &id
	}

	resp, err := call[campaignsResponse](ctx, c, "GetCampaigns", req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return []models.Campaign{}, nil
	}
	campaigns, err := resp.toModels()
	if err != nil {
		return nil, fmt.Errorf("%w: GetCampaigns: %v", shared.ErrAPIRequest, err)
	}
	return campaigns, nil
}

func (c *Client) CopyCampaign(ctx context.Context, campaignID uuid.UUID) (uuid.UUID, error) {
	resp, err := call[copyCampaignResponse](ctx, c, "CopyCampaign", copyCampaignRequest{
		header:         c.header(),
		CampaignToCopy: campaignID,
	})
	if err != nil || resp == nil {
		return uuid.Nil, err
	}
	return c.resultID("CopyCampaign", resp.NewCampaignGuid)
}

// UpdateCampaign sends every text field of the update. The request language is the one of the update when set.
func (c *Client) UpdateCampaign(ctx context.Context, update CampaignUpdate) (bool, error) {
	language := update.Language
	if language == "" {
		language = c.language
	}

	resp, err := call[updateCampaignResponse](ctx, c, "UpdateCampaign", updateCampaignRequest{
		header:        c.headerIn(language),
		CampaignGuid:  update.CampaignID,
		ProfileGuid:   update.ProfileID,
		Name:          update.Name,
		SenderAddress: update.SenderAddress,
		SenderName:    update.SenderName,
		Subject:       update.Subject,
	})
	if err != nil {
		return false, err
	}
	return resp != nil, nil
}

func (c *Client) GetSectionDefinitions(ctx context.Context, templateID uuid.UUID) ([]models.SectionDefinition, error) {
	resp, err := call[sectionDefinitionResponse](ctx, c, "GetSectionDefinitions", sectionDefinitionRequest{
		header:   c.header(),
		Template: wireGuidRef{Guid: templateID},
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return []models.SectionDefinition{}, nil
	}
	return resp.toModels(), nil
}

func (c *Client) CreateSection(ctx context.Context, campaignID uuid.UUID, section models.Section) (uuid.UUID, error) {
	req := newCreateSectionRequest(c.header(), campaignID, section)
	resp, err := call[createSectionResponse](ctx, c, "CreateSection", req)
	if err != nil || resp == nil {
		return uuid.Nil, err
	}
	return c.resultID("CreateSection", resp.Guid)
}

func (c *Client) GetMDBFiles(ctx context.Context, path string) ([]models.MDBFile, error) {
	resp, err := call[fileResponse](ctx, c, "GetMDBFiles", mediaDBRequest{header: c.header(), Path: path})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return []models.MDBFile{}, nil
	}
	files, err := resp.toModels()
	if err != nil {
		return nil, fmt.Errorf("%w: GetMDBFiles: %v", shared.ErrAPIRequest, err)
	}
	return files, nil
}

func (c *Client) UploadFileToMDB(ctx context.Context, path, name string, data []byte) (uuid.UUID, error) {
	req := newFileUploadRequest(c.header(), path, name, data)
	resp, err := call[fileUploadResponse](ctx, c, "UploadFileToMDB", req)
	if err != nil || resp == nil {
		return uuid.Nil, err
	}
	return c.resultID("UploadFileToMDB", resp.FileId)
}

func (c *Client) SendCampaign(ctx context.Context, req SendRequest) (*models.SendResult, error) {
	header := c.header()
	if req.Language != "" {
		header = c.headerIn(req.Language)
	}

	resp, err := call[sendCampaignResponse](ctx, c, "SendCampaign", newSendCampaignRequest(header, req))
	if err != nil || resp == nil {
		return nil, err
	}
	return &models.SendResult{RecipientsEffective: resp.RecipientsEffective}, nil
}

func (c *Client) resultID(op, raw string) (uuid.UUID, error) {
	id, err := parseGUID(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, op, err)
	}
	return id, nil
}
