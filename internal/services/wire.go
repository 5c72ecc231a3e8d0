package services

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mwx/internal/models"
	"github.com/google/uuid"
)

// Wire shapes of the mailworx webservice. Element names follow the .NET proxy types of the service.

type wireSecurityContext struct {
	Account  string `xml:"Account"`
	Username string `xml:"Username"`
	Password string `xml:"Password"`
	Source   string `xml:"Source"`
}

// header is embedded in every request.
type header struct {
	SecurityContext wireSecurityContext `xml:"SecurityContext"`
	Language        string              `xml:"Language"`
}

type wireSelection struct {
	Caption      string `xml:"Caption"`
	InternalName string `xml:"InternalName"`
}

// wireField is a [models.Field] on the wire: <Field xsi:type="TextField">.
type wireField struct {
	Kind             models.FieldKind
	InternalName     string
	UntypedValue     string
	SelectionObjects []wireSelection
}

type wireSelections struct {
	Items []wireSelection `xml:"SelectionFieldElement"`
}

// wireFieldBody holds SelectionObjects behind a pointer so fields without selections omit the element.
type wireFieldBody struct {
	InternalName     string          `xml:"InternalName"`
	UntypedValue     string          `xml:"UntypedValue"`
	SelectionObjects *wireSelections `xml:"SelectionObjects,omitempty"`
}

func (f wireField) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if f.Kind == models.KindUnknown {
		return fmt.Errorf("field %s has no kind", f.InternalName)
	}
	start.Attr = append(start.Attr, xsiType(f.Kind.String()))
	body := wireFieldBody{InternalName: f.InternalName, UntypedValue: f.UntypedValue}
	if len(f.SelectionObjects) > 0 {
		body.SelectionObjects = &wireSelections{Items: f.SelectionObjects}
	}
	return e.EncodeElement(body, start)
}

func (f *wireField) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "type" && (attr.Name.Space == xsiNS || attr.Name.Space == "xsi") {
			// The value may carry a namespace prefix of its own, e.g. q1:TextField.
			name := attr.Value
			if i := strings.LastIndex(name, ":"); i >= 0 {
				name = name[i+1:]
			}
			f.Kind = models.KindFromTypeName(name)
		}
	}

	var body wireFieldBody
	if err := d.DecodeElement(&body, &start); err != nil {
		return err
	}
	f.InternalName = body.InternalName
	f.UntypedValue = body.UntypedValue
	if body.SelectionObjects != nil {
		f.SelectionObjects = body.SelectionObjects.Items
	}
	return nil
}

func toWireFields(fields []models.Field) []wireField {
	out := make([]wireField, len(fields))
	for i, f := range fields {
		out[i] = wireField{Kind: f.Kind, InternalName: f.InternalName, UntypedValue: f.Value}
	}
	return out
}

func fromWireFields(fields []wireField) []models.Field {
	out := make([]models.Field, len(fields))
	for i, f := range fields {
		out[i] = models.Field{Kind: f.Kind, InternalName: f.InternalName, Value: f.UntypedValue}
		for _, s := range f.SelectionObjects {
			out[i].Selections = append(out[i].Selections, models.SelectionElement{
				Caption:      s.Caption,
				InternalName: s.InternalName,
			})
		}
	}
	return out
}

// parseGUID accepts the empty string (and xsi:nil elements, which decode as empty) as [uuid.Nil].
func parseGUID(s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed id %q: %w", s, err)
	}
	return id, nil
}

// Profiles

type profilesRequest struct {
	header
	Type models.ProfileType `xml:"Type"`
}

type wireProfile struct {
	Guid string `xml:"Guid"`
	Name string `xml:"Name"`
	Type string `xml:"Type"`
}

type profilesResponse struct {
	Profiles []wireProfile `xml:"Profiles>Profile"`
}

func (r *profilesResponse) toModels() ([]models.Profile, error) {
	out := make([]models.Profile, 0, len(r.Profiles))
	for _, p := range r.Profiles {
		id, err := parseGUID(p.Guid)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		out = append(out, models.Profile{ID: id, Name: p.Name, Type: models.ProfileType(p.Type)})
	}
	return out, nil
}

// Subscriber fields

type subscriberFieldRequest struct {
	header
	FieldType string `xml:"FieldType"`
}

type subscriberFieldResponse struct {
	Fields []wireField `xml:"Fields>Field"`
}

// Import

type wireSubscriber struct {
	OptIn      bool        `xml:"OptIn"`
	Mailformat string      `xml:"Mailformat,omitempty"`
	Language   string      `xml:"Language,omitempty"`
	Status     string      `xml:"Status,omitempty"`
	Fields     []wireField `xml:"Fields>Field"`
}

type wireClearProfile struct {
	Name string `xml:"Name"`
}

type wireProfileAdder struct {
	Name        string `xml:"Name"`
	ExecuteWith string `xml:"ExecuteWith"`
}

type importRequest struct {
	header
	Subscribers           []wireSubscriber `xml:"Subscribers>Subscriber"`
	DuplicateCriteria     string           `xml:"DuplicateCriteria"`
	BeforeImportActions   []typed          `xml:"BeforeImportActions>BeforeImportAction,omitempty"`
	PostSubscriberActions []typed          `xml:"PostSubscriberActions>PostSubscriberAction,omitempty"`
}

func newImportRequest(h header, req ImportRequest) importRequest {
	out := importRequest{header: h, DuplicateCriteria: req.DuplicateCriteria}
	for _, s := range req.Subscribers {
		out.Subscribers = append(out.Subscribers, wireSubscriber{
			OptIn:      s.OptIn,
			Mailformat: string(s.MailFormat),
			Language:   s.Language,
			Status:     string(s.Status),
			Fields:     toWireFields(s.Fields),
		})
	}
	for _, a := range req.BeforeImport {
		out.BeforeImportActions = append(out.BeforeImportActions, typed{
			Type:  "ClearProfileAction",
			Value: wireClearProfile{Name: a.Name},
		})
	}
	for _, a := range req.AfterImport {
		out.PostSubscriberActions = append(out.PostSubscriberActions, typed{
			Type:  "ProfileAdderAction",
			Value: wireProfileAdder{Name: a.Name, ExecuteWith: a.ExecuteWith.String()},
		})
	}
	return out
}

type wireFeedback struct {
	UniqueId           string `xml:"UniqueId"`
	AffectedSubscriber string `xml:"AffectedSubscriber"`
	Error              string `xml:"Error"`
}

type importResponse struct {
	Duplicates   int            `xml:"Duplicates"`
	Errors       int            `xml:"Errors"`
	Imported     int            `xml:"Imported"`
	Updated      int            `xml:"Updated"`
	FeedbackData []wireFeedback `xml:"FeedbackData>SubscriberImportFeedback"`
}

func (r *importResponse) toModel() (*models.ImportResult, error) {
	out := &models.ImportResult{
		Imported:   r.Imported,
		Updated:    r.Updated,
		Duplicates: r.Duplicates,
		Errors:     r.Errors,
	}
	for _, fb := range r.FeedbackData {
		id, err := parseGUID(fb.AffectedSubscriber)
		if err != nil {
			return nil, fmt.Errorf("feedback for %s: %w", fb.UniqueId, err)
		}
		out.Feedback = append(out.Feedback, models.ImportFeedback{
			UniqueID:   fb.UniqueId,
			Subscriber: id,
			Error:      fb.Error,
		})
	}
	return out, nil
}

// Campaigns

type campaignsRequest struct {
	header
	Type models.CampaignType `xml:"Type"`
	Id   *uuid.UUID          `xml:"Id,omitempty"`
}

type wireCampaign struct {
	Guid          string `xml:"Guid"`
	TemplateGuid  string `xml:"TemplateGuid"`
	Name          string `xml:"Name"`
	Culture       string `xml:"Culture"`
	SenderName    string `xml:"SenderName"`
	SenderAddress string `xml:"SenderAddress"`
	Subject       string `xml:"Subject"`
	ProfileGuid   string `xml:"ProfileGuid"`
}

type campaignsResponse struct {
	Campaigns []wireCampaign `xml:"Campaigns>Campaign"`
}

func (r *campaignsResponse) toModels() ([]models.Campaign, error) {
	out := make([]models.Campaign, 0, len(r.Campaigns))
	for _, c := range r.Campaigns {
		var ids [3]uuid.UUID
		for i, raw := range []string{c.Guid, c.TemplateGuid, c.ProfileGuid} {
			id, err := parseGUID(raw)
			if err != nil {
				return nil, fmt.Errorf("campaign %s: %w", c.Name, err)
			}
			ids[i] = id
		}
		out = append(out, models.Campaign{
			ID:            ids[0],
			TemplateID:    ids[1],
			ProfileID:     ids[2],
			Name:          c.Name,
			Culture:       c.Culture,
			SenderName:    c.SenderName,
			SenderAddress: c.SenderAddress,
			Subject:       c.Subject,
		})
	}
	return out, nil
}

type copyCampaignRequest struct {
	header
	CampaignToCopy uuid.UUID `xml:"CampaignToCopy"`
}

type copyCampaignResponse struct {
	NewCampaignGuid string `xml:"NewCampaignGuid"`
}

// updateCampaignRequest has no omitempty on text fields: an omitted field is reset to empty by the service.
type updateCampaignRequest struct {
	header
	CampaignGuid  uuid.UUID `xml:"CampaignGuid"`
	ProfileGuid   uuid.UUID `xml:"ProfileGuid"`
	Name          string    `xml:"Name"`
	SenderAddress string    `xml:"SenderAddress"`
	SenderName    string    `xml:"SenderName"`
	Subject       string    `xml:"Subject"`
}

type updateCampaignResponse struct{}

// Sections

type wireGuidRef struct {
	Guid uuid.UUID `xml:"Guid"`
}

type sectionDefinitionRequest struct {
	header
	Template wireGuidRef `xml:"Template"`
}

type wireSectionDefinition struct {
	Name   string      `xml:"Name"`
	Fields []wireField `xml:"Fields>Field"`
}

type sectionDefinitionResponse struct {
	SectionDefinitions []wireSectionDefinition `xml:"SectionDefinitions>SectionDefinition"`
}

func (r *sectionDefinitionResponse) toModels() []models.SectionDefinition {
	out := make([]models.SectionDefinition, 0, len(r.SectionDefinitions))
	for _, d := range r.SectionDefinitions {
		out = append(out, models.SectionDefinition{Name: d.Name, Fields: fromWireFields(d.Fields)})
	}
	return out
}

type wireSection struct {
	Created               string      `xml:"Created"`
	SectionDefinitionName string      `xml:"SectionDefinitionName"`
	StatisticName         string      `xml:"StatisticName"`
	Fields                []wireField `xml:"Fields>Field"`
}

type createSectionRequest struct {
	header
	Campaign wireGuidRef `xml:"Campaign"`
	Section  wireSection `xml:"Section"`
}

func newCreateSectionRequest(h header, campaignID uuid.UUID, s models.Section) createSectionRequest {
	created := s.Created
	if created.IsZero() {
		created = time.Now()
	}
	return createSectionRequest{
		header:   h,
		Campaign: wireGuidRef{Guid: campaignID},
		Section: wireSection{
			Created:               created.Format(models.DateTimeLayout),
			SectionDefinitionName: s.DefinitionName,
			StatisticName:         s.StatisticName,
			Fields:                toWireFields(s.Fields),
		},
	}
}

type createSectionResponse struct {
	Guid string `xml:"Guid"`
}

// Media database

type mediaDBRequest struct {
	header
	Path string `xml:"Path"`
}

type wireFile struct {
	Id   string `xml:"Id"`
	Name string `xml:"Name"`
	Path string `xml:"Path"`
}

type fileResponse struct {
	Files []wireFile `xml:"Files>File"`
}

func (r *fileResponse) toModels() ([]models.MDBFile, error) {
	out := make([]models.MDBFile, 0, len(r.Files))
	for _, f := range r.Files {
		id, err := parseGUID(f.Id)
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", f.Name, err)
		}
		out = append(out, models.MDBFile{ID: id, Name: f.Name, Path: f.Path})
	}
	return out, nil
}

// fileUploadRequest carries the file as base64, the xs:base64Binary encoding of byte[].
type fileUploadRequest struct {
	header
	File string `xml:"File"`
	Name string `xml:"Name"`
	Path string `xml:"Path"`
}

func newFileUploadRequest(h header, path, name string, data []byte) fileUploadRequest {
	return fileUploadRequest{
		header: h,
		File:   base64.StdEncoding.EncodeToString(data),
		Name:   name,
		Path:   path,
	}
}

type fileUploadResponse struct {
	FileId string `xml:"FileId"`
}

// Send

type manualSendSettings struct {
	SendTime string `xml:"SendTime"`
}

type sendCampaignRequest struct {
	header
	CampaignId    uuid.UUID `xml:"CampaignId"`
	IgnoreCulture bool      `xml:"IgnoreCulture"`
	SendType      string    `xml:"SendType"`
	Settings      *typed    `xml:"Settings,omitempty"`
	UseIRated     bool      `xml:"UseIRated"`
	UseRTR        bool      `xml:"UseRTR"`
}

func newSendCampaignRequest(h header, req SendRequest) sendCampaignRequest {
	out := sendCampaignRequest{
		header:        h,
		CampaignId:    req.CampaignID,
		IgnoreCulture: req.IgnoreCulture,
		SendType:      string(req.Type),
		UseIRated:     req.UseIRated,
		UseRTR:        req.UseRTR,
	}
	if req.Type == models.SendTypeManual {
		sendTime := req.SendTime
		if sendTime.IsZero() {
			sendTime = time.Now()
		}
		out.Settings = &typed{
			Type:  "ManualSendSettings",
			Value: manualSendSettings{SendTime: sendTime.Format(models.DateTimeLayout)},
		}
	}
	return out
}

type sendCampaignResponse struct {
	RecipientsEffective int `xml:"RecipientsEffective"`
}
