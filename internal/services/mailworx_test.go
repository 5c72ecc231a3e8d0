package services

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mwx/internal/models"
	"github.com/desertthunder/mwx/internal/shared"
	"github.com/google/uuid"
)

var testSecurity = models.SecurityContext{Account: "acme", Username: "bob", Password: "secret", Source: "mwx"}

// soapServer answers each operation with a canned body and records the requests it received.
type soapServer struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]string
	status    int
	bodies    map[string]string
	actions   []string
}

func newSOAPServer(t *testing.T, responses map[string]string) *soapServer {
	t.Helper()

	s := &soapServer{responses: responses, bodies: map[string]string{}, status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		action := strings.Trim(r.Header.Get("SOAPAction"), `"`)
		op := strings.TrimPrefix(action, "http://tempuri.org/")

		s.mu.Lock()
		s.actions = append(s.actions, action)
		s.bodies[op] = string(body)
		status := s.status
		resp, ok := s.responses[op]
		s.mu.Unlock()

		if !ok {
			resp = respond(op, "")
		}
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *soapServer) body(op string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[op]
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()

	c, err := NewClient(ClientOpts{
		Endpoint: endpoint,
		Security: testSecurity,
		Logger:   log.New(io.Discard),
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func TestNewClient(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		c, err := NewClient(ClientOpts{Security: testSecurity, Logger: log.New(io.Discard)})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if c.endpoint != DefaultEndpoint {
			t.Errorf("expected default endpoint, got %s", c.endpoint)
		}
		if c.namespace != DefaultNamespace {
			t.Errorf("expected default namespace, got %s", c.namespace)
		}
		if c.language != DefaultLanguage {
			t.Errorf("expected default language, got %s", c.language)
		}
		if c.limiter != nil {
			t.Error("expected no limiter when requests per second is zero")
		}
	})

	t.Run("Rate Limit", func(t *testing.T) {
		c, err := NewClient(ClientOpts{Security: testSecurity, RequestsPerSecond: 2, Logger: log.New(io.Discard)})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if c.limiter == nil {
			t.Fatal("expected limiter")
		}
		if c.limiter.Limit() != 2 {
			t.Errorf("expected limit 2, got %v", c.limiter.Limit())
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		c, err := NewClient(ClientOpts{Security: testSecurity, Timeout: 5 * time.Second, Logger: log.New(io.Discard)})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("expected 5s timeout, got %v", c.httpClient.Timeout)
		}
	})

	t.Run("Missing Credentials", func(t *testing.T) {
		_, err := NewClient(ClientOpts{Security: models.SecurityContext{Account: "acme", Username: "bob"}})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Fatalf("expected ErrMissingCredentials, got %v", err)
		}
		if !strings.Contains(err.Error(), "[password source]") {
			t.Errorf("expected missing names in error, got %v", err)
		}
	})

	t.Run("Invalid Endpoint", func(t *testing.T) {
		_, err := NewClient(ClientOpts{Endpoint: "serviceagent.asmx", Security: testSecurity})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	profileID := uuid.MustParse("0b6f1d4e-2d1a-4f4b-8b4e-3f0c7b0c9a11")
	campaignID := uuid.MustParse("5a1c3e2b-7f0d-4e8a-9c1b-2d3e4f5a6b7c")
	templateID := uuid.MustParse("9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b")

	t.Run("GetProfiles", func(t *testing.T) {
		srv := newSOAPServer(t, map[string]string{
			"GetProfiles": respond("GetProfiles", `<GetProfilesResult><Profiles><Profile>`+
				`<Guid>`+profileID.String()+`</Guid><Name>MyFirstProfile</Name><Type>Static</Type>`+
				`</Profile></Profiles></GetProfilesResult>`),
		})
		c := newTestClient(t, srv.URL)

		profiles, err := c.GetProfiles(ctx, models.ProfileTypeStatic)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(profiles) != 1 {
			t.Fatalf("expected 1 profile, got %d", len(profiles))
		}
		if profiles[0].ID != profileID || profiles[0].Name != "MyFirstProfile" || profiles[0].Type != models.ProfileTypeStatic {
			t.Errorf("unexpected profile %+v", profiles[0])
		}

		if srv.actions[0] != "http://tempuri.org/GetProfiles" {
			t.Errorf("unexpected SOAPAction %s", srv.actions[0])
		}
		body := srv.body("GetProfiles")
		if !strings.Contains(body, "<Account>acme</Account>") || !strings.Contains(body, "<Source>mwx</Source>") {
			t.Errorf("expected security context in request, got %s", body)
		}
	})

	t.Run("Logs Calls", func(t *testing.T) {
		srv := newSOAPServer(t, map[string]string{})
		var buf strings.Builder
		logger := log.New(&buf)
		logger.SetLevel(log.DebugLevel)

		c, err := NewClient(ClientOpts{Endpoint: srv.URL, Security: testSecurity, Logger: logger})
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if _, err := c.GetProfiles(ctx, models.ProfileTypeStatic); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "component=soap") || !strings.Contains(out, "op=GetProfiles") {
			t.Errorf("expected tagged call log, got %q", out)
		}
	})

	t.Run("Absent Results", func(t *testing.T) {
		srv := newSOAPServer(t, map[string]string{})
		c := newTestClient(t, srv.URL)

		profiles, err := c.GetProfiles(ctx, models.ProfileTypeStatic)
		if err != nil || len(profiles) != 0 {
			t.Errorf("expected empty profiles, got %v, %v", profiles, err)
		}

		result, err := c.ImportSubscribers(ctx, ImportRequest{DuplicateCriteria: "email"})
		if err != nil || result != nil {
			t.Errorf("expected nil import result, got %v, %v", result, err)
		}

		id, err := c.CopyCampaign(ctx, campaignID)
		if err != nil || id != uuid.Nil {
			t.Errorf("expected nil copy id, got %v, %v", id, err)
		}

		ok, err := c.UpdateCampaign(ctx, CampaignUpdate{CampaignID: campaignID})
		if err != nil || ok {
			t.Errorf("expected failed update, got %v, %v", ok, err)
		}

		id, err = c.CreateSection(ctx, campaignID, models.Section{DefinitionName: "article"})
		if err != nil || id != uuid.Nil {
			t.Errorf("expected nil section id, got %v, %v", id, err)
		}

		sent, err := c.SendCampaign(ctx, SendRequest{CampaignID: campaignID, Type: models.SendTypeManual})
		if err != nil || sent != nil {
			t.Errorf("expected nil send result, got %v, %v", sent, err)
		}
	})

	t.Run("Fault", func(t *testing.T) {
		srv := newSOAPServer(t, map[string]string{"GetCampaigns": fault("soap:Server", "invalid login")})
		srv.status = http.StatusInternalServerError
		c := newTestClient(t, srv.URL)

		_, err := c.GetCampaigns(ctx, CampaignQuery{Type: models.CampaignTypeInWork})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}

		var f *Fault
		if !errors.As(err, &f) {
			t.Fatalf("expected *Fault in chain, got %v", err)
		}
		if f.Message != "invalid login" {
			t.Errorf("unexpected fault message %s", f.Message)
		}
	})

	t.Run("HTTP Error", func(t *testing.T) {
		srv := newSOAPServer(t, map[string]string{"GetMDBFiles": "bad gateway"})
		srv.status = http.StatusBadGateway
		c := newTestClient(t, srv.URL)

		_, err := c.GetMDBFiles(ctx, "mailworx")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "502") {
			t.Errorf("expected status in error, got %v", err)
		}
	})

	t.Run("Malformed ID", func(t *testing.T) {
		srv := newSOAPServer(t, map[string]string{
			"CopyCampaign": respond("CopyCampaign", `<CopyCampaignResult><NewCampaignGuid>not-a-guid</NewCampaignGuid></CopyCampaignResult>`),
		})
		c := newTestClient(t, srv.URL)

		if _, err := c.CopyCampaign(ctx, campaignID); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("ImportSubscribers", func(t *testing.T) {
		subscriberID := uuid.New()
		srv := newSOAPServer(t, map[string]string{
			"ImportSubscribers": respond("ImportSubscribers", `<ImportSubscribersResult>`+
				`<Duplicates>0</Duplicates><Errors>1</Errors><Imported>1</Imported><Updated>0</Updated>`+
				`<FeedbackData>`+
				`<SubscriberImportFeedback><UniqueId>max@example.com</UniqueId><AffectedSubscriber>`+subscriberID.String()+`</AffectedSubscriber></SubscriberImportFeedback>`+
				`<SubscriberImportFeedback><UniqueId>broken</UniqueId><AffectedSubscriber>00000000-0000-0000-0000-000000000000</AffectedSubscriber><Error>invalid email</Error></SubscriberImportFeedback>`+
				`</FeedbackData></ImportSubscribersResult>`),
		})
		c := newTestClient(t, srv.URL)

		result, err := c.ImportSubscribers(ctx, ImportRequest{
			Subscribers: []models.Subscriber{{
				OptIn:      true,
				MailFormat: models.MailFormatMultipart,
				Language:   "EN",
				Status:     models.StatusActive,
				Fields:     []models.Field{models.TextField("email", "max@example.com")},
			}},
			DuplicateCriteria: "email",
			BeforeImport:      []ClearProfileAction{{Name: "MyFirstProfile"}},
			AfterImport:       []ProfileAdderAction{{Name: "MyFirstProfile", ExecuteWith: ExecuteOnInsert | ExecuteOnUpdate}},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Imported != 1 || result.Errors != 1 || len(result.Feedback) != 2 {
			t.Fatalf("unexpected result %+v", result)
		}
		if result.Feedback[0].Subscriber != subscriberID || result.Feedback[0].Failed() {
			t.Errorf("unexpected first feedback %+v", result.Feedback[0])
		}
		if !result.Feedback[1].Failed() || result.Feedback[1].Subscriber != uuid.Nil {
			t.Errorf("unexpected second feedback %+v", result.Feedback[1])
		}

		body := srv.body("ImportSubscribers")
		for _, want := range []string{
			`<DuplicateCriteria>email</DuplicateCriteria>`,
			`<BeforeImportAction xsi:type="ClearProfileAction"><Name>MyFirstProfile</Name></BeforeImportAction>`,
			`<PostSubscriberAction xsi:type="ProfileAdderAction"><Name>MyFirstProfile</Name><ExecuteWith>Insert Update</ExecuteWith></PostSubscriberAction>`,
			`<Subscriber><OptIn>true</OptIn><Mailformat>Multipart</Mailformat><Language>EN</Language><Status>Active</Status>`,
			`<Field xsi:type="TextField"><InternalName>email</InternalName><UntypedValue>max@example.com</UntypedValue></Field>`,
		} {
			if !strings.Contains(body, want) {
				t.Errorf("expected request to contain %s", want)
			}
		}
	})

	t.Run("GetCampaigns By ID", func(t *testing.T) {
		srv := newSOAPServer(t, map[string]string{
			"GetCampaigns": respond("GetCampaigns", `<GetCampaignsResult><Campaigns><Campaign>`+
				`<Guid>`+campaignID.String()+`</Guid><TemplateGuid>`+templateID.String()+`</TemplateGuid>`+
				`<Name>mailworx campaign</Name><Culture>DE</Culture><ProfileGuid xsi:nil="true" />`+
				`</Campaign></Campaigns></GetCampaignsResult>`),
		})
		c := newTestClient(t, srv.URL)

		campaigns, err := c.GetCampaigns(ctx, CampaignQuery{ID: campaignID})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(campaigns) != 1 {
			t.Fatalf("expected 1 campaign, got %d", len(campaigns))
		}
		got := campaigns[0]
		if got.ID != campaignID || got.TemplateID != templateID || got.Culture != "DE" || got.ProfileID != uuid.Nil {
			t.Errorf("unexpected campaign %+v", got)
		}

		body := srv.body("GetCampaigns")
		if !strings.Contains(body, "<Type>InWork</Type><Id>"+campaignID.String()+"</Id>") {
			t.Errorf("expected type and id in request, got %s", body)
		}
	})

	t.Run("UpdateCampaign Sends Every Field", func(t *testing.T) {
		srv := newSOAPServer(t, map[string]string{
			"UpdateCampaign": respond("UpdateCampaign", `<UpdateCampaignResult />`),
		})
		c := newTestClient(t, srv.URL)

		ok, err := c.UpdateCampaign(ctx, CampaignUpdate{
			CampaignID: campaignID,
			ProfileID:  profileID,
			Language:   "DE",
			Name:       "My first campaign",
		})
		if err != nil || !ok {
			t.Fatalf("expected successful update, got %v, %v", ok, err)
		}

		body := srv.body("UpdateCampaign")
		for _, want := range []string{
			"<Language>DE</Language>",
			"<CampaignGuid>" + campaignID.String() + "</CampaignGuid>",
			"<ProfileGuid>" + profileID.String() + "</ProfileGuid>",
			"<Name>My first campaign</Name>",
			"<SenderAddress></SenderAddress>",
			"<SenderName></SenderName>",
			"<Subject></Subject>",
		} {
			if !strings.Contains(body, want) {
				t.Errorf("expected request to contain %s, got %s", want, body)
			}
		}
	})

	t.Run("GetSectionDefinitions", func(t *testing.T) {
		srv := newSOAPServer(t, map[string]string{
			"GetSectionDefinitions": respond("GetSectionDefinitions", `<GetSectionDefinitionsResult><SectionDefinitions>`+
				`<SectionDefinition><Name>article</Name><Fields>`+
				`<Field xsi:type="BooleanField"><InternalName>a_show</InternalName></Field>`+
				`<Field xsi:type="MdbField"><InternalName>productimage</InternalName></Field>`+
				`</Fields></SectionDefinition>`+
				`</SectionDefinitions></GetSectionDefinitionsResult>`),
		})
		c := newTestClient(t, srv.URL)

		defs, err := c.GetSectionDefinitions(ctx, templateID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(defs) != 1 || defs[0].Name != "article" || len(defs[0].Fields) != 2 {
			t.Fatalf("unexpected definitions %+v", defs)
		}
		if defs[0].Fields[1].Kind != models.KindMDB {
			t.Errorf("expected mdb field, got %v", defs[0].Fields[1].Kind)
		}
		if !strings.Contains(srv.body("GetSectionDefinitions"), "<Template><Guid>"+templateID.String()+"</Guid></Template>") {
			t.Error("expected template id in request")
		}
	})

	t.Run("CreateSection", func(t *testing.T) {
		sectionID := uuid.New()
		srv := newSOAPServer(t, map[string]string{
			"CreateSection": respond("CreateSection", `<CreateSectionResult><Guid>`+sectionID.String()+`</Guid></CreateSectionResult>`),
		})
		c := newTestClient(t, srv.URL)

		created := time.Date(2016, 6, 16, 9, 49, 24, 0, time.UTC)
		id, err := c.CreateSection(ctx, campaignID, models.Section{
			DefinitionName: "article",
			StatisticName:  "my first article",
			Created:        created,
			Fields:         []models.Field{models.BooleanField("a_show", true)},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != sectionID {
			t.Errorf("expected %s, got %s", sectionID, id)
		}

		body := srv.body("CreateSection")
		for _, want := range []string{
			"<Campaign><Guid>" + campaignID.String() + "</Guid></Campaign>",
			"<Created>2016-06-16T09:49:24</Created>",
			"<SectionDefinitionName>article</SectionDefinitionName>",
			"<StatisticName>my first article</StatisticName>",
		} {
			if !strings.Contains(body, want) {
				t.Errorf("expected request to contain %s", want)
			}
		}
	})

	t.Run("Media Database", func(t *testing.T) {
		fileID := uuid.New()
		srv := newSOAPServer(t, map[string]string{
			"GetMDBFiles": respond("GetMDBFiles", `<GetMDBFilesResult><Files>`+
				`<File><Id>`+fileID.String()+`</Id><Name>criteria.png</Name><Path>mailworx</Path></File>`+
				`</Files></GetMDBFilesResult>`),
			"UploadFileToMDB": respond("UploadFileToMDB", `<UploadFileToMDBResult><FileId>`+fileID.String()+`</FileId></UploadFileToMDBResult>`),
		})
		c := newTestClient(t, srv.URL)

		files, err := c.GetMDBFiles(ctx, "mailworx")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(files) != 1 || files[0].ID != fileID || files[0].Name != "criteria.png" {
			t.Errorf("unexpected files %+v", files)
		}

		data := []byte("\x89PNG fake image")
		id, err := c.UploadFileToMDB(ctx, "mailworx", "criteria.png", data)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != fileID {
			t.Errorf("expected %s, got %s", fileID, id)
		}

		body := srv.body("UploadFileToMDB")
		if !strings.Contains(body, "<File>"+base64.StdEncoding.EncodeToString(data)+"</File>") {
			t.Errorf("expected base64 file content, got %s", body)
		}
		if !strings.Contains(body, "<Name>criteria.png</Name><Path>mailworx</Path>") {
			t.Errorf("expected name and path, got %s", body)
		}
	})

	t.Run("SendCampaign", func(t *testing.T) {
		srv := newSOAPServer(t, map[string]string{
			"SendCampaign": respond("SendCampaign", `<SendCampaignResult><RecipientsEffective>4</RecipientsEffective></SendCampaignResult>`),
		})
		c := newTestClient(t, srv.URL)

		sendTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		result, err := c.SendCampaign(ctx, SendRequest{
			CampaignID: campaignID,
			Type:       models.SendTypeManual,
			SendTime:   sendTime,
			UseRTR:     true,
			Language:   "EN",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.RecipientsEffective != 4 {
			t.Errorf("expected 4 recipients, got %d", result.RecipientsEffective)
		}

		body := srv.body("SendCampaign")
		for _, want := range []string{
			"<CampaignId>" + campaignID.String() + "</CampaignId>",
			"<IgnoreCulture>false</IgnoreCulture>",
			"<SendType>Manual</SendType>",
			`<Settings xsi:type="ManualSendSettings"><SendTime>2024-03-01T12:00:00</SendTime></Settings>`,
			"<UseIRated>false</UseIRated>",
			"<UseRTR>true</UseRTR>",
		} {
			if !strings.Contains(body, want) {
				t.Errorf("expected request to contain %s, got %s", want, body)
			}
		}
	})

	t.Run("GetSubscriberFields", func(t *testing.T) {
		srv := newSOAPServer(t, map[string]string{
			"GetSubscriberFields": respond("GetSubscriberFields", `<GetSubscriberFieldsResult><Fields>`+
				`<Field xsi:type="TextField"><InternalName>email</InternalName></Field>`+
				`</Fields></GetSubscriberFieldsResult>`),
		})
		c := newTestClient(t, srv.URL)

		fields, err := c.GetSubscriberFields(ctx, AllFields)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(fields) != 1 || fields[0].InternalName != "email" {
			t.Errorf("unexpected fields %+v", fields)
		}
		if !strings.Contains(srv.body("GetSubscriberFields"), "<FieldType>MetaInformation CustomInformation</FieldType>") {
			t.Error("expected field type flags in request")
		}
	})

	t.Run("Canceled Context", func(t *testing.T) {
		srv := newSOAPServer(t, map[string]string{})
		c := newTestClient(t, srv.URL)

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := c.GetProfiles(canceled, models.ProfileTypeStatic); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
