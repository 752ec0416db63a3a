package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/inima-app/inima/internal/chat"
	"github.com/inima-app/inima/internal/composer"
	"github.com/inima-app/inima/internal/conversation"
	"github.com/inima-app/inima/internal/llm"
	"github.com/inima-app/inima/internal/profile"
	"github.com/inima-app/inima/internal/storage"
)

const testToken = "test-token"

type fakeMailer struct {
	err      error
	subjects []string
	bodies   []string
}

func (m *fakeMailer) Send(ctx context.Context, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.subjects = append(m.subjects, subject)
	m.bodies = append(m.bodies, body)
	return nil
}

type fakeModel struct{ reply string }

func (m *fakeModel) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return m.reply, nil
}

func newTestServer(t *testing.T, mailer *fakeMailer) (*httptest.Server, AppDeps) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	convs := conversation.NewService(store)
	profiles := profile.NewManager(store)
	compiler := composer.New(profiles)
	chatSvc := chat.NewService(convs, compiler, &fakeModel{reply: "Bună!"}, profiles, store)
	chatSvc.SetAsync(func(fn func()) { fn() })

	deps := AppDeps{
		Conversations: convs,
		Chat:          chatSvc,
		Profiles:      profiles,
		Compiler:      compiler,
		Mailer:        mailer,
		Token:         testToken,
	}
	srv := httptest.NewServer(NewAppHandler(deps))
	t.Cleanup(srv.Close)
	return srv, deps
}

func doRequest(t *testing.T, method, url string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatalf("reading response: %v", err)
	}
	return resp, out.Bytes()
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t, &fakeMailer{})

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/health", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"ok"`) {
		t.Errorf("body = %s", body)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t, &fakeMailer{})

	for _, tt := range []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"wrong token", "wrong"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, http.MethodGet, srv.URL+"/conversations?owner=o1", nil, tt.token)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", resp.StatusCode)
			}
			var envelope struct {
				Error struct {
					Type string `json:"type"`
				} `json:"error"`
			}
			if err := json.Unmarshal(body, &envelope); err != nil {
				t.Fatalf("unmarshalling error envelope: %v", err)
			}
			if envelope.Error.Type == "" {
				t.Errorf("error envelope missing type: %s", body)
			}
		})
	}
}

func TestConversationLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, &fakeMailer{})

	// Create.
	resp, body := doRequest(t, http.MethodPost, srv.URL+"/conversations",
		CreateConversationRequest{OwnerID: "o1", Subject: "prima"}, testToken)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	var created storage.Conversation
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshalling conversation: %v", err)
	}
	if created.ID == "" || created.Subject != "prima" {
		t.Fatalf("created = %+v", created)
	}

	// List.
	resp, body = doRequest(t, http.MethodGet, srv.URL+"/conversations?owner=o1", nil, testToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d: %s", resp.StatusCode, body)
	}
	var listed []storage.Conversation
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("unmarshalling list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("listed = %+v", listed)
	}

	// Get with the wrong owner is forbidden.
	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/conversations/"+created.ID+"?owner=o2", nil, testToken)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("wrong-owner get status = %d, want 403", resp.StatusCode)
	}

	// Rename.
	resp, _ = doRequest(t, http.MethodPatch, srv.URL+"/conversations/"+created.ID,
		RenameConversationRequest{OwnerID: "o1", Subject: "nouă"}, testToken)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("rename status = %d", resp.StatusCode)
	}

	// Delete, then 404.
	resp, _ = doRequest(t, http.MethodDelete, srv.URL+"/conversations/"+created.ID+"?owner=o1", nil, testToken)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/conversations/"+created.ID+"?owner=o1", nil, testToken)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestSendMessageEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &fakeMailer{})

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/conversations",
		CreateConversationRequest{OwnerID: "o1", Subject: "chat"}, testToken)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created storage.Conversation
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshalling conversation: %v", err)
	}

	resp, body = doRequest(t, http.MethodPost, srv.URL+"/conversations/"+created.ID+"/messages",
		SendMessageRequest{OwnerID: "o1", Content: "salut"}, testToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send status = %d: %s", resp.StatusCode, body)
	}
	var reply storage.Message
	if err := json.Unmarshal(body, &reply); err != nil {
		t.Fatalf("unmarshalling reply: %v", err)
	}
	if reply.Sender != storage.SenderAI || reply.Content != "Bună!" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestProfileEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &fakeMailer{})

	// No profile yet.
	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/profile?owner=o1", nil, testToken)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get before patch status = %d, want 404", resp.StatusCode)
	}

	// Patch bootstraps and applies the preference.
	resp, body := doRequest(t, http.MethodPatch, srv.URL+"/profile",
		PatchProfileRequest{OwnerID: "o1", Set: map[string]string{profile.KeyUserName: "Maria"}}, testToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d: %s", resp.StatusCode, body)
	}
	var p profile.PersonalityProfile
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("unmarshalling profile: %v", err)
	}
	if p.PersonalPreferences.UserName != "Maria" {
		t.Errorf("UserName = %q, want Maria", p.PersonalPreferences.UserName)
	}

	// Unknown keys are a client error.
	resp, _ = doRequest(t, http.MethodPatch, srv.URL+"/profile",
		PatchProfileRequest{OwnerID: "o1", Set: map[string]string{"bogus": "x"}}, testToken)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bogus key status = %d, want 400", resp.StatusCode)
	}

	resp, body = doRequest(t, http.MethodGet, srv.URL+"/profile?owner=o1", nil, testToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get after patch status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "Maria") {
		t.Errorf("profile body missing name: %s", body)
	}
}

func TestCompileContextEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &fakeMailer{})

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/context?owner=o1", nil, testToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out map[string]string
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if !strings.Contains(out["context"], "Nu spune niciodată") {
		t.Errorf("context block missing memory instruction: %q", out["context"])
	}
}

func TestNotifyOrder(t *testing.T) {
	mailer := &fakeMailer{}
	srv, _ := newTestServer(t, mailer)

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/notify/order",
		OrderRequest{Name: "Ion", Email: "ion@example.com", Phone: "0712345678", Details: "Pachet standard"}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out NotifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if !out.Success {
		t.Error("Success = false")
	}
	if !strings.HasPrefix(out.OrderNumber, "CMD-") {
		t.Errorf("OrderNumber = %q, want CMD- prefix", out.OrderNumber)
	}
	if len(mailer.bodies) != 1 || !strings.Contains(mailer.bodies[0], "Ion") {
		t.Errorf("mail not sent or missing content: %v", mailer.bodies)
	}
}

func TestNotifyOrderValidation(t *testing.T) {
	srv, _ := newTestServer(t, &fakeMailer{})

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/notify/order",
		OrderRequest{Name: "Ion"}, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var out NotifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if out.Success || out.Details == "" {
		t.Errorf("response = %+v, want success=false with details", out)
	}
}

func TestNotifyOrderMailerFailure(t *testing.T) {
	srv, _ := newTestServer(t, &fakeMailer{err: errors.New("smtp down")})

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/notify/order",
		OrderRequest{Name: "Ion", Email: "ion@example.com", Details: "Pachet"}, "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var out NotifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if out.Success || out.Details == "" {
		t.Errorf("response = %+v, want success=false with details", out)
	}
}

func TestNotifyContact(t *testing.T) {
	mailer := &fakeMailer{}
	srv, _ := newTestServer(t, mailer)

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/notify/contact",
		ContactRequest{Name: "Ana", Email: "ana@example.com", Message: "Bună, am o întrebare"}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out NotifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if !out.Success || out.OrderNumber != "" {
		t.Errorf("response = %+v, want bare success", out)
	}
}

func TestMethodNotAllowedEnvelopes(t *testing.T) {
	srv, _ := newTestServer(t, &fakeMailer{})

	// The notification surface answers in its own envelope.
	resp, body := doRequest(t, http.MethodGet, srv.URL+"/notify/order", nil, "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
	var out NotifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if out.Success || out.Details == "" {
		t.Errorf("notify 405 response = %+v", out)
	}

	// Everything else uses the standard error envelope.
	resp, body = doRequest(t, http.MethodDelete, srv.URL+"/health", nil, "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"error"`) {
		t.Errorf("standard 405 body = %s", body)
	}
}
