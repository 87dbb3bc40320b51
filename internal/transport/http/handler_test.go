package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quiz-registration-service/internal/app"
	"quiz-registration-service/internal/domain"
	"quiz-registration-service/internal/infra/memory"
	"quiz-registration-service/internal/validate"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.SubmissionFeed) {
	t.Helper()
	loader := memory.NewStaticQuestionnaireLoader(map[string]domain.Questionnaire{
		"default": {
			ID: "default",
			Questions: []domain.Question{
				{ID: 1, Text: "How often do you see refractory cases?", Type: "mcq", Options: []string{"Rarely", "Often"}},
				{ID: 2, Text: "Main treatment challenges?", Type: "text"},
			},
		},
	})
	feed := app.NewSubmissionFeed()
	service := app.NewRegistrationService(
		memory.NewParticipantStore(),
		memory.NewSubmissionStore(),
		memory.NewQuestionnaireRepository(loader, time.Minute),
		validate.New(),
		feed,
		nil,
		"default",
	)

	mux := http.NewServeMux()
	NewHandler(service, nil).Register(mux)
	mux.HandleFunc("/ws/submissions", NewFeedHandler(feed, nil).ServeWS)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, feed
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func registrationPayload() map[string]any {
	return map[string]any{
		"name":          "Dr. A",
		"qualification": "MBBS",
		"email":         "A@gmail.com",
		"phone":         "9876543210",
		"state":         "MH",
		"city":          "Pune",
		"pincode":       "411001",
	}
}

func TestRegistrationScenario(t *testing.T) {
	server, _ := newTestServer(t)

	// Register Dr. A; returned email is lowercased.
	resp := postJSON(t, server.URL+"/participants", registrationPayload())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var created domain.Participant
	decodeBody(t, resp, &created)
	if created.Email != "a@gmail.com" {
		t.Fatalf("expected lowercased email, got %q", created.Email)
	}
	if created.ID == "" {
		t.Fatal("expected generated identifier")
	}

	// Submit the quiz.
	resp = postJSON(t, server.URL+"/submissions", map[string]any{
		"participantId": created.ID.String(),
		"answers":       map[string]string{"1": "Rarely", "2": "Compliance"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 submission, got %d", resp.StatusCode)
	}
	var submission domain.Submission
	decodeBody(t, resp, &submission)
	if submission.ID == "" || submission.SubmittedAt.IsZero() {
		t.Fatalf("expected stored submission, got %+v", submission)
	}

	// Registering again under the same email, any letter case, is rejected.
	dup := registrationPayload()
	dup["email"] = "a@GMAIL.com"
	dup["phone"] = "9000000000"
	resp = postJSON(t, server.URL+"/participants", dup)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 duplicate, got %d", resp.StatusCode)
	}
	var errBody map[string]string
	decodeBody(t, resp, &errBody)
	if !strings.Contains(errBody["error"], "already been used") || !strings.Contains(errBody["error"], "email") {
		t.Fatalf("expected email duplicate message, got %q", errBody["error"])
	}

	// Same phone under a fresh email is rejected with the phone message.
	dup = registrationPayload()
	dup["email"] = "someone.else@gmail.com"
	resp = postJSON(t, server.URL+"/participants", dup)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 duplicate phone, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &errBody)
	if !strings.Contains(errBody["error"], "phone") {
		t.Fatalf("expected phone duplicate message, got %q", errBody["error"])
	}

	// The admin listing joins the submission to its participant.
	resp, err := http.Get(server.URL + "/submissions")
	if err != nil {
		t.Fatalf("get submissions: %v", err)
	}
	var listed []domain.SubmissionWithParticipant
	decodeBody(t, resp, &listed)
	if len(listed) != 1 {
		t.Fatalf("expected one aggregated row, got %d", len(listed))
	}
	if listed[0].Participant.ID != created.ID {
		t.Fatalf("expected joined participant, got %+v", listed[0].Participant)
	}
}

func TestRegistrationValidationFailure(t *testing.T) {
	server, _ := newTestServer(t)

	payload := registrationPayload()
	payload["phone"] = "123"
	payload["pincode"] = "99"
	resp := postJSON(t, server.URL+"/participants", payload)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var errBody map[string]string
	decodeBody(t, resp, &errBody)
	if !strings.Contains(errBody["error"], "10 digit mobile number") ||
		!strings.Contains(errBody["error"], "6 digit pincode") {
		t.Fatalf("expected both violations joined, got %q", errBody["error"])
	}
}

func TestGetParticipantStatusCodes(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/participants")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without id, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/participants?id=" + domain.NewParticipantID().String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", resp.StatusCode)
	}

	// Malformed identifiers are not-found, not errors.
	resp, err = http.Get(server.URL + "/participants?id=not-a-uuid")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed id, got %d", resp.StatusCode)
	}
}

func TestListSubmissionsEmptyIsJSONArray(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/submissions")
	if err != nil {
		t.Fatalf("get submissions: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("expected empty array body, got %q", string(body))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t)

	for _, path := range []string{"/participants", "/submissions", "/questions", "/submissions/export"} {
		req, _ := http.NewRequest(http.MethodDelete, server.URL+path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("delete %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405 for %s, got %d", path, resp.StatusCode)
		}
	}
}

func TestQuestionsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/questions")
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var questionnaire domain.Questionnaire
	decodeBody(t, resp, &questionnaire)
	if len(questionnaire.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questionnaire.Questions))
	}
	if questionnaire.Questions[0].Type != "mcq" || len(questionnaire.Questions[0].Options) == 0 {
		t.Fatalf("unexpected first question: %+v", questionnaire.Questions[0])
	}
}

func TestCSVExport(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/participants", registrationPayload())
	var created domain.Participant
	decodeBody(t, resp, &created)
	resp = postJSON(t, server.URL+"/submissions", map[string]any{
		"participantId": created.ID.String(),
		"answers":       map[string]string{"1": "Rarely", "2": "Dosing, compliance"},
	})
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/submissions/export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Name,Qualification,Email") || !strings.Contains(lines[0], "Q1") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "a@gmail.com") || !strings.Contains(lines[1], `"Dosing, compliance"`) {
		t.Fatalf("unexpected row: %q", lines[1])
	}
}
