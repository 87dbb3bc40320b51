package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"quiz-registration-service/internal/app"
	"quiz-registration-service/internal/domain"
)

// Handler exposes the registration, submission and admin-listing endpoints.
type Handler struct {
	service *app.RegistrationService
	logger  *zap.Logger
}

func NewHandler(service *app.RegistrationService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the REST endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/participants", h.handleParticipants)
	mux.HandleFunc("/submissions", h.handleSubmissions)
	mux.HandleFunc("/submissions/export", h.handleExport)
	mux.HandleFunc("/questions", h.handleQuestions)
}

func (h *Handler) handleParticipants(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createParticipant(w, r)
	case http.MethodGet:
		h.getParticipant(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *Handler) createParticipant(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	participant, err := h.service.Register(r.Context(), reg)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create participant")
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

func (h *Handler) getParticipant(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "ID required")
		return
	}
	participant, err := h.service.GetParticipant(r.Context(), id)
	if errors.Is(err, domain.ErrParticipantNotFound) {
		writeError(w, http.StatusNotFound, "Participant not found")
		return
	}
	if err != nil {
		h.writeServiceError(w, err, "Failed to fetch participant")
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

func (h *Handler) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createSubmission(w, r)
	case http.MethodGet:
		h.listSubmissions(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *Handler) createSubmission(w http.ResponseWriter, r *http.Request) {
	var draft domain.SubmissionDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	submission, err := h.service.SubmitAnswers(r.Context(), draft)
	if err != nil {
		h.writeServiceError(w, err, "Failed to submit answers")
		return
	}
	writeJSON(w, http.StatusOK, submission)
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.ListSubmissions(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to fetch submissions")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	questionnaire, err := h.service.Questionnaire(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to fetch questions")
		return
	}
	writeJSON(w, http.StatusOK, questionnaire)
}

// handleExport streams the admin listing as CSV: fixed participant columns
// followed by one column per questionnaire question.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	results, err := h.service.ListSubmissions(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to export submissions")
		return
	}
	questionIDs := h.questionColumns(r, results)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		`attachment; filename="quiz_submissions_`+time.Now().Format("2006-01-02")+`.csv"`)

	cw := csv.NewWriter(w)
	header := []string{"Name", "Qualification", "Email", "Phone", "College", "State", "City", "Pincode", "Submitted At"}
	for _, id := range questionIDs {
		header = append(header, "Q"+id)
	}
	_ = cw.Write(header)
	for _, res := range results {
		row := []string{
			res.Participant.Name,
			res.Participant.Qualification,
			res.Participant.Email,
			res.Participant.Phone,
			res.Participant.CollegeName,
			res.Participant.State,
			res.Participant.City,
			res.Participant.Pincode,
			res.SubmittedAt.Format(time.RFC3339),
		}
		for _, id := range questionIDs {
			row = append(row, res.Answers[id])
		}
		_ = cw.Write(row)
	}
	cw.Flush()
}

// questionColumns prefers the questionnaire's question order; when the
// questionnaire cannot be loaded it falls back to the sorted union of answer
// keys so the export still works.
func (h *Handler) questionColumns(r *http.Request, results []domain.SubmissionWithParticipant) []string {
	questionnaire, err := h.service.Questionnaire(r.Context())
	if err == nil {
		ids := make([]string, 0, len(questionnaire.Questions))
		for _, q := range questionnaire.Questions {
			ids = append(ids, strconv.Itoa(q.ID))
		}
		return ids
	}
	h.logger.Warn("questionnaire unavailable for export, using answer keys", zap.Error(err))
	seen := make(map[string]struct{})
	var ids []string
	for _, res := range results {
		for key := range res.Answers {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				ids = append(ids, key)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// writeServiceError maps expected errors to 400 and everything else to a
// generic 500; infrastructure detail is logged server-side only.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, generic string) {
	var verr *domain.ValidationError
	var dup *domain.DuplicateSubmissionError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &dup):
		writeError(w, http.StatusBadRequest, dup.Error())
	default:
		h.logger.Error(generic, zap.Error(err))
		writeError(w, http.StatusInternalServerError, generic)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
