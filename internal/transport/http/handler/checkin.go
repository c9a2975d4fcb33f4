package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/qr-attendance-api/internal/application/checkin"
	"github.com/qr-attendance-api/internal/domain"
	"github.com/qr-attendance-api/internal/pkg/validate"
	"github.com/qr-attendance-api/internal/transport/http/middleware"
)

// CheckinHandler handles the session lifecycle and attendance endpoints.
type CheckinHandler struct {
	svc checkin.Service
}

func NewCheckinHandler(svc checkin.Service) *CheckinHandler {
	return &CheckinHandler{svc: svc}
}

// CreateSession opens a check-in window for the course. The response is the
// only place the token ever appears; status and report endpoints never echo
// it back.
func (h *CheckinHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	sess, err := h.svc.CreateSession(r.Context(), chi.URLParam(r, "id"), claims.UserID, req.TTLMinutes)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionEnvelope{
		SessionID: sess.SessionID,
		CourseID:  sess.CourseID,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Redeem records the caller's attendance against the scanned token. All four
// redemption outcomes come back 200 with a status field; only identity and
// store failures use error statuses.
func (h *CheckinHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	outcome, err := h.svc.Redeem(r.Context(), req.Token, claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RedeemEnvelope{Status: outcome})
}

// Status reports whether the course currently has a live check-in window.
func (h *CheckinHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CourseReport returns the per-date attendance matrix for the course.
// Optional from/to query parameters bound the date range (YYYY-MM-DD).
func (h *CheckinHandler) CourseReport(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	report, err := h.svc.CourseReport(r.Context(), chi.URLParam(r, "id"), claims.UserID, from, to)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// SessionAttendance lists the attendance records for one session.
func (h *CheckinHandler) SessionAttendance(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	records, err := h.svc.SessionAttendance(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AttendanceEnvelope{Records: records})
}

// HasAttended reports whether the caller already holds a record for the
// session, so a client can tell a lost response from a missed scan.
func (h *CheckinHandler) HasAttended(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	attended, err := h.svc.HasAttended(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"attended": attended})
}

// StudentReport returns the caller's own attendance summary for the course.
func (h *CheckinHandler) StudentReport(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	report, err := h.svc.StudentReport(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
