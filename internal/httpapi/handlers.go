package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/poll"
	"github.com/aatumaykin/pollbot/internal/schedule"
	"github.com/go-chi/chi/v5"
)

type healthResponse struct {
	Status string            `json:"status"`
	Health poll.HealthStatus `json:"health"`
}

// scheduleRequest is the body of a schedule creation. Days accept the same
// input as the chat wizard: an index 0-6 or an English or Russian name.
type scheduleRequest struct {
	Name      string `json:"name"`
	StartDay  string `json:"start_day"`
	StartTime string `json:"start_time"`
	EndDay    string `json:"end_day"`
	EndTime   string `json:"end_time"`
	Timezone  string `json:"timezone,omitempty"`
}

func (req scheduleRequest) toSchedule(chatID int64) (schedule.Schedule, error) {
	sc := schedule.Schedule{ChatID: chatID, Name: req.Name, Timezone: req.Timezone}
	var err error
	if sc.StartDay, err = schedule.ParseWeekday("start_day", req.StartDay); err != nil {
		return sc, err
	}
	if sc.StartTime, err = schedule.ParseTimeOfDay("start_time", req.StartTime); err != nil {
		return sc, err
	}
	if sc.EndDay, err = schedule.ParseWeekday("end_day", req.EndDay); err != nil {
		return sc, err
	}
	if sc.EndTime, err = schedule.ParseTimeOfDay("end_time", req.EndTime); err != nil {
		return sc, err
	}
	return sc, nil
}

type positionResponse struct {
	Position int    `json:"position"`
	Warning  string `json:"warning,omitempty"`
}

type deletedResponse struct {
	Deleted  int    `json:"deleted"`
	Warning  string `json:"warning,omitempty"`
	Schedule any    `json:"schedule,omitempty"`
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	status := h.health.Status()
	if !status.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Health: status})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Health: status})
}

func (h *handler) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.admin.State())
}

func (h *handler) listSchedules(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.admin.ListSchedules(chatID))
}

func (h *handler) addSchedule(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatParam(w, r)
	if !ok {
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sc, err := req.toSchedule(chatID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	position, err := h.admin.AddSchedule(r.Context(), chatID, sc)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, positionResponse{Position: position})
	case errors.Is(err, schedule.ErrPersistence):
		h.logger.WarnCtx(r.Context(), "schedule added over http but not saved",
			logger.Field{Key: "chat_id", Value: chatID},
			logger.Field{Key: "error", Value: err.Error()})
		writeJSON(w, http.StatusCreated, positionResponse{Position: position, Warning: err.Error()})
	default:
		h.fail(w, r, err)
	}
}

func (h *handler) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatParam(w, r)
	if !ok {
		return
	}
	position, ok := positionParam(w, r)
	if !ok {
		return
	}

	removed, err := h.admin.DeleteSchedule(r.Context(), chatID, position)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, deletedResponse{Deleted: 1, Schedule: removed})
	case errors.Is(err, schedule.ErrPersistence):
		writeJSON(w, http.StatusOK, deletedResponse{Deleted: 1, Schedule: removed, Warning: err.Error()})
	default:
		h.fail(w, r, err)
	}
}

func (h *handler) deleteAll(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatParam(w, r)
	if !ok {
		return
	}

	n, err := h.admin.DeleteAll(r.Context(), chatID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, deletedResponse{Deleted: n})
	case errors.Is(err, schedule.ErrPersistence):
		writeJSON(w, http.StatusOK, deletedResponse{Deleted: n, Warning: err.Error()})
	default:
		h.fail(w, r, err)
	}
}

func (h *handler) startPoll(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatParam(w, r)
	if !ok {
		return
	}
	position, ok := positionParam(w, r)
	if !ok {
		return
	}

	_, view, err := h.admin.StartPoll(r.Context(), chatID, position)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *handler) closePoll(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatParam(w, r)
	if !ok {
		return
	}
	position, ok := positionParam(w, r)
	if !ok {
		return
	}

	_, summary, err := h.admin.ClosePoll(r.Context(), chatID, position)
	h.writeSummary(w, r, summary, err)
}

func (h *handler) closePollByID(w http.ResponseWriter, r *http.Request) {
	summary, err := h.admin.ClosePollByID(r.Context(), chi.URLParam(r, "pollID"))
	h.writeSummary(w, r, summary, err)
}

// writeSummary reports a close. A gateway failure still closed the poll, so
// the summary is returned along with the error.
func (h *handler) writeSummary(w http.ResponseWriter, r *http.Request, summary poll.Summary, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, summary)
	case errors.Is(err, poll.ErrCloseDeferred):
		writeJSON(w, http.StatusAccepted, map[string]string{"status": err.Error()})
	case errors.Is(err, poll.ErrTransport):
		h.logger.WarnCtx(r.Context(), "poll closed but summary not delivered",
			logger.Field{Key: "poll_id", Value: summary.ID},
			logger.Field{Key: "error", Value: err.Error()})
		writeJSON(w, http.StatusBadGateway, struct {
			poll.Summary
			Error string `json:"error"`
		}{summary, err.Error()})
	default:
		h.fail(w, r, err)
	}
}

// fail maps domain errors to HTTP status codes.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, schedule.ErrInvalidSchedule):
		status = http.StatusBadRequest
	case errors.Is(err, schedule.ErrOutOfRange), errors.Is(err, poll.ErrPollNotFound):
		status = http.StatusNotFound
	case errors.Is(err, poll.ErrAlreadyOpen):
		status = http.StatusConflict
	case errors.Is(err, poll.ErrTransport):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorCtx(r.Context(), "http request failed", err,
			logger.Field{Key: "path", Value: r.URL.Path})
	}
	writeError(w, status, err.Error())
}

func chatParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return 0, false
	}
	return id, true
}

func positionParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "position must be a positive number")
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
