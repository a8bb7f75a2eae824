package calendar

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/letterbox/letterbox/internal/rest"
	"github.com/letterbox/letterbox/internal/utils"
	log "github.com/sirupsen/logrus"
)

const dateOnly = "2006-01-02"

var errInvalidRange = errors.New("'start' must not be after 'end'")

type EventDTO struct {
	Id           int       `json:"id"`
	Title        string    `json:"title"`
	Date         time.Time `json:"date"`
	Location     string    `json:"location"`
	Type         EventType `json:"type"`
	LetterNumber string    `json:"letterNumber"`
	Description  string    `json:"description"`
}

type EventsResponse struct {
	Events []EventDTO `json:"events"`
}

type Handler struct {
	calendar *Service
	clock    utils.Clock
	maxLimit int
}

func NewHandler(s *Service, clock utils.Clock, maxLimit int) *Handler {
	return &Handler{calendar: s, clock: clock, maxLimit: maxLimit}
}

func eventToDTO(e Event) EventDTO {
	return EventDTO{
		Id:           e.Id,
		Title:        e.Title,
		Date:         e.Date,
		Location:     e.Location,
		Type:         e.Type,
		LetterNumber: e.LetterNumber,
		Description:  e.Description,
	}
}

func toResponse(events []Event) EventsResponse {
	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e))
	}
	return EventsResponse{Events: dtos}
}

// parseBound accepts RFC3339 or a plain date. A plain end date covers the whole day.
// An unescaped "+" in an offset arrives as a space and is restored.
func parseBound(value string, isEnd bool) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	value = strings.ReplaceAll(value, " ", "+")
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, value)
	if err != nil {
		return time.Time{}, err
	}
	if isEnd {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

func parseRange(r *http.Request) (Range, string, error) {
	start, err := parseBound(r.URL.Query().Get("start"), false)
	if err != nil {
		return Range{}, "Invalid start (date) format", err
	}
	end, err := parseBound(r.URL.Query().Get("end"), true)
	if err != nil {
		return Range{}, "Invalid end (date) format", err
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return Range{}, "Invalid date range", errInvalidRange
	}
	return Range{Start: start, End: end}, "", nil
}

// GetEvents godoc
// @Summary List calendar events derived from invitation letters
// @Tags Calendar
// @Produce json
// @Param start query string false "RFC3339 or YYYY-MM-DD, inclusive"
// @Param end query string false "RFC3339 or YYYY-MM-DD, inclusive"
// @Success 200 {object} EventsResponse
// @Failure 400 {object} rest.ErrorResponse
// @Failure 500 {object} rest.ErrorResponse
// @Router /api/calendar/events [get]
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	rng, message, err := parseRange(r)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, message, "'start' and 'end' must be RFC3339 or YYYY-MM-DD, start before end")
		return
	}

	events, err := h.calendar.GetEvents(r.Context(), rng)
	if err != nil {
		log.Errorf("failed to get calendar events: %v", err)
		rest.WriteInternalError(w)
		return
	}
	log.Tracef("Calendar events returned: %d", len(events))
	rest.WriteJSON(w, http.StatusOK, toResponse(events))
}

// GetUpcoming godoc
// @Summary List the nearest upcoming events
// @Tags Calendar
// @Produce json
// @Param limit query int false "maximum number of events"
// @Success 200 {object} EventsResponse
// @Failure 500 {object} rest.ErrorResponse
// @Router /api/calendar/upcoming [get]
func (h *Handler) GetUpcoming(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		limit = 0
	}
	if h.maxLimit > 0 && limit > h.maxLimit {
		limit = h.maxLimit
	}

	events, err := h.calendar.GetUpcoming(r.Context(), limit)
	if err != nil {
		log.Errorf("failed to get upcoming events: %v", err)
		rest.WriteInternalError(w)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toResponse(events))
}

// GetEventsICS godoc
// @Summary Calendar events as an iCalendar feed
// @Tags Calendar
// @Produce text/calendar
// @Param start query string false "RFC3339 or YYYY-MM-DD, inclusive"
// @Param end query string false "RFC3339 or YYYY-MM-DD, inclusive"
// @Success 200 {string} string
// @Router /api/calendar/events.ics [get]
func (h *Handler) GetEventsICS(w http.ResponseWriter, r *http.Request) {
	rng, message, err := parseRange(r)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, message, "'start' and 'end' must be RFC3339 or YYYY-MM-DD, start before end")
		return
	}

	events, err := h.calendar.GetEvents(r.Context(), rng)
	if err != nil {
		log.Errorf("failed to get calendar events for ics feed: %v", err)
		rest.WriteInternalError(w)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="letters.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(BuildICS(events, h.clock.Now()))); err != nil {
		log.Errorf("failed to write ics feed: %v", err)
	}
}
