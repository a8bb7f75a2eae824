package letter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/letterbox/letterbox/internal/rest"
	log "github.com/sirupsen/logrus"
)

type LetterDTO struct {
	Id            int        `json:"id"`
	Type          Type       `json:"type"`
	LetterNumber  string     `json:"letterNumber"`
	Subject       string     `json:"subject"`
	Correspondent string     `json:"correspondent"`
	LetterDate    *time.Time `json:"letterDate,omitempty"`
	Note          string     `json:"note,omitempty"`
	IsInvitation  bool       `json:"isInvitation"`
	EventDate     *time.Time `json:"eventDate,omitempty"`
	EventTime     string     `json:"eventTime,omitempty"`
	EventLocation string     `json:"eventLocation,omitempty"`
	EventHandled  bool       `json:"eventHandled"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type HandledDTO struct {
	Handled bool `json:"handled"`
}

type Handler struct {
	service  Service
	renderer *CsvRenderer
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service, renderer: NewCsvRenderer()}
}

func letterToDTO(l Letter) LetterDTO {
	return LetterDTO{
		Id:            l.Id,
		Type:          l.Type,
		LetterNumber:  l.LetterNumber,
		Subject:       l.Subject,
		Correspondent: l.Correspondent,
		LetterDate:    l.LetterDate,
		Note:          l.Note,
		IsInvitation:  l.IsInvitation,
		EventDate:     l.EventDate,
		EventTime:     l.EventTime,
		EventLocation: l.EventLocation,
		EventHandled:  l.EventHandled,
		CreatedAt:     l.CreatedAt,
	}
}

func dtoToLetter(letterType Type, dto LetterDTO) Letter {
	return Letter{
		Type:          letterType,
		LetterNumber:  dto.LetterNumber,
		Subject:       dto.Subject,
		Correspondent: dto.Correspondent,
		LetterDate:    dto.LetterDate,
		Note:          dto.Note,
		IsInvitation:  dto.IsInvitation,
		EventDate:     dto.EventDate,
		EventTime:     dto.EventTime,
		EventLocation: dto.EventLocation,
	}
}

func pathParams(w http.ResponseWriter, r *http.Request, withId bool) (Type, int, bool) {
	vars := mux.Vars(r)
	letterType, err := ParseType(vars["type"])
	if err != nil {
		rest.WriteError(w, http.StatusNotFound, "Unknown letter type", err.Error())
		return "", 0, false
	}
	if !withId {
		return letterType, 0, true
	}
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid letter id", "'id' must be an integer")
		return "", 0, false
	}
	return letterType, id, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrLetterNotFound):
		rest.WriteError(w, http.StatusNotFound, "Letter not found", "")
	case errors.Is(err, ErrInvalidLetter):
		rest.WriteError(w, http.StatusBadRequest, "Invalid letter", err.Error())
	default:
		log.Errorf("letter request failed: %v", err)
		rest.WriteInternalError(w)
	}
}

// CreateLetter godoc
// @Summary Register a letter
// @Tags Letter
// @Accept json
// @Produce json
// @Param type path string true "incoming or outgoing"
// @Param letter body LetterDTO true "Letter"
// @Success 201 {object} LetterDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/letters/{type} [post]
func (h *Handler) CreateLetter(w http.ResponseWriter, r *http.Request) {
	letterType, _, ok := pathParams(w, r, false)
	if !ok {
		return
	}
	var dto LetterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), dtoToLetter(letterType, dto))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, letterToDTO(created))
}

// ListLetters godoc
// @Summary List letters of one register, newest first
// @Tags Letter
// @Produce json
// @Param type path string true "incoming or outgoing"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {array} LetterDTO
// @Router /api/letters/{type} [get]
func (h *Handler) ListLetters(w http.ResponseWriter, r *http.Request) {
	letterType, _, ok := pathParams(w, r, false)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	letters, err := h.service.List(r.Context(), letterType, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]LetterDTO, 0, len(letters))
	for _, l := range letters {
		dtos = append(dtos, letterToDTO(l))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// GetLetter godoc
// @Summary Get a single letter
// @Tags Letter
// @Produce json
// @Param type path string true "incoming or outgoing"
// @Param id path int true "letter id"
// @Success 200 {object} LetterDTO
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/letters/{type}/{id} [get]
func (h *Handler) GetLetter(w http.ResponseWriter, r *http.Request) {
	letterType, id, ok := pathParams(w, r, true)
	if !ok {
		return
	}
	l, err := h.service.Get(r.Context(), letterType, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, letterToDTO(l))
}

// DeleteLetter godoc
// @Summary Delete a letter
// @Tags Letter
// @Param type path string true "incoming or outgoing"
// @Param id path int true "letter id"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/letters/{type}/{id} [delete]
func (h *Handler) DeleteLetter(w http.ResponseWriter, r *http.Request) {
	letterType, id, ok := pathParams(w, r, true)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), letterType, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetHandled godoc
// @Summary Mark an invitation as handled (or not)
// @Tags Letter
// @Accept json
// @Param type path string true "incoming or outgoing"
// @Param id path int true "letter id"
// @Param body body HandledDTO true "handled flag"
// @Success 204
// @Router /api/letters/{type}/{id}/handled [patch]
func (h *Handler) SetHandled(w http.ResponseWriter, r *http.Request) {
	letterType, id, ok := pathParams(w, r, true)
	if !ok {
		return
	}
	var dto HandledDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	if err := h.service.SetHandled(r.Context(), letterType, id, dto.Handled); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportLetters godoc
// @Summary Export a whole register as CSV, newest first
// @Tags Letter
// @Produce text/csv
// @Param type path string true "incoming or outgoing"
// @Success 200 {string} string
// @Router /api/letters/{type}/export.csv [get]
func (h *Handler) ExportLetters(w http.ResponseWriter, r *http.Request) {
	letterType, _, ok := pathParams(w, r, false)
	if !ok {
		return
	}

	all, err := h.service.ListAll(r.Context(), letterType)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	csvData, err := h.renderer.Render(all)
	if err != nil {
		rest.WriteInternalError(w)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-letters.csv"`, letterType))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(csvData)); err != nil {
		log.Errorf("failed to write csv export: %v", err)
	}
}
