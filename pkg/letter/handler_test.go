package letter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/letterbox/letterbox/internal/event_bus"
	"github.com/letterbox/letterbox/internal/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T) (*mux.Router, *RepositoryStub) {
	repo := NewRepositoryStub()
	handler := NewHandler(NewService(repo, event_bus.NewEventBus()))
	r := mux.NewRouter()
	r.HandleFunc("/api/letters/{type}", handler.CreateLetter).Methods("POST")
	r.HandleFunc("/api/letters/{type}", handler.ListLetters).Methods("GET")
	r.HandleFunc("/api/letters/{type}/export.csv", handler.ExportLetters).Methods("GET")
	r.HandleFunc("/api/letters/{type}/{id}", handler.GetLetter).Methods("GET")
	r.HandleFunc("/api/letters/{type}/{id}", handler.DeleteLetter).Methods("DELETE")
	r.HandleFunc("/api/letters/{type}/{id}/handled", handler.SetHandled).Methods("PATCH")
	return r, repo
}

func doRequest(r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateAndGetLetter(t *testing.T) {
	r, _ := setupHandlerTest(t)

	w := doRequest(r, http.MethodPost, "/api/letters/outgoing", LetterDTO{
		LetterNumber:  "010/OUT/2023",
		Subject:       "Invitation to the opening",
		IsInvitation:  true,
		EventDate:     &eventDate,
		EventLocation: "Main office",
		Note:          "bring ID",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created LetterDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, Outgoing, created.Type)
	assert.Equal(t, "bring ID", created.Note)

	w = doRequest(r, http.MethodGet, "/api/letters/outgoing/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched LetterDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&fetched))
	assert.Equal(t, "Invitation to the opening", fetched.Subject)
	assert.True(t, fetched.EventDate.Equal(eventDate))
}

func TestHandler_CreateLetter_Validation(t *testing.T) {
	r, _ := setupHandlerTest(t)

	w := doRequest(r, http.MethodPost, "/api/letters/incoming", LetterDTO{Subject: "no number"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp rest.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Invalid letter", resp.Error)
}

func TestHandler_UnknownTypeAndId(t *testing.T) {
	r, _ := setupHandlerTest(t)

	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodGet, "/api/letters/memo", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodGet, "/api/letters/incoming/abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodGet, "/api/letters/incoming/99", nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodDelete, "/api/letters/incoming/99", nil).Code)
}

func TestHandler_SetHandledAndDelete(t *testing.T) {
	r, repo := setupHandlerTest(t)
	l, err := repo.Store(context.Background(), Letter{Type: Incoming, LetterNumber: "1", Subject: "x", IsInvitation: true, EventDate: &eventDate})
	require.NoError(t, err)

	w := doRequest(r, http.MethodPatch, "/api/letters/incoming/1/handled", HandledDTO{Handled: true})
	require.Equal(t, http.StatusNoContent, w.Code)
	stored, _ := repo.Get(context.Background(), Incoming, l.Id)
	assert.True(t, stored.EventHandled)

	w = doRequest(r, http.MethodDelete, "/api/letters/incoming/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	_, err = repo.Get(context.Background(), Incoming, l.Id)
	assert.ErrorIs(t, err, ErrLetterNotFound)
}

func TestHandler_ListLetters_HidesStorageErrors(t *testing.T) {
	r, repo := setupHandlerTest(t)
	repo.FailWith(errors.New("pq: relation does not exist"))

	w := doRequest(r, http.MethodGet, "/api/letters/incoming", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestHandler_ExportLetters(t *testing.T) {
	r, repo := setupHandlerTest(t)
	for i := 0; i < MaxPageSize+5; i++ {
		_, err := repo.Store(context.Background(), Letter{Type: Incoming, LetterNumber: strconv.Itoa(i), Subject: "s"})
		require.NoError(t, err)
	}
	_, err := repo.Store(context.Background(), Letter{Type: Outgoing, LetterNumber: "x", Subject: "s"})
	require.NoError(t, err)

	w := doRequest(r, http.MethodGet, "/api/letters/incoming/export.csv", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "incoming-letters.csv")
	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, MaxPageSize+5+1)
}

func TestHandler_ExportLetters_NewestFirst(t *testing.T) {
	r, repo := setupHandlerTest(t)
	for day := 1; day <= 3; day++ {
		_, err := repo.Store(context.Background(), Letter{
			Type:         Outgoing,
			LetterNumber: strconv.Itoa(day),
			Subject:      "day " + strconv.Itoa(day),
			CreatedAt:    time.Date(2023, time.December, day, 9, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	w := doRequest(r, http.MethodGet, "/api/letters/outgoing/export.csv", nil)

	require.Equal(t, http.StatusOK, w.Code)
	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Contains(t, rows[1], "day 3")
	assert.Contains(t, rows[3], "day 1")
}

func TestHandler_ExportLetters_HidesStorageErrors(t *testing.T) {
	r, repo := setupHandlerTest(t)
	repo.FailWith(errors.New("connection reset"))

	w := doRequest(r, http.MethodGet, "/api/letters/incoming/export.csv", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}
