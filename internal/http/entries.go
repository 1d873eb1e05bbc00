package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/media-catalog/internal/catalog"
	"github.com/Clark-Hu/media-catalog/internal/domain"
)

// entryRequest is shared by create and update. Pointer fields distinguish
// "absent" from "empty" for partial updates.
type entryRequest struct {
	Title         *string `json:"title"`
	Type          *string `json:"type"`
	Director      *string `json:"director"`
	Budget        *string `json:"budget"`
	Location      *string `json:"location"`
	Duration      *string `json:"duration"`
	YearTime      *string `json:"yearTime"`
	YearTimeSnake *string `json:"year_time"`
	Description   *string `json:"description"`
	PosterURL     *string `json:"posterUrl"`
	ThumbURL      *string `json:"thumbUrl"`
}

func (req entryRequest) yearTime() *string {
	if req.YearTime != nil {
		return req.YearTime
	}
	return req.YearTimeSnake
}

type moderateRequest struct {
	Status string `json:"status"`
}

type entryResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	Director    *string   `json:"director"`
	Budget      *string   `json:"budget"`
	Location    *string   `json:"location"`
	Duration    *string   `json:"duration"`
	YearTime    *string   `json:"yearTime"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	PosterURL   *string   `json:"posterUrl"`
	ThumbURL    *string   `json:"thumbUrl"`
	CreatedByID int64     `json:"createdById"`
	Status      string    `json:"status"`
	Approved    bool      `json:"approved"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type entryListResponse struct {
	Items      []entryResponse `json:"items"`
	NextCursor *string         `json:"nextCursor"`
}

type deleteResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// queryParam returns the first non-empty value among the given spellings.
func queryParam(query url.Values, names ...string) string {
	for _, name := range names {
		if v := query.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := catalog.ListParams{
		Q:        query.Get("q"),
		Director: query.Get("director"),
		Type:     query.Get("type"),
		YearFrom: queryParam(query, "yearFrom", "year_from"),
		YearTo:   queryParam(query, "yearTo", "year_to"),
		Sort:     query.Get("sort"),
		Limit:    query.Get("limit"),
		Cursor:   query.Get("cursor"),
		Mine:     query.Get("mine"),
	}

	page, err := s.catalog.List(r.Context(), identityFrom(r.Context()), params)
	if err != nil {
		s.respondServiceError(w, r, "list entries", err)
		return
	}

	resp := entryListResponse{Items: make([]entryResponse, 0, len(page.Items))}
	for _, e := range page.Items {
		resp.Items = append(resp.Items, toEntryResponse(e))
	}
	if page.NextCursor != nil {
		cursor := strconv.FormatInt(*page.NextCursor, 10)
		resp.NextCursor = &cursor
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	in := catalog.EntryInput{
		Director:    req.Director,
		Budget:      req.Budget,
		Location:    req.Location,
		Duration:    req.Duration,
		YearTime:    req.yearTime(),
		Description: req.Description,
		PosterURL:   req.PosterURL,
		ThumbURL:    req.ThumbURL,
	}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Type != nil {
		in.Type = *req.Type
	}

	entry, err := s.catalog.Create(r.Context(), identityFrom(r.Context()), in)
	if err != nil {
		s.respondServiceError(w, r, "create entry", err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/entries/%d", entry.ID))
	s.respondJSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}

	entry, err := s.catalog.Get(r.Context(), identityFrom(r.Context()), id)
	if err != nil {
		s.respondServiceError(w, r, "get entry", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}

	var req entryRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	entry, err := s.catalog.Update(r.Context(), identityFrom(r.Context()), id, catalog.EntryPatch{
		Title:       req.Title,
		Type:        req.Type,
		Director:    req.Director,
		Budget:      req.Budget,
		Location:    req.Location,
		Duration:    req.Duration,
		YearTime:    req.yearTime(),
		Description: req.Description,
		PosterURL:   req.PosterURL,
		ThumbURL:    req.ThumbURL,
	})
	if err != nil {
		s.respondServiceError(w, r, "update entry", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}

	entry, err := s.catalog.Delete(r.Context(), identityFrom(r.Context()), id)
	if err != nil {
		s.respondServiceError(w, r, "delete entry", err)
		return
	}
	s.respondJSON(w, http.StatusOK, deleteResponse{Message: "Deleted", ID: entry.ID})
}

func (s *Server) handleModerateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entryID(w, r)
	if !ok {
		return
	}

	var req moderateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	entry, err := s.catalog.Moderate(r.Context(), id, req.Status)
	if err != nil {
		s.respondServiceError(w, r, "moderate entry", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (s *Server) entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid entry id")
		return 0, false
	}
	return id, true
}

func toEntryResponse(e domain.Entry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		Title:       e.Title,
		Type:        string(e.Type),
		Director:    e.Director,
		Budget:      e.Budget,
		Location:    e.Location,
		Duration:    e.Duration,
		YearTime:    e.YearTime,
		Year:        e.Year,
		Description: e.Description,
		PosterURL:   e.PosterURL,
		ThumbURL:    e.ThumbURL,
		CreatedByID: e.CreatedByID,
		Status:      string(e.Status),
		Approved:    e.Approved(),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
