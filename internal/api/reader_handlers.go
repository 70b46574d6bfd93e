package api

import (
	"github.com/go-json-experiment/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagekeep/pagekeep-server/internal/http/response"
	"github.com/pagekeep/pagekeep-server/internal/service"
)

// GoToPageRequest targets a 0-based page index.
type GoToPageRequest struct {
	Page int `json:"page"`
}

// handleOpenReader opens a reader session for a content identity.
func (s *Server) handleOpenReader(w http.ResponseWriter, r *http.Request) {
	var req service.OpenRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	state, err := s.readerService.Open(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, state, s.logger)
}

// handleReaderState returns the current session snapshot, including any
// pending scroll instruction for the client.
func (s *Server) handleReaderState(w http.ResponseWriter, r *http.Request) {
	state, err := s.readerService.State(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, state, s.logger)
}

// handleCloseReader tears down a session. The persisted position survives.
func (s *Server) handleCloseReader(w http.ResponseWriter, r *http.Request) {
	if err := s.readerService.Close(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleReportGeometry records a layout measurement from the client.
func (s *Server) handleReportGeometry(w http.ResponseWriter, r *http.Request) {
	var req service.GeometryRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	state, err := s.readerService.ReportGeometry(r.Context(), chi.URLParam(r, "sessionID"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, state, s.logger)
}

// handleUpdateSettings applies new layout settings to a session.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req service.SettingsRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	state, err := s.readerService.UpdateSettings(r.Context(), chi.URLParam(r, "sessionID"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, state, s.logger)
}

// handleGoToPage navigates to an explicit page index.
func (s *Server) handleGoToPage(w http.ResponseWriter, r *http.Request) {
	var req GoToPageRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	s.navigate(w, r, service.NavGoTo, req.Page)
}

// handleNext advances one page.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, service.NavNext, 0)
}

// handlePrevious goes back one page.
func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, service.NavPrevious, 0)
}

// handleGoToStart jumps to the beginning of the content.
func (s *Server) handleGoToStart(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, service.NavStart, 0)
}

// handleGoToEnd jumps to the end of the content.
func (s *Server) handleGoToEnd(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, service.NavEnd, 0)
}

// navigate dispatches a navigation action for the session in the URL.
func (s *Server) navigate(w http.ResponseWriter, r *http.Request, action service.NavAction, page int) {
	state, err := s.readerService.Navigate(r.Context(), chi.URLParam(r, "sessionID"), action, page)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, state, s.logger)
}

// handleGetPosition reads the persisted position for a content identity.
func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	pos, err := s.readerService.Position(r.Context(), chi.URLParam(r, "contentID"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, pos, s.logger)
}
