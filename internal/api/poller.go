package api

import (
	"net/http"
)

// handlePollNow runs one poll cycle and returns the resulting statistics.
func (s *Server) handlePollNow(w http.ResponseWriter, r *http.Request) {
	if s.poller == nil {
		writeUnavailable(w, "poller not running")
		return
	}

	if err := s.poller.PollNow(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeRemote, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.poller.Stats())
}

// handlePollerStats returns the poller statistics.
func (s *Server) handlePollerStats(w http.ResponseWriter, _ *http.Request) {
	if s.poller == nil {
		writeUnavailable(w, "poller not running")
		return
	}
	writeJSON(w, http.StatusOK, s.poller.Stats())
}
