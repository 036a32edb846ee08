package routes

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/hlog"
)

type removedResponse struct {
	Message string `json:"message"`
	Removed int    `json:"removed"`
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.cache.Stats())
}

func (s *Server) handleCacheInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.cache.Info())
}

func (s *Server) handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	n := s.cache.CleanupExpired()
	hlog.FromRequest(r).Info().Int("removed", n).Msg("cache cleanup")
	s.writeJSON(w, r, http.StatusOK, removedResponse{
		Message: fmt.Sprintf("Cleaned up %d expired cache entries", n),
		Removed: n,
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	n := s.cache.Clear()
	hlog.FromRequest(r).Info().Int("removed", n).Msg("cache cleared")
	s.writeJSON(w, r, http.StatusOK, removedResponse{
		Message: fmt.Sprintf("Cleared %d cache entries", n),
		Removed: n,
	})
}
