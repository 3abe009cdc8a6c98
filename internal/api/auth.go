package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/sellerhub"
	"github.com/MrEthical07/sellerhub/middleware"
)

var errBadJSON = &sellerhub.Error{Kind: sellerhub.KindValidation, Message: "invalid JSON body"}

// googleRegister signs a seller in with the profile returned by Google,
// creating the account on first use.
func (s *Server) googleRegister(w http.ResponseWriter, r *http.Request) {
	var profile sellerhub.Profile
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err := dec.Decode(&profile); err != nil {
		s.fail(w, r, errBadJSON.Wrap(err))
		return
	}

	res, err := s.engine.SignIn(r.Context(), profile)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.setSessionCookies(w, res.Pair)

	status, message := http.StatusOK, "Logged in successfully"
	if res.Created {
		status, message = http.StatusCreated, "Registered successfully"
	}
	s.success(w, status, envelope{
		"message": message,
		"userId":  res.SubjectID,
	})
}

// refreshToken rotates the session. It runs without the Access Guard so an
// expired access token does not block it.
func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	pair, err := s.engine.Refresh(r.Context(), s.refreshCookie(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.setSessionCookies(w, pair)
	s.success(w, http.StatusOK, envelope{
		"message": "Token refreshed!",
		"userId":  pair.SubjectID,
	})
}

// logout clears both cookies whatever happens and revokes the cached refresh
// token when the presented one is still current.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Logout(r.Context(), s.refreshCookie(r))
	s.clearSessionCookies(w)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.success(w, http.StatusOK, envelope{"message": "Logged out successfully"})
}

func (s *Server) verifyUser(w http.ResponseWriter, r *http.Request) {
	subject, err := s.engine.Subject(r.Context(), middleware.SubjectID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.success(w, http.StatusOK, envelope{"user": subject})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	h := s.engine.Health(r.Context())
	if !h.RedisAvailable {
		writeJSON(w, http.StatusServiceUnavailable, envelope{
			"status": "error",
			"redis":  "down",
		})
		return
	}

	s.success(w, http.StatusOK, envelope{
		"redis":     "up",
		"latencyMs": float64(h.RedisLatency.Microseconds()) / 1000,
	})
}

func isMaxBytes(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
