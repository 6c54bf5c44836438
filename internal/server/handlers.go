package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"

	"github.com/mesh-intelligence/gigboard/internal/rest"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

type contextKey string

const (
	userIDCtxKey contextKey = "userID"
	tokenCtxKey  contextKey = "token"
)

// authenticator rejects requests without a valid, unrevoked token and puts
// the user ID in the request context.
func (s *Server) authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			RespondWithError(w, fmt.Errorf("%w: authorization token required", types.ErrUnauthorized))
			return
		}
		if token.JwtID() == "" || s.auth.Revoked(token.JwtID()) {
			RespondWithError(w, fmt.Errorf("%w: token revoked", types.ErrUnauthorized))
			return
		}
		if token.Subject() == "" {
			RespondWithError(w, fmt.Errorf("%w: token has no subject", types.ErrUnauthorized))
			return
		}
		ctx := context.WithValue(r.Context(), userIDCtxKey, token.Subject())
		ctx = context.WithValue(ctx, tokenCtxKey, jwtauth.TokenFromHeader(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDCtxKey).(string)
	return id
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request payload: %v", types.ErrBadRequest, err)
	}
	return nil
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req rest.Credentials
	if err := decode(r, &req); err != nil {
		RespondWithError(w, err)
		return
	}
	sess, err := s.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		s.log.Debug().Err(err).Msg("sign up failed")
		RespondWithError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, sess)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req rest.Credentials
	if err := decode(r, &req); err != nil {
		RespondWithError(w, err)
		return
	}
	sess, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		RespondWithError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, sess)
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(tokenCtxKey).(string)
	if err := s.auth.SignOut(r.Context(), token); err != nil {
		RespondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	recs, err := s.stores(userID(r.Context())).List(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("listing projects")
		RespondWithError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, recs)
}

func (s *Server) insertProject(w http.ResponseWriter, r *http.Request) {
	rec := types.NewRecord()
	if err := decode(r, &rec); err != nil {
		RespondWithError(w, err)
		return
	}
	stored, err := s.stores(userID(r.Context())).Insert(r.Context(), rec)
	if err != nil {
		s.log.Error().Err(err).Msg("inserting project")
		RespondWithError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, stored)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	var patch types.RecordPatch
	if err := decode(r, &patch); err != nil {
		RespondWithError(w, err)
		return
	}
	if err := s.stores(userID(r.Context())).Update(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		RespondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.stores(userID(r.Context())).Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		RespondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
