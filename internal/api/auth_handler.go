package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/recallhq/engram-api/internal/api/shared"
	"github.com/recallhq/engram-api/internal/platform/logger"
	"github.com/recallhq/engram-api/internal/service"
	"github.com/recallhq/engram-api/internal/service/auth"
	"github.com/recallhq/engram-api/internal/store"
)

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	learnerService service.LearnerService
	jwtService     auth.JWTService
	validator      *validator.Validate
	logger         *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	learnerService service.LearnerService,
	jwtService auth.JWTService,
	logger *slog.Logger,
) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		learnerService: learnerService,
		jwtService:     jwtService,
		validator:      validator.New(),
		logger:         logger.With(slog.String("component", "auth_handler")),
	}
}

// Register handles the /auth/register endpoint.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	learner, err := h.learnerService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			shared.RespondWithError(w, r, http.StatusConflict, "Email already exists")
			return
		}
		HandleAPIError(w, r, err, "Failed to create learner")
		return
	}

	accessToken, refreshToken, err := h.issueTokenPair(w, r, learner.ID)
	if err != nil {
		return // response already written
	}

	log.Info("learner registered", slog.String("learner_id", learner.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, AuthResponse{
		LearnerID:    learner.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// Login handles the /auth/login endpoint.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	learner, err := h.learnerService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		HandleAPIError(w, r, err, "Failed to authenticate learner")
		return
	}

	accessToken, refreshToken, err := h.issueTokenPair(w, r, learner.ID)
	if err != nil {
		return // response already written
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		LearnerID:    learner.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// RefreshToken handles the /auth/refresh endpoint. A valid refresh token is
// exchanged for a fresh access/refresh pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to validate refresh token")
		return
	}

	accessToken, refreshToken, err := h.issueTokenPair(w, r, claims.LearnerID)
	if err != nil {
		return // response already written
	}

	shared.RespondWithJSON(w, r, http.StatusOK, RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// issueTokenPair generates an access/refresh token pair, writing an error
// response on failure. Callers must return without writing when err is
// non-nil.
func (h *AuthHandler) issueTokenPair(
	w http.ResponseWriter,
	r *http.Request,
	learnerID uuid.UUID,
) (string, string, error) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	accessToken, err := h.jwtService.GenerateToken(r.Context(), learnerID)
	if err != nil {
		log.Error("failed to generate access token",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		shared.RespondWithError(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token")
		return "", "", err
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(r.Context(), learnerID)
	if err != nil {
		log.Error("failed to generate refresh token",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		shared.RespondWithError(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token")
		return "", "", err
	}

	return accessToken, refreshToken, nil
}
