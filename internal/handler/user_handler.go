package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/digital-diner/backend/internal/auth"
	"github.com/digital-diner/backend/internal/user"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=customer staff admin"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type UserHandler struct {
	service  user.Service
	validate *validator.Validate
}

func NewUserHandler(service user.Service) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Post("/users/register", h.handleRegister)
	router.Post("/users/login", h.handleLogin)
}

// RegisterProtectedRoutes — маршруты, требующие токена.
func (h *UserHandler) RegisterProtectedRoutes(router chi.Router) {
	router.Get("/users/me", h.handleGetCurrentUser)
}

func (h *UserHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var requestPayload RegisterRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationError(w, err)
		return
	}

	_, token, err := h.service.Register(r.Context(), requestPayload.Username, requestPayload.Email, requestPayload.Password, requestPayload.Role)
	if err != nil {
		var clientMessage string
		switch {
		case errors.Is(err, user.ErrEmailExists):
			clientMessage = "User already exists"
		case errors.Is(err, user.ErrUsernameExists):
			clientMessage = "Username is already taken"
		default:
			log.Error().Err(err).Msg("Failed to register user via service")
			clientMessage = "Failed to register user"
		}

		respondWithError(w, mapErrorToStatusCode(err), clientMessage)
		return
	}

	respondWithJSON(w, http.StatusCreated, TokenResponse{Token: token})
}

func (h *UserHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload LoginRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationError(w, err)
		return
	}

	login := requestPayload.Username
	if login == "" {
		login = requestPayload.Email
	}
	if login == "" {
		respondWithError(w, http.StatusBadRequest, "Username/email and password are required")
		return
	}

	_, token, err := h.service.Login(r.Context(), login, requestPayload.Password)
	if err != nil {
		if !errors.Is(err, user.ErrInvalidCredentials) {
			log.Error().Err(err).Msg("Failed to login user via service")
		}

		var clientMessage string
		if errors.Is(err, user.ErrInvalidCredentials) {
			clientMessage = "Invalid credentials"
		} else {
			clientMessage = "Failed to login"
		}

		respondWithError(w, mapErrorToStatusCode(err), clientMessage)
		return
	}

	respondWithJSON(w, http.StatusOK, TokenResponse{Token: token})
}

func (h *UserHandler) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	foundUser, err := h.service.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			log.Error().Err(err).Msg("Failed to get current user via service")
		}

		var clientMessage string
		if errors.Is(err, user.ErrNotFound) {
			clientMessage = "User not found"
		} else {
			clientMessage = "Failed to get current user"
		}

		respondWithError(w, mapErrorToStatusCode(err), clientMessage)
		return
	}

	respondWithJSON(w, http.StatusOK, UserResponse{
		ID:        foundUser.ID,
		Username:  foundUser.Username,
		Email:     foundUser.Email,
		Role:      foundUser.Role,
		CreatedAt: foundUser.CreatedAt,
	})
}
