package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/digital-diner/backend/internal/menu"
)

type MenuItemRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price" validate:"required,gte=0"`
	Image       string  `json:"image"`
}

type MenuHandler struct {
	service  menu.Service
	validate *validator.Validate
}

func NewMenuHandler(service menu.Service) *MenuHandler {
	return &MenuHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *MenuHandler) RegisterRoutes(router chi.Router) {
	router.Get("/menu", h.handleListItems)
	router.Get("/menu/{id}", h.handleGetItem)
}

// RegisterAdminRoutes — CRUD меню для админ-консоли.
func (h *MenuHandler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/menu", h.handleListItems)
	router.Post("/menu", h.handleCreateItem)
	router.Put("/menu/{id}", h.handleUpdateItem)
	router.Delete("/menu/{id}", h.handleDeleteItem)
}

func (h *MenuHandler) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list menu items via service")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to list menu items")
		return
	}

	respondWithJSON(w, http.StatusOK, items)
}

func (h *MenuHandler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.service.GetItemByID(r.Context(), id)
	if err != nil {
		if !errors.Is(err, menu.ErrMenuItemNotFound) {
			log.Error().Err(err).Msg("Failed to get menu item via service")
		}
		respondWithError(w, mapErrorToStatusCode(err), menuClientMessage(err, "Failed to get menu item"))
		return
	}

	respondWithJSON(w, http.StatusOK, item)
}

func (h *MenuHandler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	requestPayload, ok := h.decodeMenuItem(w, r)
	if !ok {
		return
	}

	item, err := h.service.CreateItem(r.Context(), menu.MenuItemInput{
		Name:        requestPayload.Name,
		Description: requestPayload.Description,
		Category:    requestPayload.Category,
		Price:       requestPayload.Price,
		Image:       requestPayload.Image,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create menu item via service")
		respondWithError(w, mapErrorToStatusCode(err), menuClientMessage(err, "Failed to create menu item"))
		return
	}

	respondWithJSON(w, http.StatusCreated, item)
}

func (h *MenuHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	requestPayload, ok := h.decodeMenuItem(w, r)
	if !ok {
		return
	}

	item, err := h.service.UpdateItem(r.Context(), id, menu.MenuItemInput{
		Name:        requestPayload.Name,
		Description: requestPayload.Description,
		Category:    requestPayload.Category,
		Price:       requestPayload.Price,
		Image:       requestPayload.Image,
	})
	if err != nil {
		if !errors.Is(err, menu.ErrMenuItemNotFound) {
			log.Error().Err(err).Msg("Failed to update menu item via service")
		}
		respondWithError(w, mapErrorToStatusCode(err), menuClientMessage(err, "Failed to update menu item"))
		return
	}

	respondWithJSON(w, http.StatusOK, item)
}

func (h *MenuHandler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		if !errors.Is(err, menu.ErrMenuItemNotFound) {
			log.Error().Err(err).Msg("Failed to delete menu item via service")
		}
		respondWithError(w, mapErrorToStatusCode(err), menuClientMessage(err, "Failed to delete menu item"))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Menu item deleted successfully"})
}

func (h *MenuHandler) decodeMenuItem(w http.ResponseWriter, r *http.Request) (MenuItemRequest, bool) {
	var requestPayload MenuItemRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return MenuItemRequest{}, false
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationError(w, err)
		return MenuItemRequest{}, false
	}

	return requestPayload, true
}

func menuClientMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, menu.ErrMenuItemNotFound):
		return "Menu item not found"
	case errors.Is(err, menu.ErrInvalidMenuItem):
		return err.Error()
	default:
		return fallback
	}
}
