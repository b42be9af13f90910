package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var ErrInvalidMenuItem = errors.New("invalid menu item input")

type Service interface {
	ListItems(ctx context.Context) ([]MenuItem, error)
	GetItemByID(ctx context.Context, id string) (*MenuItem, error)
	CreateItem(ctx context.Context, input MenuItemInput) (*MenuItem, error)
	UpdateItem(ctx context.Context, id string, input MenuItemInput) (*MenuItem, error)
	DeleteItem(ctx context.Context, id string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListItems(ctx context.Context) ([]MenuItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch menu items in repository")
		return nil, fmt.Errorf("service: failed to fetch menu items: %w", err)
	}

	return items, nil
}

func (s *service) GetItemByID(ctx context.Context, id string) (*MenuItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMenuItemNotFound) {
			log.Warn().Str("menu_item_id", id).Msg("service: menu item not found")
			return nil, ErrMenuItemNotFound
		}

		log.Error().Err(err).Str("menu_item_id", id).Msg("service: failed to fetch menu item in repository")
		return nil, fmt.Errorf("service: failed to fetch menu item: %w", err)
	}

	return item, nil
}

func (s *service) CreateItem(ctx context.Context, input MenuItemInput) (*MenuItem, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	item, err := s.repo.Create(ctx, input)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to create menu item in repository")
		return nil, fmt.Errorf("service: failed to create menu item: %w", err)
	}

	log.Info().Str("menu_item_id", item.ID.Hex()).Str("name", item.Name).Msg("service: menu item created")

	return item, nil
}

func (s *service) UpdateItem(ctx context.Context, id string, input MenuItemInput) (*MenuItem, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	item, err := s.repo.Update(ctx, id, input)
	if err != nil {
		if errors.Is(err, ErrMenuItemNotFound) {
			log.Warn().Str("menu_item_id", id).Msg("service: menu item not found for update")
			return nil, ErrMenuItemNotFound
		}

		log.Error().Err(err).Str("menu_item_id", id).Msg("service: failed to update menu item in repository")
		return nil, fmt.Errorf("service: failed to update menu item: %w", err)
	}

	return item, nil
}

func (s *service) DeleteItem(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMenuItemNotFound) {
			log.Warn().Str("menu_item_id", id).Msg("service: menu item not found for delete")
			return ErrMenuItemNotFound
		}

		log.Error().Err(err).Str("menu_item_id", id).Msg("service: failed to delete menu item in repository")
		return fmt.Errorf("service: failed to delete menu item: %w", err)
	}

	return nil
}

func validateInput(input MenuItemInput) error {
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMenuItem)
	}
	if input.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidMenuItem)
	}
	return nil
}
