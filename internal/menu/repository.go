package menu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrMenuItemNotFound = errors.New("menu item not found")

const collectionName = "menu_items"

type Repository interface {
	List(ctx context.Context) ([]MenuItem, error)
	GetByID(ctx context.Context, id string) (*MenuItem, error)
	Create(ctx context.Context, input MenuItemInput) (*MenuItem, error)
	Update(ctx context.Context, id string, input MenuItemInput) (*MenuItem, error)
	Delete(ctx context.Context, id string) error
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{collection: db.Collection(collectionName)}
}

func (r *mongoRepository) List(ctx context.Context) ([]MenuItem, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query menu items: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]MenuItem, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("repository: failed to decode menu items: %w", err)
	}

	return items, nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id string) (*MenuItem, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrMenuItemNotFound
	}

	var item MenuItem
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to fetch menu item %s: %w", id, err)
	}

	return &item, nil
}

func (r *mongoRepository) Create(ctx context.Context, input MenuItemInput) (*MenuItem, error) {
	item := MenuItem{
		ID:          primitive.NewObjectID(),
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		Image:       input.Image,
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := r.collection.InsertOne(ctx, item); err != nil {
		return nil, fmt.Errorf("repository: failed to insert menu item: %w", err)
	}

	return &item, nil
}

func (r *mongoRepository) Update(ctx context.Context, id string, input MenuItemInput) (*MenuItem, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrMenuItemNotFound
	}

	update := bson.M{"$set": bson.M{
		"name":        input.Name,
		"description": input.Description,
		"category":    input.Category,
		"price":       input.Price,
		"image":       input.Image,
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var item MenuItem
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, update, opts).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to update menu item %s: %w", id, err)
	}

	return &item, nil
}

func (r *mongoRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrMenuItemNotFound
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("repository: failed to delete menu item %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrMenuItemNotFound
	}

	return nil
}
