package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrEmailTaken = fmt.Errorf("email already registered: %w", domain.ErrConflict)

type mongoUserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(usersCollection),
	}
}

func (m *mongoUserRepository) GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var user domain.User
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Cart.UserID = user.ID.Hex()
	return &user, nil
}

func (m *mongoUserRepository) CreateUser(ctx context.Context, email string) (*domain.User, error) {
	user := &domain.User{
		ID:    primitive.NewObjectID(),
		Email: email,
		// an empty array, not null, so $push works on the first add
		Cart: domain.Cart{Items: []domain.CartItem{}},
	}

	if _, err := m.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.Cart.UserID = user.ID.Hex()
	return user, nil
}

func (m *mongoUserRepository) GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	var user domain.User
	opts := options.FindOne().SetProjection(bson.M{"cart": 1})
	err := m.collection.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return cartOf(&user), nil
}

// AddItem bumps the quantity of productID by one, inserting a line with
// quantity 1 when the cart does not hold it yet.
func (m *mongoUserRepository) AddItem(ctx context.Context, userID primitive.ObjectID, productID int64) (*domain.Cart, error) {
	for attempt := 0; attempt < 2; attempt++ {
		cart, err := m.updateCart(ctx,
			bson.M{"_id": userID, "cart.items.product_id": productID},
			bson.M{"$inc": bson.M{"cart.items.$.quantity": 1, "cart.version": 1}},
		)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to increment cart item: %w", err)
		}

		// $ne keeps two concurrent first adds from pushing the same product twice
		cart, err = m.updateCart(ctx,
			bson.M{"_id": userID, "cart.items.product_id": bson.M{"$ne": productID}},
			bson.M{
				"$push": bson.M{"cart.items": domain.CartItem{ProductID: productID, Quantity: 1}},
				"$inc":  bson.M{"cart.version": 1},
			},
		)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to add cart item: %w", err)
		}

		// Neither filter matched: the user is gone, or another request
		// inserted the line between the two updates.
		if _, err := m.GetUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to add cart item: %w", domain.ErrConflict)
}

func (m *mongoUserRepository) RemoveItem(ctx context.Context, userID primitive.ObjectID, productID int64) (*domain.Cart, error) {
	cart, err := m.updateCart(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$pull": bson.M{"cart.items": bson.M{"product_id": productID}},
			"$inc":  bson.M{"cart.version": 1},
		},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}
	return cart, nil
}

func (m *mongoUserRepository) ClearCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	cart, err := m.updateCart(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$set": bson.M{"cart.items": []domain.CartItem{}},
			"$inc": bson.M{"cart.version": 1},
		},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}
	return cart, nil
}

func (m *mongoUserRepository) updateCart(ctx context.Context, filter, update bson.M) (*domain.Cart, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"cart": 1})

	var user domain.User
	if err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user); err != nil {
		return nil, err
	}
	return cartOf(&user), nil
}

func cartOf(user *domain.User) *domain.Cart {
	cart := user.Cart
	cart.UserID = user.ID.Hex()
	return &cart
}
