package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrEventNotFound = fmt.Errorf("outbox event %w", domain.ErrNotFound)

// MongoOrderRepository stores orders and their outbox events. Placing an
// order also touches the users collection because the cart is cleared in
// the same transaction.
type MongoOrderRepository struct {
	client *mongo.Client
	orders *mongo.Collection
	outbox *mongo.Collection
	users  *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{
		client: db.Client(),
		orders: db.Collection(ordersCollection),
		outbox: db.Collection(outboxCollection),
		users:  db.Collection(usersCollection),
	}
}

func (r *MongoOrderRepository) PlaceOrder(ctx context.Context, order *domain.Order, event *domain.OutboxEvent, cartVersion int64) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.users.UpdateOne(sc,
			bson.M{"_id": order.User.UserID, "cart.version": cartVersion},
			bson.M{
				"$set": bson.M{"cart.items": []domain.CartItem{}},
				"$inc": bson.M{"cart.version": 1},
			},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to clear cart: %w", err)
		}
		if res.MatchedCount == 0 {
			return nil, ErrCartChanged
		}

		if _, err := r.orders.InsertOne(sc, order); err != nil {
			return nil, fmt.Errorf("failed to insert order: %w", err)
		}

		if event != nil {
			if _, err := r.outbox.InsertOne(sc, event); err != nil {
				return nil, fmt.Errorf("failed to insert outbox event: %w", err)
			}
		}
		return nil, nil
	})
	return err
}

func (r *MongoOrderRepository) GetOrder(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	var order domain.Order
	err := r.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (r *MongoOrderRepository) ListOrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.orders.Find(ctx, bson.M{"user.user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	var orders []*domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (r *MongoOrderRepository) GetUnpublishedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.outbox.Find(ctx, bson.M{"published_at": nil}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}

	var events []*domain.OutboxEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode outbox events: %w", err)
	}
	return events, nil
}

func (r *MongoOrderRepository) MarkEventPublished(ctx context.Context, id string) error {
	res, err := r.outbox.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"published_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark event as published: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrEventNotFound
	}
	return nil
}
