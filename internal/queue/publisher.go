package queue

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, event any, reqID string) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(ctx context.Context, exchange, key string, event any, reqID string) error {
	return nil
}
func (NoopPub) Close() error { return nil }

type UserRegistered struct {
	UserID primitive.ObjectID `json:"user_id"`
	Email  string             `json:"email"`
	Name   string             `json:"name"`
}

type PasswordChanged struct {
	UserID primitive.ObjectID `json:"user_id"`
	// Via distinguishes a reset-token flow from an authenticated update.
	Via string `json:"via"`
}
