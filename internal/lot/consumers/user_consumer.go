// Package consumers holds the RabbitMQ consumers keeping local read copies
// of upstream data in sync.
package consumers

import (
	"context"

	"github.com/flowlytix/distribution-backend/internal/lot/repository"
	"github.com/flowlytix/distribution-backend/pkg/errors"
	"github.com/flowlytix/distribution-backend/pkg/logger"
	"github.com/flowlytix/distribution-backend/pkg/messaging"
)

// UserEventConsumer keeps the user directory in sync with the auth service.
// Lot operations authorize against this local copy.
type UserEventConsumer struct {
	consumer *messaging.Consumer
	userRepo *repository.UserRepository
	logger   *logger.Logger
}

// NewUserEventConsumer creates a new user event consumer
func NewUserEventConsumer(rmq *messaging.RabbitMQ, userRepo *repository.UserRepository, log *logger.Logger) (*UserEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "lot-service.user-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeUserEvents, "user.#"); err != nil {
		return nil, err
	}

	c := &UserEventConsumer{
		consumer: consumer,
		userRepo: userRepo,
		logger:   log.WithComponent("user-consumer"),
	}

	consumer.RegisterHandler(messaging.EventUserCreated, c.handleUserCreated)
	consumer.RegisterHandler(messaging.EventUserUpdated, c.handleUserUpdated)
	consumer.RegisterHandler(messaging.EventUserDeleted, c.handleUserDeleted)

	return c, nil
}

// Start starts consuming messages
func (c *UserEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *UserEventConsumer) handleUserCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("user_id", data.UserID).
		Str("name", data.Name).
		Msg("received user created event")

	var agencyID *string
	if data.AgencyID != "" {
		agencyID = &data.AgencyID
	}

	return c.userRepo.Upsert(ctx, &repository.DirectoryUser{
		UserID:      data.UserID,
		Email:       data.Email,
		Name:        data.Name,
		RoleName:    data.RoleName,
		Permissions: data.Permissions,
		AgencyID:    agencyID,
	})
}

func (c *UserEventConsumer) handleUserUpdated(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserUpdatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("user_id", data.UserID).
		Msg("received user updated event")

	existing, err := c.userRepo.GetByID(ctx, data.UserID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			// Update for a user we never saw created; nothing to refresh
			return nil
		}
		return err
	}

	if data.Email != nil {
		existing.Email = *data.Email
	}
	if data.Name != nil {
		existing.Name = *data.Name
	}
	if data.RoleName != nil {
		existing.RoleName = *data.RoleName
	}
	if data.Permissions != nil {
		existing.Permissions = data.Permissions
	}

	return c.userRepo.Upsert(ctx, existing)
}

func (c *UserEventConsumer) handleUserDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("user_id", data.UserID).
		Msg("received user deleted event")

	return c.userRepo.Delete(ctx, data.UserID)
}
