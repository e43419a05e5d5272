package services

import (
	"context"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Publisher sends collection saved events.
type Publisher interface {
	PublishCollectionSaved(ctx context.Context, ownerID, collection string) error
}

// PublishObserver receives publish outcomes.
type PublishObserver interface {
	ObservePublish(err error)
}

// EventNotifier announces saved collections. Publishing is best effort: a
// failure is logged and never reaches the caller of the mutation.
type EventNotifier struct {
	publisher Publisher
	observer  PublishObserver
	timeout   time.Duration
	logger    *log.Logger
}

// NewEventNotifier accepts a nil publisher, in which case events are skipped.
func NewEventNotifier(publisher Publisher, observer PublishObserver) *EventNotifier {
	return &EventNotifier{
		publisher: publisher,
		observer:  observer,
		timeout:   2 * time.Second,
		logger:    log.Default(log.ComponentAMQP),
	}
}

func (n *EventNotifier) CollectionSaved(ctx context.Context, owner string, collection core.Collection) {
	if n.publisher == nil {
		n.logger.DebugContext(ctx, "AMQP not configured, skipping collection saved event",
			log.FieldOwnerID, owner,
			log.FieldCollection, collection)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	err := n.publisher.PublishCollectionSaved(ctx, owner, string(collection))
	if n.observer != nil {
		n.observer.ObservePublish(err)
	}
	if err != nil {
		n.logger.WarnContext(ctx, "Failed to publish collection saved event",
			log.FieldOwnerID, owner,
			log.FieldCollection, collection,
			log.FieldError, err)
	}
}
