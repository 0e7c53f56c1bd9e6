package amqp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"canteen/pkg/domain/service"
)

const exchangeName = "canteen.order.changes"

// Feed publishes order change events to a fanout exchange and lets
// consumers subscribe to a change signal. The signal carries no payload,
// subscribers re-fetch state from the repository.
type Feed struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewFeed(url string) (*Feed, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open amqp channel")
	}

	err = channel.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "declare exchange")
	}

	return &Feed{conn: conn, channel: channel}, nil
}

func (f *Feed) Close() error {
	_ = f.channel.Close()
	return f.conn.Close()
}

type envelope struct {
	Type  string        `json:"type"`
	Event service.Event `json:"event"`
	At    time.Time     `json:"at"`
}

// Dispatch implements service.EventDispatcher.
func (f *Feed) Dispatch(event service.Event) error {
	body, err := json.Marshal(envelope{Type: event.Type(), Event: event, At: time.Now()})
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	err = f.channel.Publish(exchangeName, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	return errors.Wrapf(err, "publish %s", event.Type())
}

// Subscribe binds a private queue to the exchange and returns a channel
// that fires on every published change. Deliveries arriving while the
// consumer is busy coalesce into a single pending signal.
func (f *Feed) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	channel, err := f.conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open subscriber channel")
	}

	queue, err := channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = channel.Close()
		return nil, errors.Wrap(err, "declare subscriber queue")
	}

	if err := channel.QueueBind(queue.Name, "", exchangeName, false, nil); err != nil {
		_ = channel.Close()
		return nil, errors.Wrap(err, "bind subscriber queue")
	}

	deliveries, err := channel.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = channel.Close()
		return nil, errors.Wrap(err, "consume subscriber queue")
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer channel.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					log.Warn("change feed consumer closed")
					return
				}
				log.WithField("type", delivery.Type).Debug("order change received")
				select {
				case changes <- struct{}{}:
				default:
				}
			}
		}
	}()
	return changes, nil
}
