// Package notify delivers appointment notifications.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/care-scheduling/internal/appointment"
)

// LogNotifier writes every notification to the log.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, event string, p appointment.Notification) error {
	n.log.WithFields(logrus.Fields{
		"event":           event,
		"appointment_id":  p.AppointmentID,
		"patient_id":      p.PatientID,
		"professional_id": p.ProfessionalID,
		"status":          p.Status,
		"scheduled_start": p.ScheduledStart,
	}).Info("appointment notification")
	return nil
}

// publisher is the part of *redis.Client the notifier needs.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisNotifier publishes notifications as JSON on a Redis pub/sub channel.
type RedisNotifier struct {
	client  publisher
	channel string
	log     logrus.FieldLogger
}

func NewRedisNotifier(client *redis.Client, channel string, log logrus.FieldLogger) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel, log: log}
}

func (n *RedisNotifier) Notify(ctx context.Context, event string, p appointment.Notification) error {
	p.Event = event
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	receivers, err := n.client.Publish(ctx, n.channel, data).Result()
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	n.log.WithFields(logrus.Fields{
		"channel":        n.channel,
		"event":          event,
		"appointment_id": p.AppointmentID,
		"receivers":      receivers,
	}).Debug("notification published")
	return nil
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []appointment.Notifier

func (m Multi) Notify(ctx context.Context, event string, p appointment.Notification) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
