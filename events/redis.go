package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewRedisPublisher creates a Redis Streams publisher from a redis:// URL
func NewRedisPublisher(redisURL string, logger logrus.FieldLogger) (*WatermillPublisher, *redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisClient := redis.NewClient(opts)

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		NewLogrusAdapter(logger),
	)
	if err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}

	return NewWatermillPublisher(publisher, logger), redisClient, nil
}

// logrusAdapter routes Watermill logs through logrus
type logrusAdapter struct {
	entry *logrus.Entry
}

// NewLogrusAdapter wraps a logrus logger as a watermill.LoggerAdapter
func NewLogrusAdapter(logger logrus.FieldLogger) watermill.LoggerAdapter {
	return &logrusAdapter{entry: logger.WithField("component", "watermill")}
}

func (l *logrusAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).WithError(err).Error(msg)
}

func (l *logrusAdapter) Info(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Info(msg)
}

func (l *logrusAdapter) Debug(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

func (l *logrusAdapter) Trace(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Trace(msg)
}

func (l *logrusAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &logrusAdapter{entry: l.entry.WithFields(logrus.Fields(fields))}
}
