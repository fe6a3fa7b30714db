package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/smartcommute/smartcommute/internal/traffic"
)

// Pub/Sub job types.
const (
	JobCommuteCheck = "commute_check"
	JobHealthCheck  = "health_check"
)

// Checker runs forced checks and provider probes.
type Checker interface {
	ForceCheck(ctx context.Context, trigger string) (*Report, error)
	Probe(ctx context.Context) (*traffic.Sample, error)
}

// PubSubHandler triggers commute checks from Pub/Sub messages, e.g. a
// Cloud Scheduler job publishing at the check time.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	checker          Checker
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Checker          Checker
	Logger           zerolog.Logger
}

// JobMessage is a Pub/Sub job message.
type JobMessage struct {
	JobType string `json:"job_type"`
	Reason  string `json:"reason,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Checks are serialized on the monitor, so there is no point pulling more.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = 2 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		checker:          cfg.Checker,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := h.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		if process(ctx, h.checker, msg.Data, logger) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// process runs the job in data and reports whether the message should be acked.
func process(ctx context.Context, checker Checker, data []byte, logger zerolog.Logger) bool {
	startTime := time.Now()

	logger.Debug().Msg("received pubsub message")

	var job JobMessage
	if err := json.Unmarshal(data, &job); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		return false
	}

	var err error
	switch job.JobType {
	case JobCommuteCheck:
		err = handleCommuteCheck(ctx, checker, job, logger)
	case JobHealthCheck:
		err = handleHealthCheck(ctx, checker, logger)
	default:
		logger.Warn().Str("job_type", job.JobType).Msg("unknown job type")
		return true // Ack unknown messages to prevent redelivery
	}

	if err != nil {
		logger.Error().Err(err).Str("job_type", job.JobType).Msg("job failed")
		return false
	}

	logger.Info().
		Str("job_type", job.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")

	return true
}

func handleCommuteCheck(ctx context.Context, checker Checker, job JobMessage, logger zerolog.Logger) error {
	report, err := checker.ForceCheck(ctx, TriggerPubSub)
	if err != nil {
		return err
	}

	logger.Info().
		Str("reason", job.Reason).
		Str("tick_id", report.TickID).
		Str("intent", string(report.Intent)).
		Bool("delivered", report.Delivered).
		Msg("commute check completed")

	return nil
}

func handleHealthCheck(ctx context.Context, checker Checker, logger zerolog.Logger) error {
	sample, err := checker.Probe(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	logger.Debug().
		Float64("traffic_ratio", sample.TrafficRatio).
		Msg("health check passed")
	return nil
}
