package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"fleetwatch/models"
	"fleetwatch/services"
)

// rawIgnition is the loosely shaped ignition record as it arrives on the
// wire. Device identity and timestamps vary by tracker firmware; both are
// normalized here, once, instead of at each consumption site.
type rawIgnition struct {
	ID         string      `json:"id"`
	DeviceIMEI string      `json:"deviceImei"`
	IMEI       string      `json:"imei"`
	DeviceID   string      `json:"device_id"`
	Timestamp  interface{} `json:"timestamp"`
	IgnitionOn bool        `json:"ignition_on"`
	Voltage    *float64    `json:"voltage"`
	Lat        *float64    `json:"lat"`
	Lon        *float64    `json:"lon"`
}

// rawException is the loosely shaped exception record: "main" carries the
// free-text category code.
type rawException struct {
	ID         string      `json:"id"`
	DeviceIMEI string      `json:"deviceImei"`
	IMEI       string      `json:"imei"`
	DeviceID   string      `json:"device_id"`
	Timestamp  interface{} `json:"timestamp"`
	Main       string      `json:"main"`
	Detail     string      `json:"detail"`
	Severity   string      `json:"severity"`
}

// Consumer handles Kafka message consumption for both event streams.
type Consumer struct {
	group            sarama.ConsumerGroup
	topics           []string
	ignitionTopic    string
	exceptionTopic   string
	ignitionChannel  chan *models.IgnitionEvent
	exceptionChannel chan *models.ExceptionEvent
	errorChannel     chan error
	cancel           context.CancelFunc
}

// NewConsumer creates a consumer group subscribed to the two event topics.
func NewConsumer(brokers []string, groupID, ignitionTopic, exceptionTopic string) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_1_0_0
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %v", err)
	}

	return &Consumer{
		group:            group,
		topics:           []string{ignitionTopic, exceptionTopic},
		ignitionTopic:    ignitionTopic,
		exceptionTopic:   exceptionTopic,
		ignitionChannel:  make(chan *models.IgnitionEvent, 100),
		exceptionChannel: make(chan *models.ExceptionEvent, 100),
		errorChannel:     make(chan error, 10),
	}, nil
}

// IgnitionChannel returns the channel for receiving normalized ignition events
func (c *Consumer) IgnitionChannel() <-chan *models.IgnitionEvent {
	return c.ignitionChannel
}

// ExceptionChannel returns the channel for receiving normalized exception events
func (c *Consumer) ExceptionChannel() <-chan *models.ExceptionEvent {
	return c.exceptionChannel
}

// ErrorChannel returns the channel for receiving errors
func (c *Consumer) ErrorChannel() <-chan error {
	return c.errorChannel
}

// Start begins consuming messages until Stop is called.
func (c *Consumer) Start() {
	log.Println("Starting Kafka consumer...")

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	go func() {
		for err := range c.group.Errors() {
			select {
			case c.errorChannel <- fmt.Errorf("consumer error: %v", err):
			default:
				log.Printf("Error channel full, dropping error: %v", err)
			}
		}
	}()

	go func() {
		for {
			if err := c.group.Consume(ctx, c.topics, c); err != nil {
				select {
				case c.errorChannel <- fmt.Errorf("consume session failed: %v", err):
				default:
					log.Printf("Error channel full, dropping error: %v", err)
				}
			}
			if ctx.Err() != nil {
				log.Println("Stopping Kafka consumer...")
				return
			}
		}
	}()
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return c.group.Close()
}

// Setup implements sarama.ConsumerGroupHandler
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup implements sarama.ConsumerGroupHandler
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim dispatches each message to the stream it belongs to.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		switch msg.Topic {
		case c.ignitionTopic:
			c.processIgnition(msg.Value)
		case c.exceptionTopic:
			c.processException(msg.Value)
		default:
			log.Printf("Message from unexpected topic %s, skipping", msg.Topic)
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func (c *Consumer) processIgnition(payload []byte) {
	event, err := normalizeIgnition(payload, time.Now())
	if err != nil {
		c.reportError(err)
		return
	}

	select {
	case c.ignitionChannel <- event:
	default:
		log.Printf("Ignition channel full, dropping event from device %s", event.DeviceID)
	}
}

func (c *Consumer) processException(payload []byte) {
	event, err := normalizeException(payload, time.Now())
	if err != nil {
		c.reportError(err)
		return
	}

	select {
	case c.exceptionChannel <- event:
	default:
		log.Printf("Exception channel full, dropping event from device %s", event.DeviceID)
	}
}

// normalizeIgnition turns a raw wire record into the canonical event shape.
func normalizeIgnition(payload []byte, now time.Time) (*models.IgnitionEvent, error) {
	var raw rawIgnition
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ignition record: %v", err)
	}

	deviceID := firstNonEmpty(raw.DeviceIMEI, raw.IMEI, raw.DeviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("ignition record without device identifier")
	}

	event := &models.IgnitionEvent{
		ID:         firstNonEmpty(raw.ID, uuid.NewString()),
		DeviceID:   deviceID,
		Timestamp:  services.NormalizeTimestamp(raw.Timestamp, now),
		IgnitionOn: raw.IgnitionOn,
		Voltage:    raw.Voltage,
	}
	if raw.Lat != nil && raw.Lon != nil {
		event.Location = &models.Location{Lat: *raw.Lat, Lon: *raw.Lon}
	}
	return event, nil
}

// normalizeException turns a raw wire record into the canonical event shape.
func normalizeException(payload []byte, now time.Time) (*models.ExceptionEvent, error) {
	var raw rawException
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal exception record: %v", err)
	}

	deviceID := firstNonEmpty(raw.DeviceIMEI, raw.IMEI, raw.DeviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("exception record without device identifier")
	}

	return &models.ExceptionEvent{
		ID:        firstNonEmpty(raw.ID, uuid.NewString()),
		DeviceID:  deviceID,
		Timestamp: services.NormalizeTimestamp(raw.Timestamp, now),
		Category:  raw.Main,
		Detail:    raw.Detail,
		Severity:  raw.Severity,
	}, nil
}

func (c *Consumer) reportError(err error) {
	select {
	case c.errorChannel <- err:
	default:
		log.Printf("Error channel full, dropping error: %v", err)
	}
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
