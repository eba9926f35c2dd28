// Package journal appends every committed event to a Kafka topic as a
// durable activity log for offline processing.
package journal

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Shopify/sarama"

	"SLProject/logger"
	"SLProject/module/events"
)

type Config struct {
	Brokers     []string
	Topic       string
	Version     sarama.KafkaVersion
	Compression string // snappy | lz4 | zstd | none
	Retries     int
}

// Journal is an async producer. Messages are keyed by channel and the
// hash partitioner keeps one channel on one partition, so the journal
// preserves per-channel order just like the live fanout.
type Journal struct {
	prod  sarama.AsyncProducer
	topic string
}

func buildConfig(cfg Config) *sarama.Config {
	sc := sarama.NewConfig()
	if cfg.Version != (sarama.KafkaVersion{}) {
		sc.Version = cfg.Version
	}
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	if cfg.Retries <= 0 {
		cfg.Retries = 1
	}
	sc.Producer.Retry.Max = cfg.Retries
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	switch strings.ToLower(cfg.Compression) {
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		sc.Producer.Compression = sarama.CompressionZSTD
	default:
		sc.Producer.Compression = sarama.CompressionNone
	}
	sc.Net.DialTimeout = 10 * time.Second
	sc.Net.ReadTimeout = 30 * time.Second
	sc.Net.WriteTimeout = 30 * time.Second
	return sc
}

func New(cfg Config) (*Journal, error) {
	client, err := sarama.NewClient(cfg.Brokers, buildConfig(cfg))
	if err != nil {
		return nil, err
	}
	prod, err := sarama.NewAsyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	j := &Journal{prod: prod, topic: cfg.Topic}
	go j.drain()
	return j, nil
}

func (j *Journal) drain() {
	for {
		select {
		case msg, ok := <-j.prod.Successes():
			if !ok {
				return
			}
			logger.Debugf("journal append topic=%s partition=%d offset=%d", msg.Topic, msg.Partition, msg.Offset)
		case err, ok := <-j.prod.Errors():
			if !ok {
				return
			}
			logger.Errorf("journal append error: %v", err)
		}
	}
}

// Relay implements the dispatcher relay contract: best-effort, never
// blocks the fanout path beyond the producer's input buffer.
func (j *Journal) Relay(evt events.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		logger.Errorf("journal marshal: %v", err)
		return
	}
	j.prod.Input() <- &sarama.ProducerMessage{
		Topic: j.topic,
		Key:   sarama.StringEncoder(evt.Channel),
		Value: sarama.ByteEncoder(data),
	}
}

func (j *Journal) Close() error {
	return j.prod.Close()
}
