package producer

import (
	"fmt"

	"github.com/IBM/sarama"
)

// NewSyncProducer returns a producer whose SendMessage waits until every
// in-sync replica has the record. Callers rely on that acknowledgement to
// decide a row or message is delivered, so retries stay on and the
// producer is idempotent.
func NewSyncProducer(brokers []string, clientID string) (sarama.SyncProducer, error) {
	const op = "brokers.kafka.producer.NewSyncProducer"

	producer, err := sarama.NewSyncProducer(brokers, Config(clientID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return producer, nil
}

func Config(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_8_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	return cfg
}
