package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const topicProbeAttempts = 5

// ensureTopicExists probes the broker for the topic and creates it when it
// is missing. Partition reads can fail transiently right after a broker
// restart, so the probe retries a few times before concluding the topic
// needs to be created.
func ensureTopicExists(conn *kafka.Conn, topic string, partitions, replication int, log *slog.Logger) error {
	log.Info("probing Kafka topic", "topic", topic)

	var (
		found []kafka.Partition
		err   error
	)
	for attempt := 1; attempt <= topicProbeAttempts; attempt++ {
		found, err = conn.ReadPartitions(topic)
		if err == nil {
			break
		}
		log.Warn("partition read failed", "topic", topic, "attempt", attempt, "error", err)
		time.Sleep(2 * time.Second)
	}

	if len(found) > 0 {
		if err != nil {
			log.Warn("topic exists but last partition read errored", "topic", topic, "error", err)
		} else {
			log.Info("Kafka topic already exists", "topic", topic)
		}
		return nil
	}

	if partitions <= 0 {
		partitions = 1
	}
	if replication <= 0 {
		replication = 1
	}

	log.Info("Kafka topic not found, creating it", "topic", topic, "partitions", partitions, "replication", replication)
	createErr := conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replication,
	})
	if createErr != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, createErr)
	}

	log.Info("created Kafka topic", "topic", topic)
	return nil
}
