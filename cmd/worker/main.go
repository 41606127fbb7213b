package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"podgraph/internal/queue"
	"podgraph/internal/util"
	"podgraph/pkg/graph"
	"podgraph/pkg/logger"
	"podgraph/pkg/logger/console"
	"podgraph/pkg/nlp/azure"
	"podgraph/pkg/store/gremlin"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// graph store
	graphStore, err := gremlin.NewClient(gremlin.ClientParams{
		Endpoint:  util.GetEnv("GREMLIN_ENDPOINT"),
		Database:  util.GetEnv("GREMLIN_DATABASE"),
		Container: util.GetEnv("GREMLIN_CONTAINER"),
		Key:       util.GetEnv("GREMLIN_KEY"),
	})
	if err != nil {
		logger.Fatal("Could not connect to graph store", "err", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := graphStore.Close(closeCtx); err != nil {
			logger.Warn("Failed to close graph store", "err", err)
		}
	}()

	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{
		Store:                graphStore,
		MinConfidence:        util.GetEnvNumeric("GRAPH_MIN_CONFIDENCE", 0),
		PersistCoOccurrences: util.GetEnvBool("GRAPH_PERSIST_CO_OCCURRENCES", false),
	})
	if err != nil {
		logger.Fatal("Could not create graph client", "err", err)
	}

	// entity extraction
	extractor := azure.NewClient(azure.NewClientParams{
		Endpoint: util.GetEnv("LANGUAGE_ENDPOINT"),
		Key:      util.GetEnv("LANGUAGE_KEY"),
	})

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queues := []string{queue.IngestQueue}
	if err := queue.SetupQueues(ch, queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	logger.Info("Listening for messages")

	// Single consumer channel with prefetch=1 so only one message is in
	// flight at a time.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			forwardDeliveries(ctx, qName, msgs, messageChan)
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.IngestQueue:
					processingErr = queue.ProcessIngestMessage(ctx, extractor, graphClient, string(qm.msg.Body))
				}

				// Send to retry or dead-letter on failure, ack otherwise.
				// A validation failure can never succeed on redelivery, so
				// it dead-letters immediately instead of cycling.
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					if queue.PermanentFailure(processingErr) {
						deadLetter(consumerCh, qm.msg, qm.queueName)
					} else {
						handleProcessingError(consumerCh, qm.msg, qm.queueName)
					}
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				processingDuration := time.Since(startTime)
				hours := int(processingDuration.Hours())
				minutes := int(processingDuration.Minutes()) % 60
				seconds := int(processingDuration.Seconds()) % 60
				logger.Info(
					"Processing time",
					"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
				)
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

type queuedMessage struct {
	msg       amqp.Delivery
	queueName string
}

// forwardDeliveries pumps broker deliveries into the shared processing
// channel until the context is done or the delivery channel closes. The
// send is guarded so shutdown never strands the goroutine on a channel
// nobody reads anymore.
func forwardDeliveries(ctx context.Context, qName string, msgs <-chan amqp.Delivery, out chan<- queuedMessage) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping consumer", "queue", qName)
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", qName)
				return
			}
			select {
			case <-ctx.Done():
				logger.Info("Stopping consumer", "queue", qName)
				return
			case out <- queuedMessage{msg: msg, queueName: qName}:
			}
		}
	}
}

func deadLetter(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	dlqName := queueName + "_dlq"
	logger.Info("Sending message to DLQ", "dlq", dlqName)
	pubErr := ch.Publish(
		"",
		dlqName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     msg.Headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// After 10 attempts the message parks in the dead-letter queue
	if retries >= 10 {
		deadLetter(ch, msg, queueName)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = retries + 1

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
