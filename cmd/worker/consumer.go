package main

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/telemetry"
	"compliance-backend/internal/workerproc"
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// consumer long-polls the reminder queue and applies each message.
type consumer struct {
	client          sqsAPI
	queueURL        string
	proc            workerproc.Processor
	concurrency     int
	visibility      int
	shutdownTimeout time.Duration
}

func (c *consumer) run(ctx context.Context) {
	sem := make(chan struct{}, max(1, c.concurrency))
	var wg sync.WaitGroup

	log.Printf("consumer started queue=%s concurrency=%d visibility=%ds", c.queueURL, c.concurrency, c.visibility)

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(c.visibility),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			log.Printf("receive message: %v", err)
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			metrics.IncReminderJob("received")
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				handleMessage(ctx, c.client, c.queueURL, c.proc, m)
			}(msg)
		}
	}

	log.Printf("shutdown requested, waiting up to %s for in-flight reminders", c.shutdownTimeout)
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(c.shutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight reminders")
	}
}

func handleMessage(ctx context.Context, client sqsAPI, queueURL string, proc workerproc.Processor, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, decoded.DocumentID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.reminder.invalid", fields)
		if workerproc.Unrecoverable(err) && deleteMessage(ctx, client, queueURL, msg, decoded.DocumentID) {
			metrics.IncReminderJob("deleted_unrecoverable")
		}
		return
	}

	telemetry.Info("worker.reminder.received", baseFields(msg, decoded.DocumentID))

	if err := workerproc.HandleMessage(workerproc.WithParsedMessage(ctx, decoded), proc, body); err != nil {
		fields := baseFields(msg, decoded.DocumentID)
		fields["error"] = err.Error()
		telemetry.Error("worker.reminder.failed", fields)
		metrics.IncReminderJob("failed")
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, decoded.DocumentID) {
		telemetry.Info("worker.reminder.completed", baseFields(msg, decoded.DocumentID))
		metrics.IncReminderJob("completed")
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, documentID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, documentID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.reminder.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, documentID)
		fields["error"] = err.Error()
		telemetry.Error("worker.reminder.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, documentID string) map[string]any {
	return map[string]any{
		"document_id":    documentID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(msg.Attributes["ApproximateReceiveCount"]))
	if err != nil {
		return 0
	}
	return parsed
}
