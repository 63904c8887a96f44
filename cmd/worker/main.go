package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"georepute-backend/internal/projects"
	"georepute-backend/internal/queue"
	"georepute-backend/internal/runs"
	"georepute-backend/internal/shared/config"
	"georepute-backend/internal/shared/storage/db"
	"georepute-backend/internal/shared/telemetry"
)

const (
	defaultRegion             = "us-east-1"
	defaultVisibilitySeconds  = 1200
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
)

func main() {
	cfg := config.Load()

	queueURL := strings.TrimSpace(cfg.ChainQueueURL)
	if queueURL == "" {
		log.Fatal("GR_SQS_QUEUE_URL is required")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	visibilitySeconds := envInt("GR_SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)
	concurrency := envInt("GR_WORKER_CONCURRENCY", defaultWorkerConcurrency)
	shutdownTimeout := time.Duration(envInt("GR_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second

	region := strings.TrimSpace(os.Getenv("AWS_REGION"))
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	var sqsClient sqsAPI = sqs.NewFromConfig(awsCfg)

	svc, sqlDB, err := buildService(ctx, cfg)
	if err != nil {
		log.Fatalf("worker setup: %v", err)
	}
	defer sqlDB.Close()

	sem := make(chan struct{}, max(1, concurrency))
	var wg sync.WaitGroup

	log.Printf("worker started queue=%s concurrency=%d visibility=%ds", queueURL, concurrency, visibilitySeconds)

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(visibilitySeconds),
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
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				handleMessage(ctx, svc, sqsClient, queueURL, m)
			}(msg)
		}
	}

	log.Printf("shutdown requested, waiting up to %s for in-flight batches", shutdownTimeout)
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight batches")
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// buildService wires the batch service against Postgres and the chain queue.
func buildService(ctx context.Context, cfg config.Config) (*runs.Service, *sql.DB, error) {
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultWorkerOptions()))
	if err != nil {
		return nil, nil, err
	}

	queueClient, err := queue.NewSQSClient(ctx, cfg.ChainQueueURL)
	if err != nil {
		sqlDB.Close()
		return nil, nil, err
	}

	svc := runs.NewService(cfg,
		&runs.PGRepo{DB: sqlDB},
		&projects.PGRepo{DB: sqlDB},
		&runs.QueueChainer{Queue: queueClient},
	)
	return svc, sqlDB, nil
}

// handleMessage processes one batch cursor. Unrecoverable payloads are
// deleted; transient failures leave the message for redelivery, which is
// safe because persisted pairs are skipped on retry.
func handleMessage(ctx context.Context, svc *runs.Service, client sqsAPI, queueURL string, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	if strings.TrimSpace(body) == "" {
		telemetry.Error("worker.batch.empty_body", baseFields(msg, ""))
		deleteMessage(ctx, client, queueURL, msg, "")
		return
	}

	cursor, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		fields := baseFields(msg, "")
		fields["error"] = err.Error()
		telemetry.Error("worker.batch.decode_failed", fields)
		deleteMessage(ctx, client, queueURL, msg, "")
		return
	}
	if cursor.RunID == "" {
		telemetry.Error("worker.batch.missing_run_id", baseFields(msg, ""))
		deleteMessage(ctx, client, queueURL, msg, "")
		return
	}

	result, err := svc.ProcessBatch(ctx, cursor, true)
	if err != nil {
		if errors.Is(err, runs.ErrNotFound) {
			fields := baseFields(msg, cursor.RunID)
			fields["error"] = err.Error()
			telemetry.Error("worker.batch.run_missing", fields)
			deleteMessage(ctx, client, queueURL, msg, cursor.RunID)
			return
		}
		fields := baseFields(msg, cursor.RunID)
		fields["error"] = err.Error()
		telemetry.Error("worker.batch.failed", fields)
		return
	}

	fields := baseFields(msg, cursor.RunID)
	fields["processed"] = result.ProcessedQueries
	fields["has_more"] = result.HasMoreQueries
	telemetry.Info("worker.batch.processed", fields)
	deleteMessage(ctx, client, queueURL, msg, cursor.RunID)
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, runID string) {
	_, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		fields := baseFields(msg, runID)
		fields["error"] = err.Error()
		telemetry.Error("worker.batch.delete_failed", fields)
	}
}

func baseFields(msg sqstypes.Message, runID string) map[string]any {
	fields := map[string]any{
		"message_id": aws.ToString(msg.MessageId),
	}
	if count, ok := msg.Attributes["ApproximateReceiveCount"]; ok {
		fields["receive_count"] = count
	}
	if runID != "" {
		fields["run_id"] = runID
	}
	return fields
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
