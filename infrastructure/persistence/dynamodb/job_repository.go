// Package dynamodb stores job records in a DynamoDB table.
//
// Items use a single-table layout: PK = "JOB#<id>", SK = "JOB". The full job is
// kept as a JSON document in Data; Status and timestamps are duplicated as
// top-level attributes for console inspection and TTL expiry.
package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"
	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const jobSortKey = "JOB"

// API is the subset of the DynamoDB client the repository uses.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// ddbJobItem represents the structure of a job item in DynamoDB
type ddbJobItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Status    string `dynamodbav:"Status"`
	Data      string `dynamodbav:"Data"`
	CreatedAt string `dynamodbav:"CreatedAt"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
}

// JobRepository implements ports.JobRepository on DynamoDB
type JobRepository struct {
	client    API
	tableName string
	ttl       time.Duration
	logger    *zap.Logger
}

var _ ports.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a DynamoDB-backed job repository. A zero ttl disables item expiry.
func NewJobRepository(client API, tableName string, ttl time.Duration, logger *zap.Logger) *JobRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobRepository{
		client:    client,
		tableName: tableName,
		ttl:       ttl,
		logger:    logger,
	}
}

func jobKey(id audio.JobID) string {
	return "JOB#" + id.String()
}

// Save writes the job. A job that already reached a final state is never overwritten.
func (r *JobRepository) Save(ctx context.Context, job *audio.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return apperrors.NewInternal("failed to serialize job", err)
	}

	item := ddbJobItem{
		PK:        jobKey(job.ID),
		SK:        jobSortKey,
		Status:    string(job.Status),
		Data:      string(data),
		CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: job.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if r.ttl > 0 {
		item.TTL = job.UpdatedAt.Add(r.ttl).Unix()
	}

	itemMap, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewInternal("failed to marshal job item", err)
	}

	condition := expression.Name("PK").AttributeNotExists().
		Or(expression.Name("Status").Equal(expression.Value(string(audio.JobProcessing))))
	expr, err := expression.NewBuilder().WithCondition(condition).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      itemMap,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return apperrors.NewInternal("job already finished", audio.ErrJobFinished)
		}
		return fmt.Errorf("failed to save job: %w", err)
	}

	r.logger.Debug("Job saved",
		zap.String("jobID", job.ID.String()),
		zap.String("status", string(job.Status)),
	)
	return nil
}

// Get implements ports.JobRepository
func (r *JobRepository) Get(ctx context.Context, id audio.JobID) (*audio.Job, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: jobKey(id)},
			"SK": &types.AttributeValueMemberS{Value: jobSortKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if result.Item == nil {
		return nil, apperrors.NewNotFound("Job not found")
	}

	var item ddbJobItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, apperrors.NewInternal("failed to unmarshal job item", err)
	}

	var job audio.Job
	if err := json.Unmarshal([]byte(item.Data), &job); err != nil {
		return nil, apperrors.NewInternal("failed to deserialize job", err)
	}
	return &job, nil
}
