package aws

import (
	"arena/src/lib"
	"arena/src/types"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

func GetSQSClient(ctx context.Context) (*sqs.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return sqs.NewFromConfig(cfg), nil
}

// SQSMailQueue hands mail to a queue consumed by a separate mail worker.
type SQSMailQueue struct {
	client   SQSAPI
	queueURL string
	from     string
}

func NewSQSMailQueue(client SQSAPI, queueURL, from string) *SQSMailQueue {
	return &SQSMailQueue{client: client, queueURL: queueURL, from: from}
}

func (q *SQSMailQueue) Send(in *lib.SendMailInput) error {
	from := in.From
	if from == "" {
		from = q.from
	}
	emailBody := types.JSONB{
		"from":      from,
		"from-name": in.FromName,
		"to":        in.To,
		"body":      in.Body,
		"html":      in.Html,
		"subject":   in.Subject,
	}
	body, err := json.Marshal(&emailBody)
	if err != nil {
		return err
	}
	if _, err := q.client.SendMessage(context.TODO(), &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	}); err != nil {
		return fmt.Errorf("error sending message to queue: %s", err.Error())
	}
	return nil
}
