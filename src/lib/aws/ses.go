package aws

import (
	"arena/src/lib"
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func GetSESClient(ctx context.Context) (*ses.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("Could not load default config: %s\n", err.Error())
		return nil, err
	}
	return ses.NewFromConfig(cfg), nil
}

// SESMailer delivers mail through the SES SendEmail API.
type SESMailer struct {
	client SESAPI
	from   string
}

func NewSESMailer(client SESAPI, from string) *SESMailer {
	return &SESMailer{client: client, from: from}
}

func (m *SESMailer) Send(in *lib.SendMailInput) error {
	from := in.From
	if from == "" {
		from = m.from
	}
	if in.FromName != "" {
		from = fmt.Sprintf("%s <%s>", in.FromName, from)
	}
	body := &types.Body{}
	content := &types.Content{Data: aws.String(in.Body), Charset: aws.String("UTF-8")}
	if in.Html {
		body.Html = content
	} else {
		body.Text = content
	}
	out, err := m.client.SendEmail(context.TODO(), &ses.SendEmailInput{
		Source:      aws.String(from),
		Destination: &types.Destination{ToAddresses: in.To},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(in.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	})
	if err != nil {
		return fmt.Errorf("ses: %w", err)
	}
	log.Printf("Sent email with id: %s\n", aws.ToString(out.MessageId))
	return nil
}
