package sns

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-tasks-api/internal/config"
)

// publisher is the subset of the SNS client used here.
type publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// CodeSender publishes one-time codes to an SNS topic. A downstream
// subscriber (SES/Lambda) renders and delivers the email.
type CodeSender struct {
	client   publisher
	topicARN string
}

func NewCodeSender(cfg *config.Config) (*CodeSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.SNSRegion)}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		}
	})
	return &CodeSender{client: client, topicARN: cfg.SNSTopicARN}, nil
}

func (s *CodeSender) SendCode(ctx context.Context, email, code string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String("Your verification code"),
		Message:  aws.String("Your code is: " + code),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"email": {DataType: aws.String("String"), StringValue: aws.String(email)},
		},
	})
	return err
}
