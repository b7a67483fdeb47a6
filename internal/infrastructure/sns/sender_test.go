package sns

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	if out, _ := args.Get(0).(*sns.PublishOutput); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestSendCode_PublishesToTopic(t *testing.T) {
	p := &mockPublisher{}
	p.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.TopicArn) == "arn:aws:sns:us-east-1:000000000000:codes" &&
			aws.ToString(in.Message) == "Your code is: 004211" &&
			aws.ToString(in.MessageAttributes["email"].StringValue) == "a@x.com"
	})).Return(&sns.PublishOutput{MessageId: aws.String("m-1")}, nil)

	s := &CodeSender{client: p, topicARN: "arn:aws:sns:us-east-1:000000000000:codes"}
	require.NoError(t, s.SendCode(context.Background(), "a@x.com", "004211"))
	p.AssertExpectations(t)
}

func TestSendCode_Error(t *testing.T) {
	p := &mockPublisher{}
	p.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	s := &CodeSender{client: p, topicARN: "arn"}
	assert.Error(t, s.SendCode(context.Background(), "a@x.com", "1"))
}
