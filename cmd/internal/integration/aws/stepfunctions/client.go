package stepfunctions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

// AWS caps execution names at 80 characters.
const maxExecutionName = 80

type StartExecutionAPI interface {
	StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
}

type Client struct {
	api StartExecutionAPI
}

func NewClient(ctx context.Context, region, endpoint string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	api := sfn.NewFromConfig(cfg, func(o *sfn.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &Client{api: api}, nil
}

func NewClientWithAPI(api StartExecutionAPI) *Client {
	return &Client{api: api}
}

// StartExecution starts stateMachineArn with input under name and returns the
// execution ARN reported by the service.
func (c *Client) StartExecution(ctx context.Context, stateMachineArn, input, name string) (string, error) {
	out, err := c.api.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(stateMachineArn),
		Input:           aws.String(input),
		Name:            aws.String(name),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			log.Errorf("step functions rejected %s: %s: %s", name, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return "", err
	}
	return aws.ToString(out.ExecutionArn), nil
}

// UniqueName returns prefix followed by a random suffix, trimmed to the
// service limit.
func UniqueName(prefix string) string {
	name := prefix + "_" + uuid.NewString()
	if len(name) > maxExecutionName {
		name = name[len(name)-maxExecutionName:]
	}
	return name
}

// ExecutionArn derives the ARN an execution named name will get on
// stateMachineArn.
func ExecutionArn(stateMachineArn, name string) string {
	return strings.Replace(stateMachineArn, ":stateMachine:", ":execution:", 1) + ":" + name
}
