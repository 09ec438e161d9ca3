/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package idpstore

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/angryss/idpstore/config"
	"github.com/angryss/idpstore/gateway"
	"github.com/angryss/idpstore/idp"
)

// Options configures Open. The zero value uses the default table
// configuration and the ambient AWS credential chain.
type Options struct {
	// Config is the table configuration. Zero means config.Default()
	// overlaid with the IDPSTORE_* environment variables.
	Config *config.Config

	// AccessKey and SecretKey select static credentials. Both empty means
	// the ambient chain (environment, instance profile, SSO). Credentials
	// are never read from the store's own config files.
	AccessKey string
	SecretKey string

	// Logger receives structured gateway logs. Nil discards everything.
	Logger *zap.Logger

	// Retry overrides the gateway's transient-failure retry policy.
	Retry *gateway.RetryPolicy
}

// Open builds a DynamoDB client and returns the typed store over it.
func Open(ctx context.Context, opts Options) (*idp.Store, error) {
	cfg := opts.Config
	if cfg == nil {
		c := config.FromEnv()
		cfg = &c
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if opts.AccessKey != "" || opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			// local DynamoDB or a test double behind HTTP
			o.BaseEndpoint = &cfg.Endpoint
		}
	})

	gwOpts := []gateway.Option{}
	if opts.Logger != nil {
		gwOpts = append(gwOpts, gateway.WithLogger(opts.Logger))
	}
	if opts.Retry != nil {
		gwOpts = append(gwOpts, gateway.WithRetryPolicy(*opts.Retry))
	}
	return idp.NewStore(gateway.New(client, *cfg, gwOpts...)), nil
}
