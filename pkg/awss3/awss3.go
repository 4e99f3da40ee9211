// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-extstore.
//
// go-extstore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package awss3 implements the external storage backend for AWS S3 and
// S3-compatible services such as MinIO.
package awss3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"path"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/time/rate"

	"github.com/jeremyhahn/go-extstore/pkg/adapters"
	"github.com/jeremyhahn/go-extstore/pkg/common"
)

// StorageType is the tag the backend registers under.
const StorageType = "AWSS3"

// S3 is the S3-compatible external storage backend. Sessions are plain
// values; SDK clients are built lazily per endpoint and credential handle
// and reused. Safe for concurrent use.
type S3 struct {
	resolver common.CredentialResolver
	opts     *Options
	logger   adapters.Logger
	limiter  *rate.Limiter
	http     *awshttp.BuildableClient

	mu      sync.Mutex
	clients map[string]*s3.Client
}

// New creates a new S3 backend. Credentials are looked up through resolver
// at request time. A nil opts uses DefaultOptions.
func New(resolver common.CredentialResolver, opts *Options) *S3 {
	o := opts.withDefaults()
	b := &S3{
		resolver: resolver,
		opts:     o,
		logger:   o.Logger.WithFields(adapters.F("backend", StorageType)),
		clients:  make(map[string]*s3.Client),
		http: awshttp.NewBuildableClient().
			WithTimeout(o.Timeout).
			WithDialerOptions(func(d *net.Dialer) {
				d.Timeout = o.DialTimeout
			}),
	}
	if o.RequestsPerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(o.RequestsPerSecond), o.Burst)
	}
	return b
}

// Type returns StorageType.
func (b *S3) Type() string {
	return StorageType
}

// Configure builds a session for bucket on host:port bound to the
// credentials behind handle. Empty host and zero port default to
// localhost:80. No network I/O is performed.
func (b *S3) Configure(endpointHost string, endpointPort int, bucket string, handle common.StorageHandle) (*common.Session, error) {
	return common.NewSession(StorageType, endpointHost, endpointPort, bucket, handle)
}

// Fetch downloads the object at locator.
func (b *S3) Fetch(ctx context.Context, locator common.ResourceLocator, session *common.Session) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	loc, client, err := b.prepare(ctx, locator, session)
	if err != nil {
		return nil, b.fail(ctx, "fetch", locator, err)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, b.fail(ctx, "fetch", locator, classify(err))
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, b.fail(ctx, "fetch", locator, classify(err))
	}

	b.logger.Debug(ctx, "object fetched",
		adapters.F("bucket", loc.Bucket),
		adapters.F("key", loc.Key),
		adapters.F("bytes", len(data)))
	return data, nil
}

// Store uploads payload to locator, replacing any existing object.
func (b *S3) Store(ctx context.Context, locator common.ResourceLocator, payload []byte, session *common.Session) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	loc, client, err := b.prepare(ctx, locator, session)
	if err != nil {
		return b.fail(ctx, "store", locator, err)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(loc.Bucket),
		Key:           aws.String(loc.Key),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
	}
	if ct := mime.TypeByExtension(path.Ext(loc.Key)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		return b.fail(ctx, "store", locator, classify(err))
	}

	b.logger.Debug(ctx, "object stored",
		adapters.F("bucket", loc.Bucket),
		adapters.F("key", loc.Key),
		adapters.F("bytes", len(payload)))
	return nil
}

// prepare resolves the locator, checks it can be addressed, waits for the
// rate limiter and returns the client for the target endpoint. Requests
// rejected before any I/O are checked against the endpoint first, so a
// dead host reports Unreachable ahead of address and credential errors.
func (b *S3) prepare(ctx context.Context, locator common.ResourceLocator, session *common.Session) (*common.Location, *s3.Client, error) {
	if session == nil {
		return nil, nil, common.ErrNotConfigured
	}
	loc, err := session.Resolve(locator)
	if err != nil {
		return nil, nil, err
	}

	if loc.Bucket == "" || loc.Key == "" {
		return nil, nil, b.reject(ctx, loc,
			fmt.Errorf("%w: %s has no bucket or key", common.ErrInvalidLocator, locator))
	}
	if err := common.ValidateKey(loc.Key); err != nil {
		return nil, nil, b.reject(ctx, loc, err)
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, nil, classify(err)
		}
	}

	client, err := b.client(ctx, loc.Endpoint(), session.Handle)
	if err != nil {
		return nil, nil, b.reject(ctx, loc, err)
	}
	return loc, client, nil
}

// reject returns err unless the endpoint of loc cannot be reached.
func (b *S3) reject(ctx context.Context, loc *common.Location, err error) error {
	if dialErr := b.dial(ctx, loc); dialErr != nil {
		return dialErr
	}
	return err
}

// dial checks that the endpoint of loc accepts connections.
func (b *S3) dial(ctx context.Context, loc *common.Location) error {
	if err := ctx.Err(); err != nil {
		return classify(err)
	}
	dialer := &net.Dialer{Timeout: b.opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", loc.HostPort())
	if err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrUnreachable, loc.Endpoint(), err)
	}
	_ = conn.Close()
	return nil
}

// client returns the cached SDK client for endpoint and handle, building
// one on first use.
func (b *S3) client(ctx context.Context, endpoint string, handle common.StorageHandle) (*s3.Client, error) {
	cfg, err := b.resolver.Lookup(handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrAuthFailed, err)
	}
	if cfg.StorageType != StorageType {
		return nil, fmt.Errorf("%w: handle %s is a %s config", common.ErrAuthFailed, handle, cfg.StorageType)
	}

	cacheKey := endpoint + "|" + handle.String()

	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.clients[cacheKey]; ok {
		return c, nil
	}

	region := cfg.Get("region")
	if region == "" {
		region = DefaultRegion
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithHTTPClient(b.http),
		config.WithCredentialsProvider(&credentialProvider{resolver: b.resolver, handle: handle}),
		config.WithRetryMaxAttempts(b.opts.MaxAttempts),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		// MinIO and most S3-compatible services need path-style addressing
		// and reject the streaming checksum trailers newer SDKs send.
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	b.clients[cacheKey] = c
	return c, nil
}

// fail logs a failed operation and returns err unchanged.
func (b *S3) fail(ctx context.Context, op string, locator common.ResourceLocator, err error) error {
	level := b.logger.Warn
	if errors.Is(err, common.ErrNotFound) || errors.Is(err, context.Canceled) {
		level = b.logger.Debug
	}
	level(ctx, op+" failed",
		adapters.F("locator", string(locator)),
		adapters.F("kind", common.Kind(err)),
		adapters.F("error", common.SanitizeErrorMessage(err)))
	return err
}

// credentialProvider resolves static credentials from the credential store
// on every retrieval, so the SDK never holds a stale copy of a config.
type credentialProvider struct {
	resolver common.CredentialResolver
	handle   common.StorageHandle
}

// Retrieve implements aws.CredentialsProvider.
func (p *credentialProvider) Retrieve(ctx context.Context) (aws.Credentials, error) {
	cfg, err := p.resolver.Lookup(p.handle)
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("%w: %w", common.ErrAuthFailed, err)
	}
	static := awscreds.NewStaticCredentialsProvider(cfg.Get("username"), cfg.Get("password"), cfg.Get("session_token"))
	creds, err := static.Retrieve(ctx)
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("%w: %s: %w", common.ErrAuthFailed, cfg.Name, err)
	}
	creds.Source = "extstore:" + cfg.Name
	return creds, nil
}
