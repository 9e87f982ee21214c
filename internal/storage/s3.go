// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage publishes exported email HTML to S3-compatible object
// storage. It wraps the AWS SDK v2 and is configured for path-style access
// (required by CEPH/Hetzner and MinIO).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const htmlContentType = "text/html; charset=utf-8"

// Options configures a Client.
type Options struct {
	Endpoint   string
	Region     string
	AccessKey  string
	SecretKey  string
	Bucket     string
	PublicURL  string        // optional CDN/direct URL; presigned URLs are used otherwise
	PresignTTL time.Duration // lifetime of presigned links
}

// Client uploads exports to a single bucket.
type Client struct {
	s3         *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	publicURL  string
	presignTTL time.Duration
}

// New creates a storage client with path-style addressing. Returns
// (nil, nil) if endpoint or credentials are empty, allowing the app to
// start without publishing.
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" || opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, nil
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = time.Hour
	}

	s3Client := s3.New(s3.Options{
		Region:       opts.Region,
		BaseEndpoint: aws.String(strings.TrimRight(opts.Endpoint, "/")),
		Credentials:  credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:         s3Client,
		presigner:  s3.NewPresignClient(s3Client),
		bucket:     opts.Bucket,
		publicURL:  strings.TrimRight(opts.PublicURL, "/"),
		presignTTL: opts.PresignTTL,
	}, nil
}

// ExportKey is the object key of a version's compiled HTML.
func ExportKey(templateID, versionID, filename string) string {
	return fmt.Sprintf("exports/%s/%s/%s", templateID, versionID, filename)
}

// Upload stores html under key.
func (c *Client) Upload(ctx context.Context, key string, html []byte) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(html),
		ContentLength: aws.Int64(int64(len(html))),
		ContentType:   aws.String(htmlContentType),
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// URL returns a shareable link to key: the public URL when configured,
// otherwise a presigned GET valid for the configured TTL.
func (c *Client) URL(ctx context.Context, key string) (string, error) {
	if c.publicURL != "" {
		return c.publicURL + "/" + key, nil
	}
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.presignTTL))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s/%s: %w", c.bucket, key, err)
	}
	return req.URL, nil
}

// Publish uploads html and returns a link to it.
func (c *Client) Publish(ctx context.Context, key string, html []byte) (string, error) {
	if err := c.Upload(ctx, key, html); err != nil {
		return "", err
	}
	return c.URL(ctx, key)
}
