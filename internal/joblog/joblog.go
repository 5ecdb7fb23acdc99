// Package joblog stores the plain text output of collector jobs.
package joblog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sink appends to and reads back one text log per job. A log that was never
// written reads as the empty string.
type Sink interface {
	Append(ctx context.Context, jobID, text string) error
	Read(ctx context.Context, jobID string) (string, error)
	Path(jobID string) string
	// Remove deletes a job's log. Removing a missing log is not an error.
	Remove(ctx context.Context, jobID string) error
}

func line(text string) string {
	if strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}

type FileSink struct {
	dir string
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Path(jobID string) string {
	return filepath.Join(s.dir, jobID+".log")
}

func (s *FileSink) Append(_ context.Context, jobID, text string) error {
	f, err := os.OpenFile(s.Path(jobID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open job log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line(text)); err != nil {
		return fmt.Errorf("write job log: %w", err)
	}
	return nil
}

func (s *FileSink) Read(_ context.Context, jobID string) (string, error) {
	data, err := os.ReadFile(s.Path(jobID))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read job log: %w", err)
	}
	return string(data), nil
}

func (s *FileSink) Remove(_ context.Context, jobID string) error {
	if err := os.Remove(s.Path(jobID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove job log: %w", err)
	}
	return nil
}

const redisKeyPrefix = "collector:joblog:"

// RedisSink keeps job logs as Redis strings that expire ttl after the last write.
type RedisSink struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSink(client *redis.Client, ttl time.Duration) *RedisSink {
	return &RedisSink{client: client, ttl: ttl}
}

func (s *RedisSink) Path(jobID string) string {
	return redisKeyPrefix + jobID
}

func (s *RedisSink) Append(ctx context.Context, jobID, text string) error {
	key := s.Path(jobID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Append(ctx, key, line(text))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append job log: %w", err)
	}
	return nil
}

func (s *RedisSink) Read(ctx context.Context, jobID string) (string, error) {
	text, err := s.client.Get(ctx, s.Path(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read job log: %w", err)
	}
	return text, nil
}

func (s *RedisSink) Remove(ctx context.Context, jobID string) error {
	if err := s.client.Del(ctx, s.Path(jobID)).Err(); err != nil {
		return fmt.Errorf("remove job log: %w", err)
	}
	return nil
}
