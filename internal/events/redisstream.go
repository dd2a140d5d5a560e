package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"payrollctl/pkg/logging"
)

// DefaultStreamMaxLen caps the forwarded event stream.
const DefaultStreamMaxLen = 1000

// NewRedisStreamPublisher returns a watermill publisher that appends events
// to the Redis stream named after Topic.
func NewRedisStreamPublisher(client redis.UniversalClient) (message.Publisher, error) {
	pub, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client:        client,
			DefaultMaxlen: DefaultStreamMaxLen,
		},
		watermill.NewSlogLogger(logging.Logger()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis stream publisher: %w", err)
	}
	return pub, nil
}
