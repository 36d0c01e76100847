package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/teamhub-backend/pkg/config"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub ledger topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client wraps the Pub/Sub v2 client for a single project. Topic names may
// be given as short ids or as full resource names.
type Client struct {
	inner       *gcppubsub.Client
	project     string
	ledgerTopic string
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}

	inner, err := gcppubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{inner: inner, project: project, ledgerTopic: cfg.LedgerTopic}

	if err := c.Ping(ctx); err != nil {
		_ = inner.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", c.ledgerTopic), "pubsub client ready")
	}
	return c, nil
}

// Ping looks up the ledger topic. A missing topic is an error; topics are
// provisioned outside the service.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.inner == nil {
		return errNotInitialized
	}
	name := topicResourceName(c.project, c.ledgerTopic)
	if name == "" {
		return errNoTopic
	}

	_, err := c.inner.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %q does not exist", c.ledgerTopic)
	default:
		return fmt.Errorf("checking topic %q: %w", c.ledgerTopic, err)
	}
}

// Publisher returns nil when the client or topic name is unusable.
func (c *Client) Publisher(topic string) *gcppubsub.Publisher {
	if c == nil || c.inner == nil {
		return nil
	}
	if name := topicResourceName(c.project, topic); name != "" {
		return c.inner.Publisher(name)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

func topicResourceName(project, topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ""
	}
	if parts := strings.Split(topic, "/"); len(parts) == 4 && parts[0] == "projects" && parts[2] == "topics" {
		return topic
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return ""
	}
	return "projects/" + project + "/topics/" + topic
}
