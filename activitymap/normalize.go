package activitymap

import (
	"context"
	"strings"
	"time"

	auth "github.com/goliatone/go-authsession"
)

const (
	// MetadataKeyOutcome stores whether the event reports a success or a failure.
	MetadataKeyOutcome = "outcome"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	ObjectTypePrincipal = "principal"
	ObjectTypeSession   = "session"
)

const (
	defaultChannel = "auth"
	defaultActorID = "anonymous"
)

// sessionEvents act on one refresh grant rather than on the account
var sessionEvents = map[auth.ActivityEventType]bool{
	auth.ActivityEventRefresh:        true,
	auth.ActivityEventRefreshFailure: true,
	auth.ActivityEventSessionEvicted: true,
	auth.ActivityEventLogout:         true,
}

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	actorFallback    string
	objectIDResolver func(auth.ActivityEvent) string
}

// Normalize converts an auth.ActivityEvent into a generic normalized shape.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	objectType, objectID := resolveObject(event, options.objectIDResolver)

	return Normalized{
		ActorID:    firstNonEmpty(strings.TrimSpace(event.PrincipalID), options.actorFallback),
		Verb:       string(event.EventType),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt.UTC(),
	}
}

// NewSink returns an auth.ActivitySink that normalizes every event and hands
// it to publish.
func NewSink(publish func(ctx context.Context, record Normalized) error, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		if publish == nil {
			return nil
		}
		return publish(ctx, Normalize(event, opts...))
	})
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithObjectIDResolver overrides object-id extraction from ActivityEvent.
func WithObjectIDResolver(resolver func(auth.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the actor id used for events without a principal.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func resolveObject(event auth.ActivityEvent, resolver func(auth.ActivityEvent) string) (string, string) {
	objectType := ObjectTypePrincipal
	objectID := strings.TrimSpace(event.PrincipalID)

	if sessionEvents[event.EventType] {
		objectType = ObjectTypeSession
		if jti, ok := event.Metadata["jti"].(string); ok {
			objectID = jti
		}
	}

	if resolver != nil {
		objectID = strings.TrimSpace(resolver(event))
	}
	return objectType, objectID
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	metadata := make(map[string]any, len(event.Metadata)+1)
	for key, value := range event.Metadata {
		metadata[key] = value
	}

	if _, exists := metadata[MetadataKeyOutcome]; !exists {
		metadata[MetadataKeyOutcome] = outcomeOf(event.EventType)
	}
	return metadata
}

func outcomeOf(eventType auth.ActivityEventType) string {
	if strings.HasSuffix(string(eventType), ".failure") {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
