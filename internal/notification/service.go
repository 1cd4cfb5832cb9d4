package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	userrepo "github.com/dgibisch/doit2-sub002/internal/user/repository"
	"github.com/dgibisch/doit2-sub002/pkg/fcm"
	"github.com/dgibisch/doit2-sub002/pkg/sse"
)

// Collaboration event types.
const (
	EventApplicationReceived = "application_received"
	EventMessageReceived     = "message_received"
	EventLocationShared      = "location_shared"
	EventTaskCompleted       = "task_completed"
	EventReviewReceived      = "review_received"
)

// Event is one collaboration event addressed to a single recipient.
type Event struct {
	Type   string                 `json:"type"`
	UserID string                 `json:"userId"`
	Data   map[string]interface{} `json:"data"`
}

// Publisher is what the usecases publish collaboration events through.
type Publisher interface {
	Publish(event Event)
}

// Service fans collaboration events out to the recipient's SSE stream and,
// when FCM is configured, to their registered devices. With a Pub/Sub topic
// configured, events take a round trip through the topic so several server
// instances share one event stream.
type Service struct {
	sseManager   *sse.Manager
	userRepo     userrepo.UserRepository
	fcmClient    *fcm.Client
	pubsubClient *pubsub.Client
	topic        *pubsub.Topic
	topicName    string
	subName      string
	events       chan Event
}

func NewService(sseManager *sse.Manager, userRepo userrepo.UserRepository, fcmClient *fcm.Client, projectID, topicName, credentialsFile string) (*Service, error) {
	s := &Service{
		sseManager: sseManager,
		userRepo:   userRepo,
		fcmClient:  fcmClient,
		events:     make(chan Event, 256),
	}

	if projectID != "" && topicName != "" {
		var opts []option.ClientOption
		if credentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(credentialsFile))
		}
		client, err := pubsub.NewClient(context.Background(), projectID, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		s.pubsubClient = client
		s.topic = client.Topic(topicName)
		s.topicName = topicName
		s.subName = topicName + "-sub" // Convention: topic-sub
	}

	return s, nil
}

// Close flushes pending publishes and releases the Pub/Sub resources.
// Safe to call when Pub/Sub is not configured.
func (s *Service) Close() {
	if s.topic != nil {
		s.topic.Stop()
	}
	if s.pubsubClient != nil {
		s.pubsubClient.Close()
	}
}

// Publish queues an event for delivery. Never blocks the calling flow.
func (s *Service) Publish(event Event) {
	if s.pubsubClient != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			log.Printf("[Events] failed to marshal event %s: %v", event.Type, err)
			return
		}
		res := s.topic.Publish(context.Background(), &pubsub.Message{Data: payload})
		go awaitEmit(res, event.Type)
		return
	}

	select {
	case s.events <- event:
	default:
		log.Printf("[Events] queue full, dropping event %s for user %s", event.Type, event.UserID)
	}
}

// publishResult is the awaitable side of a topic publish.
type publishResult interface {
	Get(ctx context.Context) (string, error)
}

func awaitEmit(res publishResult, eventType string) {
	if _, err := res.Get(context.Background()); err != nil {
		log.Printf("[Events] failed to emit event %s: %v", eventType, err)
	}
}

// Start runs the delivery loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	if s.pubsubClient == nil {
		log.Println("[Events] delivering collaboration events in-process")
		for {
			select {
			case event := <-s.events:
				s.deliver(ctx, event)
			case <-ctx.Done():
				return
			}
		}
	}

	log.Printf("[Events] delivering collaboration events via Pub/Sub topic %s", s.topicName)
	sub, err := s.ensureSubscription(ctx)
	if err != nil {
		log.Printf("[Events] %v", err)
		return
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("[Events] failed to unmarshal event: %v", err)
			msg.Ack()
			return
		}
		s.deliver(ctx, event)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[Events] error receiving events: %v", err)
	}
}

func (s *Service) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking subscription existence: %w", err)
	}
	if exists {
		return sub, nil
	}

	topicExists, err := s.topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking topic existence: %w", err)
	}
	if !topicExists {
		return nil, fmt.Errorf("pubsub topic %s does not exist", s.topicName)
	}

	sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       s.topic,
		AckDeadline: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	log.Printf("[Events] created subscription: %s", s.subName)
	return sub, nil
}

func (s *Service) deliver(ctx context.Context, event Event) {
	s.sseManager.SendToUser(event.UserID, event.Type, event.Data)

	if s.fcmClient == nil {
		return
	}

	profile, err := s.userRepo.FindByID(ctx, event.UserID)
	if err != nil {
		log.Printf("[Events] error loading profile for push to %s: %v", event.UserID, err)
		return
	}
	if profile == nil || len(profile.FCMTokens) == 0 {
		return
	}

	title, body := pushText(event)
	data := map[string]string{"type": event.Type}
	for k, v := range event.Data {
		if str, ok := v.(string); ok {
			data[k] = str
		}
	}

	failedTokens, err := s.fcmClient.SendToDevices(ctx, profile.FCMTokens, fcm.NotificationData{
		Title: title,
		Body:  body,
		Data:  data,
	})
	if err != nil {
		log.Printf("[Events] error sending push to %s: %v", event.UserID, err)
		return
	}

	// Prune tokens FCM rejected so we stop pushing into the void.
	if len(failedTokens) > 0 {
		remaining := make([]string, 0, len(profile.FCMTokens))
		for _, token := range profile.FCMTokens {
			dead := false
			for _, failed := range failedTokens {
				if token == failed {
					dead = true
					break
				}
			}
			if !dead {
				remaining = append(remaining, token)
			}
		}
		if err := s.userRepo.SetFCMTokens(ctx, event.UserID, remaining); err != nil {
			log.Printf("[Events] error pruning dead tokens for %s: %v", event.UserID, err)
		}
	}
}

func pushText(event Event) (title, body string) {
	taskTitle, _ := event.Data["taskTitle"].(string)
	switch event.Type {
	case EventApplicationReceived:
		return "New application", fmt.Sprintf("Someone applied for \"%s\"", taskTitle)
	case EventMessageReceived:
		return "New message", fmt.Sprintf("You have a new message about \"%s\"", taskTitle)
	case EventLocationShared:
		return "Location shared", fmt.Sprintf("The exact location of \"%s\" was shared with you", taskTitle)
	case EventTaskCompleted:
		return "Task completed", fmt.Sprintf("\"%s\" was marked as completed", taskTitle)
	case EventReviewReceived:
		return "New review", "You received a new review"
	default:
		return "DoIt", "You have a new notification"
	}
}
