package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const DeadLetterSuffix = "-dlt"

// EventRegistry is the per-topic allow-list of event types. It is built once
// at startup and never mutated afterwards.
type EventRegistry struct {
	subscribes map[string]map[string]struct{}
	publishes  map[string]map[string]struct{}
}

func NewEventRegistry(cfg KafkaConfig) *EventRegistry {
	return &EventRegistry{
		subscribes: toSets(cfg.Subscribes),
		publishes:  toSets(cfg.Publishes),
	}
}

func toSets(lists []TopicEventsList) map[string]map[string]struct{} {
	sets := make(map[string]map[string]struct{}, len(lists))
	for _, l := range lists {
		set, ok := sets[l.Topic]
		if !ok {
			set = make(map[string]struct{}, len(l.Events))
			sets[l.Topic] = set
		}

		for _, e := range l.Events {
			set[e] = struct{}{}
		}
	}

	return sets
}

func (r *EventRegistry) Subscribed(topic, eventType string) bool {
	_, ok := r.subscribes[topic][eventType]
	return ok
}

func (r *EventRegistry) Publishes(topic, eventType string) bool {
	_, ok := r.publishes[topic][eventType]
	return ok
}

// SubscribedEvents returns the sorted allow-list for topic.
func (r *EventRegistry) SubscribedEvents(topic string) []string {
	return sortedKeys(r.subscribes[topic])
}

// SubscribedTopics returns the non dead-letter topics this service consumes.
func (r *EventRegistry) SubscribedTopics() []string {
	topics := make([]string, 0, len(r.subscribes))
	for t := range r.subscribes {
		if !IsDeadLetterTopic(t) {
			topics = append(topics, t)
		}
	}
	sort.Strings(topics)

	return topics
}

// DeadLetterTopics returns the dead-letter topics this service inspects.
func (r *EventRegistry) DeadLetterTopics() []string {
	topics := make([]string, 0)
	for t := range r.subscribes {
		if IsDeadLetterTopic(t) {
			topics = append(topics, t)
		}
	}
	sort.Strings(topics)

	return topics
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

func IsDeadLetterTopic(topic string) bool {
	return strings.HasSuffix(topic, DeadLetterSuffix)
}

func DeadLetterTopic(topic string) string {
	return topic + DeadLetterSuffix
}

// ValidateRegistry checks the subscriptions and publications against the
// declared topology and reports every violation at once.
func ValidateRegistry(cfg KafkaConfig, serviceName string) error {
	topics := make(map[string]struct{}, len(cfg.Topology.Topics))
	for _, t := range cfg.Topology.Topics {
		topics[t.Name] = struct{}{}
	}

	var errs []error

	serviceDefined := false
	for _, s := range cfg.Topology.Services {
		if s.Name == serviceName {
			serviceDefined = true
			break
		}
	}
	if !serviceDefined {
		errs = append(errs, fmt.Errorf("service %q is not declared in topology", serviceName))
	}

	for _, sub := range cfg.Subscribes {
		if strings.TrimSpace(sub.Topic) == "" {
			errs = append(errs, errors.New("subscription with blank topic name"))
			continue
		}
		if _, ok := topics[sub.Topic]; !ok {
			errs = append(errs, fmt.Errorf("subscribed topic %q is not declared in topology", sub.Topic))
		}
		if len(sub.Events) == 0 && !IsDeadLetterTopic(sub.Topic) {
			errs = append(errs, fmt.Errorf("subscribed topic %q has no events; dead-letter topics must end with %q", sub.Topic, DeadLetterSuffix))
		}
	}

	for _, pub := range cfg.Publishes {
		if strings.TrimSpace(pub.Topic) == "" {
			errs = append(errs, errors.New("publication with blank topic name"))
			continue
		}
		if _, ok := topics[pub.Topic]; !ok {
			errs = append(errs, fmt.Errorf("published topic %q is not declared in topology", pub.Topic))
		}
	}

	return errors.Join(errs...)
}
