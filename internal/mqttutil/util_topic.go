package mqttutil

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidTopic is wrapped by every topic validation error
var ErrInvalidTopic = errors.New("invalid topic")

var (
	ErrEmptyPublishTopic      = fmt.Errorf("%w: empty publish topics are not allowed", ErrInvalidTopic)
	ErrEmptySubscriptionTopic = fmt.Errorf("%w: empty subscription topics are not allowed", ErrInvalidTopic)
)

const maxTopicLength = 65535

func validateTopicString(topic string) error {
	if len(topic) > maxTopicLength {
		return fmt.Errorf("%w: length %d exceeds %d", ErrInvalidTopic, len(topic), maxTopicLength)
	}
	if !utf8.ValidString(topic) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidTopic)
	}
	if strings.ContainsRune(topic, 0) {
		return fmt.Errorf("%w: contains U+0000", ErrInvalidTopic)
	}
	return nil
}

// ValidatePublishTopic checks a topic name used for publishing.
// Wildcards are not allowed.
func ValidatePublishTopic(topic string) error {
	if len(topic) == 0 {
		return ErrEmptyPublishTopic
	}
	if err := validateTopicString(topic); err != nil {
		return err
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcard in topic name %q", ErrInvalidTopic, topic)
	}
	return nil
}

// ValidateSubscribeTopic checks a topic filter. + must occupy a whole
// level, # a whole level and be the last one.
func ValidateSubscribeTopic(topic string) error {
	if len(topic) == 0 {
		return ErrEmptySubscriptionTopic
	}
	if err := validateTopicString(topic); err != nil {
		return err
	}

	levels := strings.Split(topic, "/")
	for i, level := range levels {
		switch {
		case level == "+":
		case level == "#":
			if i != len(levels)-1 {
				return fmt.Errorf("%w: # must be the last level in %q", ErrInvalidTopic, topic)
			}
		case strings.ContainsAny(level, "+#"):
			return fmt.Errorf("%w: wildcard inside level %q", ErrInvalidTopic, level)
		}
	}
	return nil
}
