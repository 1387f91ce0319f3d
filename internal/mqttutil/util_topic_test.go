package mqttutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishTopicValidation(t *testing.T) {
	tests := []struct {
		topic string
		valid bool
	}{
		{"sensors/kitchen", true},
		{"sensors//kitchen", true},
		{"/", true},
		{"sensors/ /kitchen", true},
		{"sensors/+", false},
		{"sensors/temp+", false},
		{"#", false},
		{"sensors/#", false},
		{"", false},
		{"a\x00b", false},
		{"\xff\xfe", false},
		{strings.Repeat("a", 65536), false},
	}

	for _, tt := range tests {
		err := ValidatePublishTopic(tt.topic)
		if tt.valid {
			assert.NoError(t, err, "topic %q", tt.topic)
		} else {
			assert.ErrorIs(t, err, ErrInvalidTopic, "topic %q", tt.topic)
		}
	}
}

func TestSubscribeTopicValidation(t *testing.T) {
	tests := []struct {
		filter string
		valid  bool
	}{
		{"sensors/kitchen", true},
		{"sensors/+/temperature", true},
		{"+", true},
		{"+/+/+", true},
		{"#", true},
		{"/#", true},
		{"sensors/+/#", true},
		{"sensors//#", true},
		{"sensors+/kitchen", false},
		{"sensors/+kitchen", false},
		{"sensors/#/kitchen", false},
		{"sensors/kitchen#", false},
		{"#/sensors", false},
		{"", false},
		{"a/\x00", false},
	}

	for _, tt := range tests {
		err := ValidateSubscribeTopic(tt.filter)
		if tt.valid {
			assert.NoError(t, err, "filter %q", tt.filter)
		} else {
			assert.ErrorIs(t, err, ErrInvalidTopic, "filter %q", tt.filter)
		}
	}
}

func TestEmptyTopicErrors(t *testing.T) {
	assert.ErrorIs(t, ValidatePublishTopic(""), ErrEmptyPublishTopic)
	assert.ErrorIs(t, ValidateSubscribeTopic(""), ErrEmptySubscriptionTopic)
}
