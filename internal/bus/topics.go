package bus

import (
	"fmt"
	"strings"
)

// POS events arrive under {prefix}/pos/..., assistant events leave under
// {prefix}/ai/.... Event "sale:created" maps to topic segment "sale/created".

func TopicInbound(prefix string) string {
	return fmt.Sprintf("%s/pos/#", prefix)
}

func TopicOutbound(prefix, event string) string {
	name := strings.TrimPrefix(event, "ai:")
	return fmt.Sprintf("%s/ai/%s", prefix, strings.ReplaceAll(name, ":", "/"))
}

// ParseEventName turns an inbound topic back into an event name.
// expected: {prefix}/pos/{ns}/{name}
func ParseEventName(topic, prefix string) (string, error) {
	parts := strings.Split(topic, "/")
	prefixParts := strings.Split(prefix, "/")
	if len(parts) < len(prefixParts)+2 {
		return "", fmt.Errorf("invalid topic: %s", topic)
	}
	for i, p := range prefixParts {
		if parts[i] != p {
			return "", fmt.Errorf("topic prefix mismatch: %s", topic)
		}
	}
	if parts[len(prefixParts)] != "pos" {
		return "", fmt.Errorf("invalid topic pattern: %s", topic)
	}
	return strings.Join(parts[len(prefixParts)+1:], ":"), nil
}
