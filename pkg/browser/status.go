package browser

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome reported to the remote session.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// MaxReasonLength is the longest reason the provider accepts.
const MaxReasonLength = 255

const executorPrefix = "browserstack_executor: "

type executorCommand struct {
	Action    string         `json:"action"`
	Arguments executorStatus `json:"arguments"`
}

type executorStatus struct {
	Status Status `json:"status"`
	Reason string `json:"reason"`
}

// TruncateReason cuts a reason to MaxReasonLength runes.
func TruncateReason(reason string) string {
	r := []rune(reason)
	if len(r) <= MaxReasonLength {
		return reason
	}
	return string(r[:MaxReasonLength])
}

// statusPayload renders the in-band executor command for a status update.
func statusPayload(status Status, reason string) (string, error) {
	cmd := executorCommand{
		Action:    "setSessionStatus",
		Arguments: executorStatus{Status: status, Reason: TruncateReason(reason)},
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return "", fmt.Errorf("failed to encode status: %w", err)
	}
	return executorPrefix + string(data), nil
}

// sendStatus delivers the executor command through a no-op page script.
func sendStatus(page Page, status Status, reason string) error {
	payload, err := statusPayload(status, reason)
	if err != nil {
		return err
	}
	_, err = page.Evaluate("_ => {}", payload)
	return err
}
