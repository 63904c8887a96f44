package queue

import "encoding/json"

// Message is the batch cursor handed to the next invocation. It carries
// identifiers and the window position only; the query list is always read
// back from the datastore so a stale cursor cannot diverge from the run.
type Message struct {
	RunID           string   `json:"runId"`
	ProjectID       string   `json:"projectId"`
	Platforms       []string `json:"platforms"`
	Language        string   `json:"language"`
	BatchStartIndex int      `json:"batchStartIndex"`
	BatchSize       int      `json:"batchSize"`
	RequestID       string   `json:"requestId"`
	EnqueuedAt      string   `json:"enqueuedAt"`
	Version         int      `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
