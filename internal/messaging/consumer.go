package messaging

import (
	"encoding/json"
	"log/slog"
)

// LogTurns writes every received turn event to the structured log until the
// task channel is closed.
func LogTurns(receiver Reciever) {
	for task := range receiver.Tasks() {
		var event TurnEvent
		if err := json.Unmarshal(task.Payload(), &event); err != nil {
			slog.Error("error decoding turn event", "queue", task.Type(), "error", err)
			if err := task.Reject(); err != nil {
				slog.Error("error rejecting turn event", "error", err)
			}
			continue
		}

		slog.Info("chat turn", "session_id", event.SessionID, "seq", event.Seq, "role", event.Role, "failed", event.Failed, "chars", len(event.Content))

		if err := task.Ack(); err != nil {
			slog.Error("error acking turn event", "error", err)
		}
	}
}
