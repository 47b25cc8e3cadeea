package notify

import "fmt"

const (
	textStarted   = "Recording started"
	textCancelled = "Recording discarded"
	textFailed    = "Recording failed"
)

func startedText(device string) string {
	if device == "" {
		return textStarted
	}
	return fmt.Sprintf("Recording: %s", device)
}

func pausedText(elapsed int) string {
	return fmt.Sprintf("Paused at %s", FormatElapsed(elapsed))
}

func resumedText(elapsed int) string {
	return fmt.Sprintf("Recording: %s", FormatElapsed(elapsed))
}

func stoppedText(elapsed int) string {
	return fmt.Sprintf("Recording stopped: %s", FormatElapsed(elapsed))
}

func failedText(reason string) string {
	if reason == "" {
		return textFailed
	}
	return reason
}

func progressText(percent int) string {
	return fmt.Sprintf("Uploading: %d%%", percent)
}

func submittedText(meetingID string) string {
	return fmt.Sprintf("Meeting %s created, processing", meetingID)
}

// FormatElapsed renders seconds as m:ss, or h:mm:ss past the hour mark.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := seconds % 3600 / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
