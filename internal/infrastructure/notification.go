package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/yourusername/clip-extract-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService sends desktop notifications about clip downloads
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send sends a notification. A nil service is a no-op.
func (n *NotificationService) Send(title, message string) error {
	if n == nil || n.config == nil || !n.config.Enabled {
		return nil
	}

	var name string
	var args []string
	switch n.config.Method {
	case "osascript":
		name = "osascript"
		args = []string{"-e", fmt.Sprintf(`display notification "%s" with title "%s"`,
			escapeAppleScript(message), escapeAppleScript(title))}
	case "notify-send":
		name = "notify-send"
		args = []string{title, message}
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	n.logger.Debug("Sending notification", zap.String("command", ShellEscapeCommand(name, args...)))

	if err := n.run(name, args...); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", name),
			zap.Error(err))
		return err
	}
	return nil
}

// NotifyClipCompleted sends notification when a clip lands on disk
func (n *NotificationService) NotifyClipCompleted(clip *domain.Clip, bytes int64) {
	n.Send("Clip Downloaded", fmt.Sprintf("%s (%s, %d bytes)", truncateString(clip.Title, 40), clip.Game, bytes))
}

// NotifyClipFailed sends notification when a clip fails all attempts
func (n *NotificationService) NotifyClipFailed(clip *domain.Clip, err error) {
	n.Send("Clip Failed", fmt.Sprintf("%s: %s", truncateString(clip.Title, 40), domain.KindOf(err)))
}

// NotifyBatchFinished sends notification when a batch run ends
func (n *NotificationService) NotifyBatchFinished(succeeded, skipped, failed int) {
	n.Send("Batch Finished", fmt.Sprintf("%d downloaded, %d skipped, %d failed", succeeded, skipped, failed))
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
