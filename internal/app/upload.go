package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/audio"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/cli"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/config"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/notify"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/submit"
)

// commandUpload submits an existing audio file through the same draft
// path as a live recording. The payload goes out as-is; only WAV files
// can have their duration probed from the header.
func (r Runner) commandUpload(ctx context.Context, cfg config.Config, parsed cli.Parsed, logger *slog.Logger) int {
	mimeType, err := uploadMimeType(parsed.File)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	data, err := os.ReadFile(parsed.File)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: read recording: %v\n", err)
		return 1
	}
	if len(data) == 0 {
		fmt.Fprintf(r.Stderr, "error: recording file %q is empty\n", parsed.File)
		return 1
	}

	duration := parsed.Duration
	if mimeType == "audio/wav" {
		probed, probeErr := audio.ProbeWAVDuration(data)
		if probeErr != nil {
			logger.Warn("wav duration probe failed", "file", parsed.File, "error", probeErr)
		} else {
			duration = probed
		}
	}

	meta, err := r.gatherMetadata(parsed, cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	desktop := notify.NewDesktop(cfg.Notify, logger)
	draft := submit.Draft{
		Title:        meta.Title,
		Date:         meta.Date,
		Participants: meta.Participants,
		Payload:      data,
		MimeType:     mimeType,
		Filename:     filepath.Base(parsed.File),
		Duration:     duration,
	}

	return r.submitDraft(ctx, cfg, draft, desktop, logger, parsed.Watch)
}

// uploadMimeType maps an accepted audio extension to its upload MIME type.
func uploadMimeType(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav", nil
	case ".ogg":
		return "audio/ogg", nil
	case ".mp3":
		return "audio/mpeg", nil
	case ".webm":
		return "audio/webm", nil
	case ".m4a":
		return "audio/mp4", nil
	default:
		return "", fmt.Errorf("unsupported audio file %q (expected .wav, .ogg, .mp3, .webm, or .m4a)", path)
	}
}
