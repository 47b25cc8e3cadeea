package app

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/cli"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/config"
)

func TestGatherMetadataUsesFlagsWithoutPrompting(t *testing.T) {
	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr, Stdin: strings.NewReader("")}

	date := time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
	parsed := cli.Parsed{
		Title:        "Sprint Planning",
		Participants: "alice@example.com, bob@example.com",
		Date:         date,
	}

	meta, err := runner.gatherMetadata(parsed, config.Default())
	require.NoError(t, err)
	require.Equal(t, "Sprint Planning", meta.Title)
	require.Equal(t, []string{"alice@example.com", "bob@example.com"}, meta.Participants)
	require.Equal(t, date, meta.Date)
	require.Empty(t, stderr.String())
}

func TestGatherMetadataPromptsForMissingFields(t *testing.T) {
	stdin := strings.NewReader("Team Sync\nalice@example.com bob@example.com\n\n")
	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr, Stdin: stdin}

	before := time.Now()
	meta, err := runner.gatherMetadata(cli.Parsed{}, config.Default())
	require.NoError(t, err)
	require.Equal(t, "Team Sync", meta.Title)
	require.Equal(t, []string{"alice@example.com", "bob@example.com"}, meta.Participants)
	require.False(t, meta.Date.Before(before))
	require.Contains(t, stderr.String(), "Title: ")
	require.Contains(t, stderr.String(), "Participants")
}

func TestGatherMetadataReasksForBlankTitle(t *testing.T) {
	stdin := strings.NewReader("\n   \nRetro\n")
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Stdin: stdin}

	parsed := cli.Parsed{Participants: "alice@example.com"}
	meta, err := runner.gatherMetadata(parsed, config.Default())
	require.NoError(t, err)
	require.Equal(t, "Retro", meta.Title)
}

func TestGatherMetadataSeedsConfigDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Submit.DefaultParticipants = []string{"pm@example.com"}

	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Stdin: strings.NewReader("")}
	meta, err := runner.gatherMetadata(cli.Parsed{Title: "Standup"}, cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"pm@example.com"}, meta.Participants)
}

func TestGatherMetadataWarnsOnInvalidFlagParticipants(t *testing.T) {
	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr, Stdin: strings.NewReader("")}

	parsed := cli.Parsed{Title: "Standup", Participants: "not-an-email alice@example.com"}
	meta, err := runner.gatherMetadata(parsed, config.Default())
	require.NoError(t, err)
	require.Equal(t, []string{"alice@example.com"}, meta.Participants)
	require.Contains(t, stderr.String(), "invalid email")
}

func TestGatherMetadataDeduplicatesConfigAndFlag(t *testing.T) {
	cfg := config.Default()
	cfg.Submit.DefaultParticipants = []string{"pm@example.com"}

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr, Stdin: strings.NewReader("")}

	parsed := cli.Parsed{Title: "Standup", Participants: "PM@example.com"}
	meta, err := runner.gatherMetadata(parsed, cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"pm@example.com"}, meta.Participants)
	require.Contains(t, stderr.String(), "duplicate email")
}

func TestGatherMetadataTitleEOFFails(t *testing.T) {
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Stdin: strings.NewReader("")}

	_, err := runner.gatherMetadata(cli.Parsed{}, config.Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "title is required")
}

func TestGatherMetadataParticipantsEOFWithNoneFails(t *testing.T) {
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Stdin: strings.NewReader("")}

	_, err := runner.gatherMetadata(cli.Parsed{Title: "Standup"}, config.Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least one participant")
}

func TestGatherMetadataEOFCommitsPendingParticipant(t *testing.T) {
	// Final line has no trailing newline; EOF should still commit it.
	stdin := strings.NewReader("alice@example.com")
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Stdin: stdin}

	meta, err := runner.gatherMetadata(cli.Parsed{Title: "Standup"}, config.Default())
	require.NoError(t, err)
	require.Equal(t, []string{"alice@example.com"}, meta.Participants)
}

func TestGatherMetadataPromptRejectsBadEntryAndContinues(t *testing.T) {
	stdin := strings.NewReader("nope\nalice@example.com\n\n")
	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr, Stdin: stdin}

	meta, err := runner.gatherMetadata(cli.Parsed{Title: "Standup"}, config.Default())
	require.NoError(t, err)
	require.Equal(t, []string{"alice@example.com"}, meta.Participants)
	require.Contains(t, stderr.String(), "invalid email")
}

func TestPrompterLine(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("hello world\r\n"), &out)

	line, err := p.line("Title: ")
	require.NoError(t, err)
	require.Equal(t, "hello world", line)
	require.Equal(t, "Title: ", out.String())
}
