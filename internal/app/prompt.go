package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BankaiXHunterr/meet-scribe-chat/internal/cli"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/config"
	"github.com/BankaiXHunterr/meet-scribe-chat/internal/participant"
)

// draftMetadata is the user-entered half of a submission draft.
type draftMetadata struct {
	Title        string
	Participants []string
	Date         time.Time
}

// gatherMetadata resolves title, participants, and date from flags, config
// defaults, and interactive prompts, in that order. Prompts write to
// stderr so stdout stays reserved for the meeting id.
func (r Runner) gatherMetadata(parsed cli.Parsed, cfg config.Config) (draftMetadata, error) {
	p := newPrompter(r.stdin(), r.Stderr)

	list := participant.NewList()
	for _, email := range cfg.Submit.DefaultParticipants {
		if err := list.AddToken(email); err != nil {
			fmt.Fprintf(r.Stderr, "warning: %v\n", err)
		}
	}
	for _, res := range list.AddText(parsed.Participants) {
		if res.Err != nil {
			fmt.Fprintf(r.Stderr, "warning: %v\n", res.Err)
		}
	}

	title := strings.TrimSpace(parsed.Title)
	for title == "" {
		line, err := p.line("Title: ")
		if err != nil {
			return draftMetadata{}, errors.New("title is required")
		}
		title = strings.TrimSpace(line)
	}

	if list.Len() == 0 {
		if err := r.promptParticipants(p, list); err != nil {
			return draftMetadata{}, err
		}
	}

	date := parsed.Date
	if date.IsZero() {
		date = time.Now()
	}

	return draftMetadata{Title: title, Participants: list.Emails(), Date: date}, nil
}

// promptParticipants collects emails line by line. An empty line finishes
// entry once the list is non-empty; EOF commits whatever was entered.
func (r Runner) promptParticipants(p *prompter, list *participant.List) error {
	fmt.Fprintln(r.Stderr, "Participants (emails separated by comma or space, empty line to finish):")
	for {
		line, err := p.line("> ")
		if err != nil {
			if list.Len() > 0 {
				return nil
			}
			return errors.New("at least one participant is required")
		}
		if strings.TrimSpace(line) == "" {
			if list.Len() > 0 {
				return nil
			}
			continue
		}
		for _, res := range list.AddText(line) {
			if res.Err != nil {
				fmt.Fprintf(r.Stderr, "warning: %v\n", res.Err)
			}
		}
	}
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// line prints the label and reads one input line. A final line without a
// trailing newline still counts; bare EOF is returned for the caller to
// translate.
func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		return "", err
	}
	return line, nil
}
