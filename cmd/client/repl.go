package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/Rundown/internal/authority"
)

var errUnknownCommand = errors.New("unknown command")

const help = `commands:
  items A|B|C      replace the rundown
  next, prev       move through the rundown
  guest NAME       set the guest name
  question TEXT    set the poll question
  poll             open or close the poll
  result           show or hide the poll result
  record           start or stop the recording
  stream [URL]     start or stop the live stream
  vote yes|no      answer the open poll
  state            print the session state
  quit`

// runCommand applies one console line to the controller and returns the
// text to print.
func runCommand(c *authority.Controller, line string) (string, error) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "", "help":
		return help, nil
	case "items":
		var items []string
		for _, it := range strings.Split(arg, "|") {
			if it = strings.TrimSpace(it); it != "" {
				items = append(items, it)
			}
		}
		err := c.SetRundownItems(items)
		return describe(c), err
	case "next":
		err := c.NextItem()
		return describe(c), err
	case "prev":
		err := c.PrevItem()
		return describe(c), err
	case "guest":
		err := c.SetGuestName(arg)
		return describe(c), err
	case "question":
		err := c.SetPollQuestion(arg)
		return describe(c), err
	case "poll":
		open, err := c.TogglePollOpen()
		return fmt.Sprintf("poll open: %v", open), err
	case "result":
		show, err := c.TogglePollResult()
		return fmt.Sprintf("poll result shown: %v", show), err
	case "record":
		on, err := c.ToggleRecording()
		return fmt.Sprintf("recording: %v", on), err
	case "stream":
		if arg != "" {
			c.SetStreamingURL(arg)
		}
		on, err := c.ToggleLiveStreaming()
		return fmt.Sprintf("live streaming: %v", on), err
	case "vote":
		switch arg {
		case "yes", "no":
			return "vote sent", c.Vote(arg == "yes")
		}
		return "", fmt.Errorf("vote needs yes or no, got %q", arg)
	case "state":
		return describe(c), nil
	}
	return "", fmt.Errorf("%w: %s", errUnknownCommand, cmd)
}

func describe(c *authority.Controller) string {
	doc := c.Document()
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]\n", c.Role(), c.State())
	items := doc.RundownItems()
	for i, it := range items {
		marker := "  "
		if i == doc.RundownPosition() {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%s\n", marker, it)
	}
	slots := c.OrderedSlots()
	fmt.Fprintf(&b, "poll %q open=%v result=%v | slots %q", doc.PollQuestion(), doc.PollOpen(), doc.ShowPollResult(), slots[:])
	return b.String()
}
