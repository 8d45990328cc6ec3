// Package session holds the state shared by all clients of a broadcast.
//
// The state is split in two namespaces. VcsParams is the durable rendering
// state: it is sent to every client and to the recording pipeline.
// Interactions drives interactive features between live clients only.
// Exactly one role (the host) may write either namespace; everybody else
// holds a read-only replica replaced wholesale from the host's snapshots.
package session

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/dkeye/Rundown/internal/domain"
)

type ParamName string

// Composition params changed at runtime.
const (
	ParamRundownItems    ParamName = "rundown.items"
	ParamRundownPosition ParamName = "rundown.position"
	ParamGuestName       ParamName = "video.guestName"
	ParamShowPollResult  ParamName = "poll.showResult"
	ParamPollQuestion    ParamName = "poll.question"
	ParamPollYesVotes    ParamName = "poll.yesVotes"
	ParamPollNoVotes     ParamName = "poll.noVotes"
)

// KnownParams is the closed set of runtime params.
var KnownParams = []ParamName{
	ParamRundownItems,
	ParamRundownPosition,
	ParamGuestName,
	ParamShowPollResult,
	ParamPollQuestion,
	ParamPollYesVotes,
	ParamPollNoVotes,
}

// InteractionPollOpen toggles the viewers' voting panel.
const InteractionPollOpen = "pollOpen"

const DefaultPollQuestion = "Do you like coffee?"

// InitialParams are renderer defaults never changed at runtime.
var InitialParams = map[string]any{
	"textStyles.fontFamily":       "Teko",
	"textStyles.baseFontSize_pct": 125,
}

// DemoRundown seeds the host's rundown on start.
var DemoRundown = []string{
	"Introduction",
	"This Week's News",
	"Interview with Jane Doe",
	"Conclusion",
}

type Namespace string

const (
	NamespaceVcsParams    Namespace = "vcsParams"
	NamespaceInteractions Namespace = "interactions"
)

var (
	ErrReadOnly         = errors.New("session: document is read-only for this role")
	ErrUnknownNamespace = errors.New("session: unknown namespace")
	ErrUnknownParam     = errors.New("session: unknown param")
)

// Params maps composition param names to values.
// Values are string, int/float64, bool or []string.
type Params map[ParamName]any

// Interactions maps interaction keys to values.
type Interactions map[string]any

// Document is the local copy of the shared session state.
// It is owned by a single event loop and is not safe for concurrent use.
type Document struct {
	VcsParams    Params
	Interactions Interactions

	writable bool
}

// New returns the fixed default snapshot. Only the authority role gets a
// writable document.
func New(role domain.Role) *Document {
	return &Document{
		VcsParams: Params{
			ParamRundownItems:    []string{},
			ParamRundownPosition: 0,
			ParamGuestName:       "",
			ParamShowPollResult:  false,
			ParamPollQuestion:    DefaultPollQuestion,
			ParamPollYesVotes:    0,
			ParamPollNoVotes:     0,
		},
		Interactions: Interactions{
			InteractionPollOpen: false,
		},
		writable: role.IsAuthority(),
	}
}

func (d *Document) Writable() bool { return d.writable }

// Set writes value under namespace[key]. A replica document or an unknown
// namespace leaves the document untouched and reports why.
func (d *Document) Set(ns Namespace, key string, value any) error {
	if !d.writable {
		return ErrReadOnly
	}
	switch ns {
	case NamespaceVcsParams:
		if !isKnownParam(ParamName(key)) {
			return fmt.Errorf("%w: %s", ErrUnknownParam, key)
		}
		d.VcsParams[ParamName(key)] = value
	case NamespaceInteractions:
		d.Interactions[key] = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownNamespace, ns)
	}
	return nil
}

// ReplaceVcsParams swaps in a snapshot received from the authority.
// The authority never calls it on its own document.
func (d *Document) ReplaceVcsParams(p Params) {
	d.VcsParams = maps.Clone(p)
	if d.VcsParams == nil {
		d.VcsParams = Params{}
	}
}

// RundownItems returns the rundown in list form. Replicas hold the
// transport form (a comma-joined string) and get it split back for display.
func (d *Document) RundownItems() []string {
	switch v := d.VcsParams[ParamRundownItems].(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return strings.Split(v, ",")
	}
	return nil
}

func (d *Document) RundownPosition() int {
	return IntValue(d.VcsParams[ParamRundownPosition])
}

// CurrentItem is the rundown item at the current position, or "".
func (d *Document) CurrentItem() string {
	items := d.RundownItems()
	pos := d.RundownPosition()
	if pos < 0 || pos >= len(items) {
		return ""
	}
	return items[pos]
}

// NextPosition returns the position after an increment and whether it moved.
func (d *Document) NextPosition() (int, bool) {
	pos := d.RundownPosition()
	if pos >= len(d.RundownItems())-1 {
		return pos, false
	}
	return pos + 1, true
}

// PrevPosition returns the position after a decrement and whether it moved.
func (d *Document) PrevPosition() (int, bool) {
	pos := d.RundownPosition()
	if pos <= 0 {
		return pos, false
	}
	return pos - 1, true
}

func (d *Document) PollOpen() bool {
	open, _ := d.Interactions[InteractionPollOpen].(bool)
	return open
}

func (d *Document) ShowPollResult() bool {
	show, _ := d.VcsParams[ParamShowPollResult].(bool)
	return show
}

func (d *Document) PollQuestion() string {
	q, _ := d.VcsParams[ParamPollQuestion].(string)
	return q
}

// ParseRundownItems turns multi-line text into rundown items, skipping blank lines.
func ParseRundownItems(text string) []string {
	items := []string{}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		items = append(items, line)
	}
	return items
}

// IntValue reads a counter or index regardless of how it was decoded.
func IntValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	}
	return 0
}

func isKnownParam(name ParamName) bool {
	for _, p := range KnownParams {
		if p == name {
			return true
		}
	}
	return false
}
