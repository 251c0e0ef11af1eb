package channel

import (
	"fmt"
	"io"
	"strings"

	"github.com/tidehub/hubchat/timeline"
)

const printerOutputPreview = 120

// timelinePrinter renders incremental timeline updates as plain text. It
// remembers what it already printed per item so re-observing the same
// message after every event only emits the delta.
type timelinePrinter struct {
	w          io.Writer
	printed    map[string]int  // text item id -> runes already written
	done       map[string]bool // item id -> completion line written
	announced  map[string]bool // item id -> first line written
	subCalls   map[string]int  // sub-agent item id -> nested calls written
	subPending map[string]int  // sub-agent item id -> pending call already announced
	atLineHead bool
}

func newTimelinePrinter(w io.Writer) *timelinePrinter {
	return &timelinePrinter{
		w:          w,
		printed:    make(map[string]int),
		done:       make(map[string]bool),
		announced:  make(map[string]bool),
		subCalls:   make(map[string]int),
		subPending: make(map[string]int),
		atLineHead: true,
	}
}

// update prints everything new since the last call.
func (p *timelinePrinter) update(msg *timeline.Message) {
	for _, it := range msg.Items {
		switch it.Kind {
		case timeline.KindText:
			p.printText(it)
		case timeline.KindTool:
			p.printTool(it)
		case timeline.KindReasoning:
			p.printReasoning(it)
		case timeline.KindSubAgent:
			p.printSubAgent(it)
		case timeline.KindAskUser:
			p.printAskUser(it)
		}
	}
}

// finish closes the current line after a message stops streaming.
func (p *timelinePrinter) finish() {
	p.breakLine()
	fmt.Fprintln(p.w)
	p.atLineHead = true
}

func (p *timelinePrinter) printText(it *timeline.ActivityItem) {
	runes := []rune(it.Content)
	already := p.printed[it.ID]
	if already >= len(runes) {
		return
	}
	fmt.Fprint(p.w, string(runes[already:]))
	p.printed[it.ID] = len(runes)
	p.atLineHead = strings.HasSuffix(it.Content, "\n")
}

func (p *timelinePrinter) printTool(it *timeline.ActivityItem) {
	if !p.announced[it.ID] {
		p.breakLine()
		fmt.Fprintf(p.w, "⚙ %s ...\n", it.Name)
		p.announced[it.ID] = true
	}
	if it.Completed && !p.done[it.ID] {
		p.breakLine()
		fmt.Fprintf(p.w, "⚙ %s → %s\n", it.Name, preview(it.Output))
		p.done[it.ID] = true
	}
}

func (p *timelinePrinter) printReasoning(it *timeline.ActivityItem) {
	if p.announced[it.ID] {
		return
	}
	p.breakLine()
	fmt.Fprintf(p.w, "· %s\n", preview(it.Content))
	p.announced[it.ID] = true
}

func (p *timelinePrinter) printSubAgent(it *timeline.ActivityItem) {
	if !p.announced[it.ID] {
		p.breakLine()
		fmt.Fprintf(p.w, "↳ %s started\n", it.AgentName)
		p.announced[it.ID] = true
	}
	for i := p.subCalls[it.ID]; i < len(it.ToolCalls); i++ {
		call := it.ToolCalls[i]
		if call.Output == "" && it.Running {
			if p.subPending[it.ID] <= i {
				p.breakLine()
				fmt.Fprintf(p.w, "↳ %s: %s ...\n", it.AgentName, call.Name)
				p.subPending[it.ID] = i + 1
			}
			break // output still pending; revisit on the next update
		}
		p.breakLine()
		marker := "→"
		if call.Failed {
			marker = "✗"
		}
		fmt.Fprintf(p.w, "↳ %s: %s %s %s\n", it.AgentName, call.Name, marker, preview(call.Output))
		p.subCalls[it.ID] = i + 1
	}
	if !it.Running && !p.done[it.ID] {
		p.breakLine()
		fmt.Fprintf(p.w, "↳ %s finished\n", it.AgentName)
		p.done[it.ID] = true
	}
}

func (p *timelinePrinter) printAskUser(it *timeline.ActivityItem) {
	if !p.announced[it.ID] {
		p.breakLine()
		fmt.Fprintf(p.w, "? question group %s (%d questions)\n", it.GroupID, len(it.Questions))
		p.announced[it.ID] = true
	}
	if it.Answered() && !p.done[it.ID] {
		p.breakLine()
		fmt.Fprintf(p.w, "? group %s answered\n", it.GroupID)
		p.done[it.ID] = true
	}
}

// breakLine ends an unterminated text line before a status line.
func (p *timelinePrinter) breakLine() {
	if !p.atLineHead {
		fmt.Fprintln(p.w)
		p.atLineHead = true
	}
}

func preview(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	runes := []rune(s)
	if len(runes) > printerOutputPreview {
		return string(runes[:printerOutputPreview]) + "…"
	}
	return s
}
