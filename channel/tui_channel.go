package channel

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tidehub/hubchat/bus"
	"github.com/tidehub/hubchat/channel/tui"
	"github.com/tidehub/hubchat/logger"
	"github.com/tidehub/hubchat/timeline"
)

const tuiInputBufferSize = 64

// TUIChannel implements the Channel interface using a bubbletea TUI.
type TUIChannel struct {
	app     *tui.App
	program *tea.Program
	inputs  chan *Input
	askCh   chan string
	asking  atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
	inputID atomic.Int64

	stopOnce sync.Once
}

func newTUIChannel() *TUIChannel {
	return &TUIChannel{
		inputs: make(chan *Input, tuiInputBufferSize),
		askCh:  make(chan string, 1),
		done:   make(chan struct{}),
	}
}

func (c *TUIChannel) Name() string { return "tui" }

func (c *TUIChannel) Start(ctx context.Context) error {
	c.app = tui.NewApp()
	c.program = tea.NewProgram(c.app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Redirect logger output to the TUI log panel.
	lw := &logWriter{program: c.program}
	logger.Intercept(lw)

	// Run bubbletea in a goroutine.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.program.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
		}
		// TUI exited — signal stop and trigger the command's shutdown.
		select {
		case <-c.done:
		default:
			close(c.done)
		}
		p, _ := os.FindProcess(os.Getpid())
		if p != nil {
			_ = p.Signal(syscall.SIGINT)
		}
	}()

	// Route user input either to the chat loop or, while a question group
	// is being answered, to the ask channel.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case text, ok := <-c.app.InputCh:
				if !ok {
					return
				}
				if c.asking.Load() {
					select {
					case c.askCh <- text:
					default:
					}
					continue
				}
				if text == "exit" || text == "quit" || text == "/exit" || text == "/quit" {
					c.program.Quit()
					return
				}
				id := c.inputID.Add(1)
				c.inputs <- &Input{ID: fmt.Sprintf("tui-%d", id), Text: text}
			}
		}
	}()

	logger.Info("cli channel started (TUI mode)")
	return nil
}

func (c *TUIChannel) Stop() error {
	c.stopOnce.Do(func() {
		close(c.done)
		if c.program != nil {
			c.program.Quit()
		}
		c.wg.Wait()
		logger.Restore()
		close(c.inputs)
		logger.Info("cli channel stopped")
	})
	return nil
}

func (c *TUIChannel) Inputs() <-chan *Input { return c.inputs }

func (c *TUIChannel) Render(ev *bus.Event) {
	if c.program == nil {
		return
	}
	switch ev.Type {
	case bus.EventTimelineUpdated:
		c.program.Send(tui.TimelineMsg{Message: ev.Message})
	case bus.EventStreamDone:
		c.program.Send(tui.TurnDoneMsg{Message: ev.Message})
	case bus.EventStreamAborted:
		c.program.Send(tui.TurnDoneMsg{Message: ev.Message, Aborted: true})
	case bus.EventStreamErrored:
		c.program.Send(tui.TurnDoneMsg{Message: ev.Message, Err: ev.Err})
	}
}

func (c *TUIChannel) Echo(text string) {
	if c.program != nil {
		c.program.Send(tui.UserEchoMsg{Text: text})
	}
}

func (c *TUIChannel) Status(conversationID string, contextTokens int) {
	if c.program != nil {
		c.program.Send(tui.StatusMsg{
			ConversationID: conversationID,
			ContextTokens:  contextTokens,
		})
	}
}

// AskUser collects one answer per question through the input panel.
func (c *TUIChannel) AskUser(ctx context.Context, group *timeline.PendingQuestionGroup) (map[string]string, error) {
	if c.program == nil {
		return nil, fmt.Errorf("tui not started")
	}

	c.asking.Store(true)
	defer c.asking.Store(false)

	answers := make(map[string]string, len(group.Questions))
	for _, q := range group.Questions {
		prompt := q.Prompt
		if len(q.Options) > 0 {
			prompt += " [" + strings.Join(q.Options, " / ") + "]"
		}
		c.program.Send(tui.PromptMsg{Prompt: prompt})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, fmt.Errorf("tui closed")
		case text := <-c.askCh:
			answers[q.ID] = strings.TrimSpace(text)
		}
	}
	return answers, nil
}

// logWriter implements io.Writer and sends each write as a LogLineMsg to the TUI.
type logWriter struct {
	program *tea.Program
}

func (w *logWriter) Write(p []byte) (int, error) {
	// Split on newlines in case a single write contains multiple lines.
	lines := bytes.Split(p, []byte("\n"))
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		w.program.Send(tui.LogLineMsg{Line: string(line)})
	}
	return len(p), nil
}
