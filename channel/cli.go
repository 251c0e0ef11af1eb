package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/tidehub/hubchat/bus"
	"github.com/tidehub/hubchat/logger"
	"github.com/tidehub/hubchat/timeline"
)

const (
	cliInputBufferSize = 10
	cliStopWaitTimeout = 500 * time.Millisecond
)

// NewCLIChannel creates a terminal channel. If stdin is a terminal, it
// returns the TUI channel; otherwise a plain scanner channel.
func NewCLIChannel() Channel {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return newTUIChannel()
	}
	return newPlainCLIChannel()
}

// plainCLIChannel reads lines with bufio.Scanner and prints timeline
// updates incrementally. Used for pipes and non-TTY sessions.
type plainCLIChannel struct {
	prompt    string
	stdin     io.Reader
	inputs    chan *Input
	done      chan struct{}
	turnDone  chan struct{}
	wg        sync.WaitGroup
	inputID   int64
	printer   *timelinePrinter
	stopOnce  sync.Once
	closeOnce sync.Once
}

func newPlainCLIChannel() *plainCLIChannel {
	return &plainCLIChannel{
		prompt:   "hubchat> ",
		stdin:    os.Stdin,
		inputs:   make(chan *Input, cliInputBufferSize),
		done:     make(chan struct{}),
		turnDone: make(chan struct{}, 1),
		printer:  newTimelinePrinter(os.Stdout),
	}
}

func (c *plainCLIChannel) Name() string { return "cli" }

func (c *plainCLIChannel) Start(ctx context.Context) error {
	logger.Info("cli channel started (plain mode)")

	c.wg.Add(1)
	go c.readInput(ctx)

	return nil
}

func (c *plainCLIChannel) Stop() error {
	c.stopOnce.Do(func() {
		close(c.done)

		waitDone := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(waitDone)
		}()

		select {
		case <-waitDone:
			c.closeInputs()
		case <-time.After(cliStopWaitTimeout):
			logger.Warn("cli channel stop timed out waiting for input loop")
		}

		logger.Info("cli channel stopped")
	})
	return nil
}

func (c *plainCLIChannel) Inputs() <-chan *Input { return c.inputs }

func (c *plainCLIChannel) Render(ev *bus.Event) {
	switch ev.Type {
	case bus.EventTimelineUpdated:
		c.printer.update(ev.Message)
	case bus.EventStreamDone:
		c.printer.update(ev.Message)
		c.printer.finish()
		c.signalTurnDone()
	case bus.EventStreamAborted:
		c.printer.finish()
		fmt.Println("(aborted)")
		c.signalTurnDone()
	case bus.EventStreamErrored:
		c.printer.update(ev.Message)
		c.printer.finish()
		if ev.Err != nil {
			fmt.Println("error:", ev.Err)
		}
		c.signalTurnDone()
	}
}

// AskUser presents a question group as a huh form and returns the answers
// keyed by question id.
func (c *plainCLIChannel) AskUser(_ context.Context, group *timeline.PendingQuestionGroup) (map[string]string, error) {
	answers := make(map[string]string, len(group.Questions))
	values := make([]*string, len(group.Questions))

	fields := make([]huh.Field, 0, len(group.Questions))
	for i, q := range group.Questions {
		values[i] = new(string)
		if len(q.Options) > 0 {
			options := make([]huh.Option[string], 0, len(q.Options))
			for _, opt := range q.Options {
				options = append(options, huh.NewOption(opt, opt))
			}
			fields = append(fields, huh.NewSelect[string]().
				Title(q.Prompt).
				Options(options...).
				Value(values[i]))
			continue
		}
		fields = append(fields, huh.NewInput().
			Title(q.Prompt).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("an answer is required")
				}
				return nil
			}).
			Value(values[i]))
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return nil, err
	}

	for i, q := range group.Questions {
		answers[q.ID] = *values[i]
	}
	return answers, nil
}

func (c *plainCLIChannel) Echo(string) {}

func (c *plainCLIChannel) Status(string, int) {}

func (c *plainCLIChannel) signalTurnDone() {
	select {
	case c.turnDone <- struct{}{}:
	default:
	}
}

// closeInputs closes the input channel exactly once, whether the read
// loop ended on its own (stdin EOF, a quit command) or Stop tore the
// channel down.
func (c *plainCLIChannel) closeInputs() {
	c.closeOnce.Do(func() { close(c.inputs) })
}

func (c *plainCLIChannel) readInput(ctx context.Context) {
	defer c.wg.Done()
	// EOF is the normal end of a piped session; without closing here
	// the consumer would wait on an input that can never come.
	defer c.closeInputs()

	scanner := bufio.NewScanner(c.stdin)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
			fmt.Print(c.prompt)

			if !scanner.Scan() {
				return
			}

			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}

			if text == "exit" || text == "quit" || text == "/exit" || text == "/quit" {
				fmt.Println("Goodbye!")
				return
			}

			c.inputID++
			input := &Input{ID: fmt.Sprintf("cli-%d", c.inputID), Text: text}

			select {
			case <-c.turnDone:
			default:
			}

			select {
			case c.inputs <- input:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}

			// Wait for the turn to finish before prompting again.
			select {
			case <-c.turnDone:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}
