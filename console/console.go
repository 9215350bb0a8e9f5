// Package console is the terminal front end of the signup client.
//
// It reads one command per line, applies it to the page or the controller,
// and re-renders the page whenever the page changes, including changes made
// by requests completing in the background. Confirmation questions are asked
// on the same input stream.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nomis52/signup/app"
	"github.com/nomis52/signup/logging"
	"github.com/nomis52/signup/page"
)

const helpText = `Commands:
  list, refresh              reload the activities
  select <n|name>            choose the activity to sign up for
  email <address>            enter the email to sign up
  submit                     sign up with the current form
  signup <email> <n|name>    fill in the form and sign up
  remove <n>                 unregister the participant with control number n
  logs                       show recent diagnostics
  help                       show this help
  quit, exit                 leave
`

// Controller is the part of the client the console drives.
// *app.App satisfies it.
type Controller interface {
	LoadActivities(ctx context.Context)
	Submit(ctx context.Context) error
}

// Console runs the command loop.
type Console struct {
	page      *page.Page
	ctrl      Controller
	collector *logging.LogCollector
	logger    *slog.Logger

	lines chan string
	done  chan struct{}

	outMu sync.Mutex
	out   io.Writer
}

// Option configures a Console.
type Option func(*Console)

// WithCollector sets where the logs command reads diagnostics from.
func WithCollector(collector *logging.LogCollector) Option {
	return func(c *Console) {
		c.collector = collector
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) {
		c.logger = logger
	}
}

// New creates a Console reading commands from in and writing to out.
// Reading starts immediately so the console can also answer Confirm before
// Run is called.
func New(pg *page.Page, ctrl Controller, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		page:  pg,
		ctrl:  ctrl,
		out:   out,
		lines: make(chan string),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	go c.read(in)
	return c
}

func (c *Console) read(in io.Reader) {
	defer close(c.lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case c.lines <- scanner.Text():
		case <-c.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		c.logger.Error("failed to read input", "error", err)
	}
}

// Confirm asks prompt and waits for an answer. Only "y" and "yes" confirm.
// End of input declines.
func (c *Console) Confirm(prompt string) bool {
	c.printf("%s [y/N] ", prompt)
	select {
	case line, ok := <-c.lines:
		if !ok {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	case <-c.done:
		return false
	}
}

var _ app.Confirmer = (*Console)(nil)

// Render writes the page.
func (c *Console) Render() {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if err := c.page.Render(c.out); err != nil {
		c.logger.Error("failed to render page", "error", err)
	}
	fmt.Fprint(c.out, "> ")
}

// Run processes commands until quit, end of input or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	defer close(c.done)

	c.page.SetOnChange(c.Render)
	defer c.page.SetOnChange(nil)

	c.printf("Type help for a list of commands.\n")
	c.Render()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-c.lines:
			if !ok {
				return nil
			}
			if quit := c.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle runs one command line. It returns true when the user asked to quit.
func (c *Console) handle(ctx context.Context, line string) bool {
	cmd, args, _ := strings.Cut(strings.TrimLeft(line, " \t"), " ")
	switch strings.ToLower(cmd) {
	case "":
		c.Render()
	case "quit", "exit":
		return true
	case "help":
		c.printf("%s", helpText)
	case "list", "refresh":
		c.ctrl.LoadActivities(ctx)
	case "select":
		c.selectActivity(args)
	case "email":
		c.page.SetEmail(args)
	case "submit":
		c.submit(ctx)
	case "signup":
		email, activity, ok := strings.Cut(strings.TrimSpace(args), " ")
		if !ok {
			c.printf("Usage: signup <email> <n|name>\n")
			return false
		}
		if !c.selectActivity(activity) {
			return false
		}
		c.page.SetEmail(email)
		c.submit(ctx)
	case "remove":
		c.remove(args)
	case "logs":
		c.printLogs()
	default:
		c.printf("Unknown command %q. Type help for a list of commands.\n", cmd)
	}
	return false
}

// selectActivity selects by 1-based option number or by name.
func (c *Console) selectActivity(arg string) bool {
	arg = strings.TrimSpace(arg)
	name := arg
	if n, err := strconv.Atoi(arg); err == nil {
		options := c.page.Options()
		if n < 1 || n > len(options) {
			c.printf("No activity number %d.\n", n)
			return false
		}
		name = options[n-1]
	}
	if !c.page.Select(name) {
		c.printf("Unknown activity %q.\n", name)
		return false
	}
	return true
}

func (c *Console) submit(ctx context.Context) {
	err := c.ctrl.Submit(ctx)
	if errors.Is(err, app.ErrNoActivity) {
		c.printf("Please select an activity.\n")
		return
	}
	if err != nil {
		c.printf("Sign up failed: %v\n", err)
	}
}

// remove clicks the n-th removal control of the current render.
func (c *Console) remove(arg string) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	controls := c.page.Controls()
	if err != nil || n < 1 || n > len(controls) {
		c.printf("Usage: remove <n>, where n is a participant number from the list.\n")
		return
	}
	c.page.Click(controls[n-1])
}

func (c *Console) printLogs() {
	if c.collector == nil {
		c.printf("Diagnostics are not being collected.\n")
		return
	}
	entries := c.collector.GetLogs()
	if len(entries) == 0 {
		c.printf("No diagnostics.\n")
		return
	}

	c.outMu.Lock()
	defer c.outMu.Unlock()
	for _, e := range entries {
		fmt.Fprintf(c.out, "%s %-5s %s", e.Time.Format(time.TimeOnly), e.Level, e.Message)
		for _, k := range slices.Sorted(maps.Keys(e.Attributes)) {
			fmt.Fprintf(c.out, " %s=%v", k, e.Attributes[k])
		}
		fmt.Fprintln(c.out)
	}
}

func (c *Console) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
