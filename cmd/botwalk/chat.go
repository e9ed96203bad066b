package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/botwalk/botwalk"
	"github.com/botwalk/botwalk/pkg/adapters/httpcall"
	"github.com/botwalk/botwalk/pkg/adapters/memory"
	"github.com/botwalk/botwalk/pkg/domain"
	"github.com/botwalk/botwalk/pkg/flowfile"
)

var chatCmd = &cobra.Command{
	Use:   "chat <flow file>",
	Short: "Run a flow interactively in the terminal",
	Long:  `Loads a flow file and plays one conversation instance on stdin/stdout. Type a trigger keyword to start; exit or quit to leave.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runChat(args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// consoleMessenger renders outbound messages to the terminal. Markdown goes
// through glamour; system notices print dimmed.
type consoleMessenger struct {
	render func(string) (string, error)
	dim    func(string) string
}

func newConsoleMessenger() *consoleMessenger {
	r, _ := glamour.NewTermRenderer(glamour.WithAutoStyle())
	p := termenv.ColorProfile()
	return &consoleMessenger{
		render: func(md string) (string, error) { return r.Render(md) },
		dim: func(s string) string {
			return termenv.String(s).Foreground(p.Color("#9ca3af")).String()
		},
	}
}

func (c *consoleMessenger) Send(ctx context.Context, msg domain.OutboundMessage) error {
	if msg.System {
		fmt.Println(c.dim("· " + msg.Text))
		return nil
	}
	if out, err := c.render(msg.Text); err == nil {
		fmt.Print(out)
	} else {
		fmt.Println(msg.Text)
	}
	for _, opt := range msg.Options {
		fmt.Printf("  [%s] %s\n", opt.ID, opt.Title)
	}
	if msg.Button != nil {
		fmt.Printf("  [%s] -> %s\n", msg.Button.ButtonLabel, msg.Button.URL)
	}
	return nil
}

func runChat(path string) error {
	flow, err := flowfile.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load flow: %w", err)
	}

	out := newConsoleMessenger()
	scheduler := memory.NewScheduler(func(ctx context.Context, step domain.ScheduledStep) error {
		return out.Send(ctx, domain.OutboundMessage{
			InstanceID: step.InstanceID,
			NodeID:     step.NodeID,
			Text:       step.Content,
		})
	})
	defer scheduler.Cancel(context.Background(), "chat")

	bot, err := botwalk.New(flow, out,
		botwalk.WithCaller(httpcall.New()),
		botwalk.WithScheduler(scheduler),
	)
	if err != nil {
		return err
	}

	fmt.Printf("Chatting with flow %q. Type a trigger keyword to start.\n", flow.ID)

	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)
	var state *domain.ExecutionState

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		input := strings.TrimSpace(line)
		if input == "exit" || input == "quit" {
			fmt.Println("Bye!")
			return nil
		}
		if input == "" {
			continue
		}

		if state == nil || state.Status.Terminal() {
			state, err = bot.Trigger(ctx, "chat", input, botwalk.TriggerOptions{})
			if errors.Is(err, domain.ErrNoTriggerMatch) {
				continue
			}
		} else {
			state, err = bot.Resume(ctx, "chat", input, botwalk.ResumeOptions{OptionID: matchOption(flow, state, input)})
		}
		if err != nil {
			return err
		}

		if state.Status.Terminal() {
			fmt.Printf("Conversation %s.\n", state.Status)
			state = nil
			// A fresh trigger starts a new instance under the same id.
			if err := bot.Sessions().Delete(ctx, "chat"); err != nil {
				return err
			}
		}
	}
}

// matchOption maps typed input onto a question option id, by id or title,
// so terminal users can answer button questions by typing.
func matchOption(flow *domain.Flow, state *domain.ExecutionState, input string) string {
	node := flow.Node(state.CurrentNodeID)
	if node == nil || node.Kind != domain.KindQuestion || node.Question == nil {
		return ""
	}
	for _, opt := range node.Question.Options {
		if strings.EqualFold(opt.ID, input) || strings.EqualFold(opt.Title, input) {
			return opt.ID
		}
	}
	return ""
}
