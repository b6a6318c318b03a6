package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"interviewer/pkg/catalog"
	"interviewer/pkg/httpapi"
	"interviewer/pkg/interview"
	oraclemetrics "interviewer/pkg/oracle/middleware/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interview in the terminal",
	Long: `Conducts an interview interactively: questions print to the terminal and
answers are read from stdin. Every step is checkpointed, so quitting (or
crashing) mid-interview loses nothing on a durable store backend; rerun with
--session to pick up at the open question.

Type /end to finish early with feedback, /quit to pause.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		sessionID, _ := cmd.Flags().GetString("session")
		topicsPath, _ := cmd.Flags().GetString("topics")

		a, err := newApp(configPath, oraclemetrics.Nop())
		if err != nil {
			return err
		}
		defer a.Close()

		if topicsPath != "" {
			topics, err := catalog.Load(topicsPath)
			if err != nil {
				return fmt.Errorf("load topics: %w", err)
			}
			a.topics = topics
		}

		return runConsole(cmd.Context(), a, sessionID)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("session", "", "Resume an existing session by ID")
	runCmd.Flags().String("topics", "", "Topic catalog file (overrides config)")
}

func runConsole(ctx context.Context, a *app, sessionID string) error {
	render := newMarkdownRenderer()
	reader := bufio.NewReader(os.Stdin)

	var sess *interview.Session
	var err error
	if sessionID != "" {
		sess, err = a.engine.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Complete() {
			fmt.Println(render(sess.FinalFeedback()))
			return nil
		}
		fmt.Printf("Resuming session %s\n", sess.ID)
	} else {
		sess, err = a.engine.Start(ctx, a.topics, interview.Options{
			MaxIterationsPerTopic: a.cfg.Interview.MaxIterationsPerTopic,
			MaxJudgeRetries:       a.cfg.Interview.MaxJudgeRetries,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Session %s started. Type /end to finish early, /quit to pause.\n", sess.ID)
	}

	lastTopic := -1
	for !sess.Complete() {
		if sess.State.CurrentTopicIndex != lastTopic {
			lastTopic = sess.State.CurrentTopicIndex
			fmt.Printf("\n[Topic %d/%d] %s\n\n", lastTopic+1, len(sess.State.Topics), sess.State.CurrentTopic.Name)
		}
		fmt.Println(render(sess.Question()))
		fmt.Print("> ")

		line, readErr := reader.ReadString('\n')
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				fmt.Printf("\nSession %s is saved; resume it with --session.\n", sess.ID)
				return nil
			}
			return fmt.Errorf("read answer: %w", readErr)
		}
		answer := strings.TrimSpace(line)

		switch answer {
		case "/quit":
			fmt.Printf("Session %s is saved; resume it with --session.\n", sess.ID)
			return nil
		case "/end":
			sess, err = a.engine.ForceEnd(ctx, sess.ID)
			if err != nil {
				return err
			}
			continue
		}

		clean, sanErr := httpapi.SanitizeAnswer(answer)
		if sanErr != nil {
			fmt.Printf("Error: %v. Please try again.\n", sanErr)
			continue
		}

		sess, err = a.engine.Resume(ctx, sess.ID, interview.Patch{Answer: clean})
		if err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Println(render(sess.FinalFeedback()))
	fmt.Printf("\nSession %s complete. Tokens used: %d\n", sess.ID, sess.State.TotalTokens)
	return nil
}

// newMarkdownRenderer returns a glamour renderer when stdout is a terminal,
// and a passthrough otherwise so piped output stays plain.
func newMarkdownRenderer() func(string) string {
	passthrough := func(s string) string { return s }
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return passthrough
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return passthrough
	}
	return func(s string) string {
		out, renderErr := r.Render(s)
		if renderErr != nil {
			return s
		}
		return strings.TrimSpace(out)
	}
}
