package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/reglet-dev/hostbridge/bridge"
	"github.com/reglet-dev/hostbridge/domain/errors"
	"github.com/reglet-dev/hostbridge/domain/value"
	"github.com/reglet-dev/hostbridge/memhost"
	"github.com/spf13/cobra"
)

func newCallCmd(a *app) *cobra.Command {
	var (
		frames bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "call COMMAND [ARG...]",
		Short: "Run one host command and print the decoded reply",
		Example: `  bridgectl call PING
  bridgectl call --frames RPUSH list a b
  bridgectl call --json LRANGE list 0 -1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := s.module.Context(s.host.NewContext())
			v, callErr := ctx.Call(args[0], args[1:]...)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), args[0], v, callErr)
			}
			printResult(cmd.OutOrStdout(), v, callErr)
			if frames {
				printFrames(cmd.OutOrStdout(), s.host, ctx, v, callErr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as a JSON document")
	cmd.Flags().BoolVar(&frames, "frames", false, "Also send the result back as a reply and print the frames the host received")
	cmd.MarkFlagsMutuallyExclusive("json", "frames")
	return cmd
}

func newScriptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "script [FILE]",
		Short: "Run one host command per line against a single host",
		Long: `Run commands read from FILE, or standard input when FILE is "-" or
omitted. Arguments are separated by whitespace; double quotes group words.
Blank lines and lines starting with # are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open script: %w", err)
				}
				defer f.Close()
				in = f
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			return runScript(cmd.OutOrStdout(), in, s.module.Context(s.host.NewContext()))
		},
	}
}

func runScript(out io.Writer, in io.Reader, ctx *bridge.Context) error {
	scanner := bufio.NewScanner(in)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words, err := splitWords(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		fmt.Fprintf(out, "> %s\n", line)
		v, callErr := ctx.Call(words[0], words[1:]...)
		printResult(out, v, callErr)
	}
	return scanner.Err()
}

// splitWords splits on whitespace, keeping double-quoted runs together.
func splitWords(line string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		quoted  bool
		inWord  bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			inWord = true
		case !quoted && (r == ' ' || r == '\t'):
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if quoted {
		return nil, errors.Str("unterminated quote")
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}

func printResult(out io.Writer, v value.Value, err error) {
	if err != nil {
		fmt.Fprintf(out, "(error) %s\n", errors.Message(err))
		return
	}
	fmt.Fprintln(out, value.Format(v))
}

// callResult is the JSON form of one call.
type callResult struct {
	Value   any                 `json:"value"`
	Error   *errors.ErrorDetail `json:"error,omitempty"`
	Command string              `json:"command"`
}

func printJSON(out io.Writer, command string, v value.Value, err error) error {
	res := callResult{Command: command, Error: errors.ToErrorDetail(err)}
	if err == nil {
		res.Value = jsonValue(v)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(res); encErr != nil {
		return fmt.Errorf("encode result: %w", encErr)
	}
	return nil
}

// jsonValue maps a reply value onto the JSON data model. Nil becomes null.
func jsonValue(v value.Value) any {
	switch t := v.(type) {
	case value.Integer:
		return int64(t)
	case value.Float:
		return float64(t)
	case value.Array:
		items := make([]any, len(t))
		for i, e := range t {
			items[i] = jsonValue(e)
		}
		return items
	default:
		if s, ok := value.Text(v); ok {
			return s
		}
		return nil
	}
}

func printFrames(out io.Writer, host *memhost.Host, ctx *bridge.Context, v value.Value, err error) {
	status := ctx.Reply(v, err)
	fmt.Fprintf(out, "reply status: %s\n", status)
	for i, f := range host.Replies(ctx.Ptr()) {
		switch f.Kind {
		case memhost.FrameInteger, memhost.FrameArray:
			fmt.Fprintf(out, "%d. %s %d\n", i+1, f.Kind, f.Int)
		case memhost.FrameDouble:
			fmt.Fprintf(out, "%d. %s %g\n", i+1, f.Kind, f.Float)
		case memhost.FrameNull:
			fmt.Fprintf(out, "%d. %s\n", i+1, f.Kind)
		default:
			fmt.Fprintf(out, "%d. %s %q\n", i+1, f.Kind, f.Text)
		}
	}
}
