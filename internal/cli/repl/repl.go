package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultPrompt is printed before every line.
const DefaultPrompt = "kasb> "

// Executor runs one parsed command line.
type Executor func(ctx context.Context, args []string) error

// Option configures a REPL.
type Option func(*REPL)

// WithPrompt overrides DefaultPrompt.
func WithPrompt(prompt string) Option {
	return func(r *REPL) { r.prompt = prompt }
}

// WithHistory attaches a history store. Without it lines are not recorded.
func WithHistory(h *History) Option {
	return func(r *REPL) { r.history = h }
}

// WithCompleter enables suggestions for unknown commands.
func WithCompleter(c *Completer) Option {
	return func(r *REPL) { r.completer = c }
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     *bufio.Reader
	output    io.Writer
	exec      Executor
	prompt    string
	completer *Completer
	history   *History
}

// New creates a REPL reading lines from in.
func New(in io.Reader, out io.Writer, exec Executor, opts ...Option) *REPL {
	r := &REPL{
		input:  bufio.NewReader(in),
		output: out,
		exec:   exec,
		prompt: DefaultPrompt,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reader exposes the buffered input so commands run from the shell
// prompt on the same stream without losing buffered bytes.
func (r *REPL) Reader() *bufio.Reader {
	return r.input
}

// Run reads and executes lines until exit, EOF or ctx cancellation.
// Command errors are printed and do not end the loop.
func (r *REPL) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprint(r.output, r.prompt)
		line, err := r.input.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if line == "" {
			if eof {
				fmt.Fprintln(r.output)
				return nil
			}
			continue
		}

		if r.history != nil {
			r.history.Add(line)
		}

		stop, execErr := r.execute(ctx, line)
		if execErr != nil {
			fmt.Fprintf(r.output, "error: %v\n", execErr)
		}
		if stop || eof {
			return nil
		}
	}
}

// execute runs a single line and reports whether the loop should end.
func (r *REPL) execute(ctx context.Context, line string) (bool, error) {
	args, err := Split(line)
	if err != nil {
		return false, err
	}
	if len(args) == 0 {
		return false, nil
	}

	switch args[0] {
	case "exit", "quit":
		return true, nil
	case "history":
		r.printHistory()
		return false, nil
	}

	// Lines starting with a flag ("-o json whoami") go to the executor,
	// which knows which global flags take a value.
	if r.completer != nil && !strings.HasPrefix(args[0], "-") && !r.completer.Known(args[0]) {
		msg := fmt.Sprintf("unknown command %q", args[0])
		if s := r.completer.Suggest(args[0]); len(s) > 0 {
			msg += ", did you mean: " + strings.Join(s, ", ")
		}
		return false, errors.New(msg)
	}

	return false, r.exec(ctx, args)
}

func (r *REPL) printHistory() {
	if r.history == nil {
		return
	}
	for i, entry := range r.history.Entries() {
		fmt.Fprintf(r.output, "%4d  %s\n", i+1, entry)
	}
}

// Split breaks a line into words. Single quotes keep their content
// verbatim; inside double quotes and bare words a backslash escapes
// the next character.
func Split(line string) ([]string, error) {
	var (
		args    []string
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, c := range line {
		switch {
		case escaped:
			word.WriteRune(c)
			escaped = false
		case quote == '\'':
			if c == '\'' {
				quote = 0
			} else {
				word.WriteRune(c)
			}
		case c == '\\':
			escaped = true
			inWord = true
		case quote == '"':
			if c == '"' {
				quote = 0
			} else {
				word.WriteRune(c)
			}
		case c == '"' || c == '\'':
			quote = c
			inWord = true
		case c == ' ' || c == '\t':
			if inWord {
				args = append(args, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(c)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		args = append(args, word.String())
	}
	return args, nil
}
