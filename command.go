package subproc

import (
	"maps"
	"slices"
	"strings"
)

// Command is an ordered sequence of tokens (program plus arguments) with an
// optional ${name} substitution map and an optional environment. Commands
// are immutable once constructed; WithEnv and WithSubstitutions return
// modified copies, so a Command can be shared across executions and
// goroutines.
type Command struct {
	tokens []string
	subs   map[string]string
	env    map[string]string
}

// NewCommand builds a command from a program and its arguments.
// Panics if program is empty.
func NewCommand(program string, args ...string) *Command {
	requireNonEmpty("program", program)
	tokens := make([]string, 0, 1+len(args))
	tokens = append(tokens, program)
	tokens = append(tokens, args...)
	return &Command{tokens: tokens}
}

// WithEnv returns a copy of the command that runs with exactly the given
// environment variables. A nil map means the child inherits the parent's
// environment; a non-nil map replaces it entirely.
func (c *Command) WithEnv(env map[string]string) *Command {
	out := c.clone()
	out.env = maps.Clone(env)
	return out
}

// WithSubstitutions returns a copy of the command whose ${name} token
// references are expanded from subs. References without a mapping are left
// verbatim.
func (c *Command) WithSubstitutions(subs map[string]string) *Command {
	out := c.clone()
	out.subs = maps.Clone(subs)
	return out
}

// Program returns the first token with substitutions applied.
func (c *Command) Program() string {
	return expandToken(c.tokens[0], c.subs)
}

// Tokens returns the token list with substitutions applied.
func (c *Command) Tokens() []string {
	tokens := make([]string, len(c.tokens))
	for i, tok := range c.tokens {
		tokens[i] = expandToken(tok, c.subs)
	}
	return tokens
}

// Env returns a copy of the command's environment map, nil when the child
// inherits the parent's environment.
func (c *Command) Env() map[string]string {
	return maps.Clone(c.env)
}

// String renders the expanded tokens joined by spaces, for logs and error
// messages. It is not shell-quoted.
func (c *Command) String() string {
	return strings.Join(c.Tokens(), " ")
}

func (c *Command) clone() *Command {
	return &Command{
		tokens: slices.Clone(c.tokens),
		subs:   maps.Clone(c.subs),
		env:    maps.Clone(c.env),
	}
}

// expandToken replaces ${name} references in tok using subs. Only the
// braced form is recognized; unmatched references and stray "${" without a
// closing brace pass through unchanged.
func expandToken(tok string, subs map[string]string) string {
	if len(subs) == 0 || !strings.Contains(tok, "${") {
		return tok
	}
	var b strings.Builder
	for {
		start := strings.Index(tok, "${")
		if start < 0 {
			break
		}
		end := strings.Index(tok[start:], "}")
		if end < 0 {
			break
		}
		end += start
		name := tok[start+2 : end]
		b.WriteString(tok[:start])
		if val, ok := subs[name]; ok {
			b.WriteString(val)
		} else {
			b.WriteString(tok[start : end+1])
		}
		tok = tok[end+1:]
	}
	b.WriteString(tok)
	return b.String()
}
