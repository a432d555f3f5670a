// Package commands parses in-chat command syntax and expands shorthand
// aliases. Syntax: !<name>[:<action>] <args...>. Text without the prefix can
// still fall back to a configured default command.
package commands

import (
	"regexp"
	"strings"

	"github.com/natterhub/natter/internal/config"
)

// mentionToken matches a leading platform mention such as "<@123456>",
// "<@!123456>" (Discord) or "@botname" (Telegram).
var mentionToken = regexp.MustCompile(`^<@!?\d+>|^@\S+`)

// Command is a parsed command invocation. Explicit is true when the text
// carried the command prefix, false when the default-command fallback
// matched.
type Command struct {
	Name     string
	Action   string
	Args     []string
	Explicit bool
}

// Resolver parses command syntax and resolves aliases. The alias table is
// loaded once at startup and read-only thereafter.
type Resolver struct {
	prefix         string
	defaultCommand string
	aliases        map[string]config.Alias
	allowFrom      map[string]struct{}
}

// NewResolver builds a resolver from config.
func NewResolver(cfg config.CommandsConfig) *Resolver {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "!"
	}
	allow := make(map[string]struct{}, len(cfg.AllowFrom))
	for _, id := range cfg.AllowFrom {
		allow[id] = struct{}{}
	}
	return &Resolver{
		prefix:         prefix,
		defaultCommand: cfg.DefaultCommand,
		aliases:        cfg.Aliases,
		allowFrom:      allow,
	}
}

// IsAllowed reports whether the sender may invoke prefixed commands. An
// empty authorization list allows everyone.
func (r *Resolver) IsAllowed(senderID string) bool {
	if len(r.allowFrom) == 0 {
		return true
	}
	_, ok := r.allowFrom[senderID]
	return ok
}

// ParseCommand parses text into a command. Prefixed text parses as
// !name[:action] args. Unprefixed text falls back to the default command if
// one is configured and non-empty text remains after stripping a leading
// mention token; otherwise returns ok=false.
func (r *Resolver) ParseCommand(text string) (Command, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Command{}, false
	}

	if strings.HasPrefix(trimmed, r.prefix) {
		body := strings.TrimPrefix(trimmed, r.prefix)
		fields := strings.Fields(body)
		if len(fields) == 0 {
			return Command{}, false
		}
		name, action, _ := strings.Cut(fields[0], ":")
		if name == "" {
			return Command{}, false
		}
		return Command{Name: name, Action: action, Args: fields[1:], Explicit: true}, true
	}

	if r.defaultCommand == "" {
		return Command{}, false
	}
	rest := strings.TrimSpace(mentionToken.ReplaceAllString(trimmed, ""))
	if rest == "" {
		return Command{}, false
	}
	return Command{Name: r.defaultCommand, Args: strings.Fields(rest)}, true
}

// ResolveAlias expands an alias to its command. An alias not present in the
// table resolves to itself.
func (r *Resolver) ResolveAlias(alias string) string {
	if a, ok := r.aliases[alias]; ok && a.Command != "" {
		return a.Command
	}
	return alias
}

// Describe returns the alias description, empty if unknown.
func (r *Resolver) Describe(alias string) string {
	return r.aliases[alias].Description
}

// ReconstructCommand resolves the alias and joins it with args using single
// spaces, reproducing the full command string.
func (r *Resolver) ReconstructCommand(alias string, args []string) string {
	parts := append([]string{r.ResolveAlias(alias)}, args...)
	return strings.Join(parts, " ")
}
