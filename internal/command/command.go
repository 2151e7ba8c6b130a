package command

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"devotions.gg/internal/protocol"
)

var ErrUnknownCommand = errors.New("unknown command")

// Sender is whoever typed a command: an online player or the console.
type Sender interface {
	Name() string
	HasPermission(perm string) bool
	SendMessage(text string)
}

// Handler runs one named command. Run returns a protocol error code, or ""
// when the command succeeded. Corrective messages go to the sender.
type Handler interface {
	Run(s Sender, args []string) string
	Complete(s Sender, args []string) []string
}

// Registry maps lowercase command names to handlers.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

func (r *Registry) Register(name string, h Handler) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || strings.ContainsAny(name, " \t") {
		return fmt.Errorf("invalid command name %q", name)
	}
	if h == nil {
		return fmt.Errorf("command %q: nil handler", name)
	}
	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("command %q already registered", name)
	}
	r.handlers[name] = h
	return nil
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Dispatch parses line and runs the matching handler. Unknown commands tell
// the sender and return ErrUnknownCommand.
func (r *Registry) Dispatch(s Sender, line string) (string, error) {
	name, args := split(line)
	if name == "" {
		return protocol.ErrBadRequest, errors.New("empty command")
	}
	h := r.handlers[name]
	if h == nil {
		s.SendMessage("<red>Unknown command: " + name)
		return protocol.ErrUnknownCommand, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return h.Run(s, args), nil
}

// Complete suggests command names while the first word is being typed and
// defers to the handler afterwards. A trailing space starts a new argument.
func (r *Registry) Complete(s Sender, line string) []string {
	line = strings.TrimPrefix(strings.TrimLeft(line, " "), "/")
	fields := strings.Fields(line)
	if strings.HasSuffix(line, " ") || line == "" {
		fields = append(fields, "")
	}
	if len(fields) <= 1 {
		prefix := ""
		if len(fields) == 1 {
			prefix = fields[0]
		}
		return FilterPrefix(r.Names(), prefix)
	}
	h := r.handlers[strings.ToLower(fields[0])]
	if h == nil {
		return nil
	}
	return h.Complete(s, fields[1:])
}

// FilterPrefix keeps the candidates that start with prefix, ignoring case.
func FilterPrefix(candidates []string, prefix string) []string {
	prefix = strings.ToLower(prefix)
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), prefix) {
			out = append(out, c)
		}
	}
	return out
}

func split(line string) (string, []string) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "/")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

// Console is the server's own sender. It holds every permission and writes
// messages to the log.
type Console struct {
	Logger *log.Logger
}

func (Console) Name() string              { return "CONSOLE" }
func (Console) HasPermission(string) bool { return true }

func (c Console) SendMessage(text string) {
	if c.Logger != nil {
		c.Logger.Printf("console: %s", text)
	}
}
