package filtergraph

import (
	"fmt"
	"strconv"
	"strings"
)

// Arg is one filter argument. An empty Key renders the value positionally.
type Arg struct {
	Key   string
	Value string
}

// Filter is a single named filter stage with ordered arguments.
type Filter struct {
	Name string
	Args []Arg
}

// Chain is a linear sequence of filters between labeled pads.
type Chain struct {
	Inputs  []string
	Filters []Filter
	Outputs []string
}

// Graph is the full filter graph: chains separated by ';'.
type Graph struct {
	Chains []Chain
}

// New builds a filter stage.
func New(name string, args ...Arg) Filter {
	return Filter{Name: name, Args: args}
}

// KV builds a key=value argument.
func KV(key string, value any) Arg {
	return Arg{Key: key, Value: FormatValue(value)}
}

// Pos builds a positional argument.
func Pos(value any) Arg {
	return Arg{Value: FormatValue(value)}
}

// FormatValue renders numbers in their shortest exact decimal form so that
// 5.0 prints as "5" and 1.25 as "1.25".
func FormatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (a Arg) String() string {
	if a.Key == "" {
		return a.Value
	}
	return a.Key + "=" + a.Value
}

func (f Filter) String() string {
	if len(f.Args) == 0 {
		return f.Name
	}
	parts := make([]string, len(f.Args))
	for i, arg := range f.Args {
		parts[i] = arg.String()
	}
	return f.Name + "=" + strings.Join(parts, ":")
}

func (c Chain) String() string {
	var b strings.Builder
	for _, label := range c.Inputs {
		b.WriteString(Pad(label))
	}
	for i, filter := range c.Filters {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(filter.String())
	}
	for _, label := range c.Outputs {
		b.WriteString(Pad(label))
	}
	return b.String()
}

func (g Graph) String() string {
	return strings.Join(g.Lines(), ";")
}

// Lines returns each chain serialized on its own, in graph order.
func (g Graph) Lines() []string {
	lines := make([]string, len(g.Chains))
	for i, chain := range g.Chains {
		lines[i] = chain.String()
	}
	return lines
}

// Append adds chains to the graph and returns it for chaining.
func (g *Graph) Append(chains ...Chain) *Graph {
	g.Chains = append(g.Chains, chains...)
	return g
}

// Pad wraps a label in brackets: "v0" becomes "[v0]".
func Pad(label string) string {
	return "[" + label + "]"
}

// StreamLabel names an input stream selector such as "0:v" or "2:a".
func StreamLabel(input int, kind string) string {
	return strconv.Itoa(input) + ":" + kind
}

// Validate checks that every consumed label is produced earlier in the graph
// or is an input stream selector, and that no label is produced twice.
func (g Graph) Validate() error {
	produced := make(map[string]bool)
	for i, chain := range g.Chains {
		if len(chain.Filters) == 0 {
			return fmt.Errorf("filtergraph: chain %d has no filters", i)
		}
		for _, label := range chain.Inputs {
			if isStreamSelector(label) {
				continue
			}
			if !produced[label] {
				return fmt.Errorf("filtergraph: chain %d consumes unknown label %q", i, label)
			}
		}
		for _, label := range chain.Outputs {
			if produced[label] {
				return fmt.Errorf("filtergraph: label %q produced twice", label)
			}
			produced[label] = true
		}
	}
	return nil
}

func isStreamSelector(label string) bool {
	idx := strings.IndexByte(label, ':')
	if idx <= 0 {
		return false
	}
	_, err := strconv.Atoi(label[:idx])
	return err == nil
}

// Shift returns a copy of g with every input stream selector moved by n
// inputs, so "0:a" becomes "2:a" for n=2. Used when a graph built against its
// own inputs is embedded after other inputs.
func (g Graph) Shift(n int) Graph {
	out := Graph{Chains: make([]Chain, len(g.Chains))}
	for i, chain := range g.Chains {
		inputs := make([]string, len(chain.Inputs))
		for j, label := range chain.Inputs {
			inputs[j] = shiftSelector(label, n)
		}
		out.Chains[i] = Chain{Inputs: inputs, Filters: chain.Filters, Outputs: chain.Outputs}
	}
	return out
}

func shiftSelector(label string, n int) string {
	if !isStreamSelector(label) {
		return label
	}
	idx := strings.IndexByte(label, ':')
	input, _ := strconv.Atoi(label[:idx])
	return strconv.Itoa(input+n) + label[idx:]
}

// Input is one encoder input file with the options that precede its -i.
type Input struct {
	Path    string
	Options []string
}

// Args renders the input as encoder arguments.
func (in Input) Args() []string {
	args := make([]string, 0, len(in.Options)+2)
	args = append(args, in.Options...)
	return append(args, "-i", in.Path)
}

// InputArgs renders every input in order.
func InputArgs(inputs []Input) []string {
	var args []string
	for _, in := range inputs {
		args = append(args, in.Args()...)
	}
	return args
}
