package cli

import (
	"fmt"
	"strings"

	"roleflow/internal/errors"
)

// parsedArgs holds the hand-scanned arguments of one subcommand: bare
// positionals plus flag values, with repeated flags accumulated in order.
type parsedArgs struct {
	positional []string
	values     map[string][]string
	bools      map[string]bool
}

// parseArgs scans subcommand arguments. boolFlags names the flags that
// take no value; every other --flag consumes the next argument (or an
// inline =value).
func parseArgs(args []string, boolFlags ...string) (*parsedArgs, error) {
	isBool := make(map[string]bool, len(boolFlags))
	for _, name := range boolFlags {
		isBool[name] = true
	}

	out := &parsedArgs{
		values: make(map[string][]string),
		bools:  make(map[string]bool),
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			out.positional = append(out.positional, arg)
			continue
		}
		name := strings.TrimPrefix(arg, "--")
		if eq := strings.Index(name, "="); eq >= 0 {
			out.values[name[:eq]] = append(out.values[name[:eq]], name[eq+1:])
			continue
		}
		if isBool[name] {
			out.bools[name] = true
			continue
		}
		if i+1 >= len(args) {
			return nil, errors.ValidationError(fmt.Sprintf("flag --%s requires a value", name))
		}
		i++
		out.values[name] = append(out.values[name], args[i])
	}
	return out, nil
}

// value returns the last value of a flag, empty if unset.
func (p *parsedArgs) value(name string) string {
	values := p.values[name]
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

// all returns every value supplied for a repeated flag.
func (p *parsedArgs) all(name string) []string {
	return p.values[name]
}

func (p *parsedArgs) bool(name string) bool {
	return p.bools[name]
}
