package command

import "strings"

// boolFlags are the only flags that take no value.
var boolFlags = map[string]bool{"h": true, "help": true}

// reorderArgs moves the subcommand's positional arguments behind its flags.
// The flag package stops at the first positional, so without this "add Team_Sync --type full"
// would treat "--type full" as arguments.
func reorderArgs(args []string) []string {
	if len(args) < 2 {
		return args
	}

	// Skip the program name and global flags to find the subcommand.
	i := 1
	for i < len(args) && isFlag(args[i]) {
		if args[i] == "--" {
			return args
		}
		i += flagWidth(args[i])
	}
	if i >= len(args) {
		return args
	}

	out := append([]string{}, args[:i+1]...)
	var flags, positional []string
	sawTerminator := false
	for j := i + 1; j < len(args); j++ {
		arg := args[j]
		switch {
		case sawTerminator:
			positional = append(positional, arg)
		case arg == "--":
			sawTerminator = true
		case isFlag(arg):
			flags = append(flags, arg)
			if flagWidth(arg) == 2 && j+1 < len(args) {
				j++
				flags = append(flags, args[j])
			}
		default:
			positional = append(positional, arg)
		}
	}

	out = append(out, flags...)
	if sawTerminator {
		out = append(out, "--")
	}
	return append(out, positional...)
}

func isFlag(arg string) bool {
	return len(arg) > 1 && strings.HasPrefix(arg, "-")
}

// flagWidth is the number of tokens a flag occupies: 1 for booleans and --name=value, 2 otherwise.
func flagWidth(arg string) int {
	name := strings.TrimLeft(arg, "-")
	if strings.Contains(name, "=") || boolFlags[name] {
		return 1
	}
	return 2
}
