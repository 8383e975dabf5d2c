package cli

import "strings"

// multiValueFlags take every following bare argument, so the historical form
// `-f a.txt b.txt -o 1 2` works alongside repeated or comma-joined flags.
var multiValueFlags = map[string]bool{
	"-f":       true,
	"--files":  true,
	"-o":       true,
	"--fields": true,
}

// expandMultiValue rewrites `-o 1 2` as `-o 1 -o 2`. Bare arguments before any
// multi-value flag are left positional. Everything after "--" is untouched.
func expandMultiValue(args []string) []string {
	out := make([]string, 0, len(args))
	current := ""
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		if len(arg) > 1 && strings.HasPrefix(arg, "-") {
			if multiValueFlags[arg] {
				current = arg
				continue
			}
			current = ""
			out = append(out, arg)
			continue
		}
		if current != "" {
			out = append(out, current, arg)
			continue
		}
		out = append(out, arg)
	}
	return out
}
