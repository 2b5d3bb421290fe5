package module

import "strings"

// Option is one key=value pair from a module argument string. A bare
// word without '=' has an empty Value and HasValue false.
type Option struct {
	Key      string
	Value    string
	HasValue bool
}

// ParseOptions splits "k1=v1,k2=v2,flag" into options in order. Empty
// segments are skipped. Values may contain '=' but not ','.
func ParseOptions(args string) []Option {
	if args == "" {
		return nil
	}

	var opts []Option
	for _, part := range strings.Split(args, ",") {
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		opts = append(opts, Option{Key: key, Value: value, HasValue: found})
	}
	return opts
}

// HasList reports whether the bare "list" option is present.
func HasList(opts []Option) bool {
	for _, o := range opts {
		if o.Key == ListArg && !o.HasValue {
			return true
		}
	}
	return false
}

// Lookup returns the value of the last option named key. Later options
// override earlier ones.
func Lookup(opts []Option, key string) (string, bool) {
	value, found := "", false
	for _, o := range opts {
		if o.Key == key {
			value, found = o.Value, true
		}
	}
	return value, found
}
