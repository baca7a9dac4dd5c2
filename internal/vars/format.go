package vars

import (
	"sort"
	"strings"
)

// Format encodes v as a placeholder:
//
//	list with non-blank entries  <name=|_a_||_b_|>
//	non-blank scalar             <name=value>
//	anything else                <name>
//
// A Variable without a name encodes to the empty string.
func Format(v Variable) string {
	if v.Name == "" {
		return ""
	}
	if v.IsList && len(v.ListValues) > 0 {
		var kept []string
		for _, val := range v.ListValues {
			if strings.TrimSpace(val) != "" {
				kept = append(kept, val)
			}
		}
		if len(kept) == 0 {
			return "<" + v.Name + ">"
		}
		return "<" + v.Name + "=" + listOpen + strings.Join(kept, listSep) + listClose + ">"
	}
	if strings.TrimSpace(v.Value) != "" {
		return "<" + v.Name + "=" + v.Value + ">"
	}
	return "<" + v.Name + ">"
}

// UpdateCommand rewrites the first occurrence of each variable in command
// with its Format encoding. Later occurrences of the same name, and
// placeholders with no matching Variable, are left untouched.
func UpdateCommand(command string, variables []Variable) string {
	if command == "" || len(variables) == 0 {
		return command
	}

	byName := make(map[string]Variable, len(variables))
	for _, v := range variables {
		if _, ok := byName[v.Name]; !ok {
			byName[v.Name] = v
		}
	}

	type replacement struct {
		span
		with string
	}
	seen := make(map[string]struct{})
	var reps []replacement
	for _, s := range scan(command) {
		name := spanName(s.content)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if v, ok := byName[name]; ok {
			reps = append(reps, replacement{span: s, with: Format(v)})
		}
	}

	// Rightmost first keeps the offsets of the remaining spans valid.
	sort.Slice(reps, func(i, j int) bool { return reps[i].start > reps[j].start })

	out := command
	for _, r := range reps {
		out = out[:r.start] + r.with + out[r.end:]
	}
	return out
}
