package vars

// MakeList converts a scalar into a list holding its value plus a blank slot.
func (v *Variable) MakeList() {
	v.IsList = true
	v.ListValues = []string{v.Value, ""}
	v.Value = ""
}

// AddValue appends a blank slot to a list.
func (v *Variable) AddValue() {
	v.ListValues = append(v.ListValues, "")
}

// RemoveValue drops list slot i. Removing the last remaining slot turns the
// variable back into a blank scalar.
func (v *Variable) RemoveValue(i int) {
	switch {
	case len(v.ListValues) <= 1:
		v.IsList = false
		v.Value = ""
		v.ListValues = []string{""}
	case i >= 0 && i < len(v.ListValues):
		v.ListValues = append(v.ListValues[:i:i], v.ListValues[i+1:]...)
	}
}

// Default returns the value used to preview the command: the scalar value,
// or the first list entry.
func (v Variable) Default() string {
	if v.IsList {
		if len(v.ListValues) > 0 {
			return v.ListValues[0]
		}
		return ""
	}
	return v.Value
}

// Defaults maps each variable name to its Default.
func Defaults(variables []Variable) map[string]string {
	out := make(map[string]string, len(variables))
	for _, v := range variables {
		out[v.Name] = v.Default()
	}
	return out
}

// Interpolate substitutes every occurrence of each placeholder whose name is
// a key of values. Other placeholders remain as literal text.
func Interpolate(command string, values map[string]string) string {
	spans := scan(command)
	if len(spans) == 0 || len(values) == 0 {
		return command
	}
	var b []byte
	last := 0
	for _, s := range spans {
		val, ok := values[spanName(s.content)]
		if !ok {
			continue
		}
		b = append(b, command[last:s.start]...)
		b = append(b, val...)
		last = s.end
	}
	b = append(b, command[last:]...)
	return string(b)
}
