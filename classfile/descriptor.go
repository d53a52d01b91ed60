package classfile

import (
	"errors"
	"fmt"
	"strings"
)

var ErrBadDescriptor = errors.New("bad descriptor")

// NormalizeName converts a dotted class name to internal slash form.
func NormalizeName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// IsArrayName reports whether an internal class name denotes an array type.
func IsArrayName(name string) bool {
	return strings.HasPrefix(name, "[")
}

// fieldTypeEnd returns the index just past the field type starting at i.
func fieldTypeEnd(desc string, i int) (int, error) {
	for i < len(desc) && desc[i] == '[' {
		i++
	}
	if i >= len(desc) {
		return 0, fmt.Errorf("%w: %q ends inside a type", ErrBadDescriptor, desc)
	}
	switch desc[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1, nil
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return 0, fmt.Errorf("%w: unterminated class type in %q", ErrBadDescriptor, desc)
		}
		return i + end + 1, nil
	default:
		return 0, fmt.Errorf("%w: unexpected %q in %q", ErrBadDescriptor, desc[i], desc)
	}
}

// ParameterTypes splits a method descriptor into its parameter field types.
func ParameterTypes(desc string) ([]string, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, fmt.Errorf("%w: %q is not a method descriptor", ErrBadDescriptor, desc)
	}
	var params []string
	i := 1
	for i < len(desc) && desc[i] != ')' {
		end, err := fieldTypeEnd(desc, i)
		if err != nil {
			return nil, err
		}
		params = append(params, desc[i:end])
		i = end
	}
	if i >= len(desc) {
		return nil, fmt.Errorf("%w: %q has no closing parenthesis", ErrBadDescriptor, desc)
	}
	return params, nil
}

// ParameterWords counts the operand-stack words taken by a method's declared
// parameters. long and double count as two words; the receiver is not
// counted.
func ParameterWords(desc string) (int, error) {
	params, err := ParameterTypes(desc)
	if err != nil {
		return 0, err
	}
	words := 0
	for _, p := range params {
		if p == "J" || p == "D" {
			words += 2
		} else {
			words++
		}
	}
	return words, nil
}

// ArrayShape returns the number of dimensions of an array class name such as
// "[[I" and the descriptor of its innermost element type ("I").
func ArrayShape(name string) (dims int, element string, err error) {
	for dims < len(name) && name[dims] == '[' {
		dims++
	}
	if dims == 0 {
		return 0, "", fmt.Errorf("%w: %q is not an array type", ErrBadDescriptor, name)
	}
	element = name[dims:]
	end, err := fieldTypeEnd(element, 0)
	if err != nil || end != len(element) {
		return 0, "", fmt.Errorf("%w: bad element type in %q", ErrBadDescriptor, name)
	}
	return dims, element, nil
}
