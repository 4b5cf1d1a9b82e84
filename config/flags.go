package config

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// IntList is a flag.Value holding comma separated integers.
type IntList struct {
	Values *[]int
}

func (l IntList) String() string {
	if l.Values == nil {
		return ""
	}
	parts := make([]string, 0, len(*l.Values))
	for _, v := range *l.Values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ",")
}

func (l IntList) Set(s string) error {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.Replace(part, "_", "", -1))
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return errors.Errorf("invalid integer %q", part)
		}
		out = append(out, v)
	}
	*l.Values = out
	return nil
}

// StringList is a flag.Value holding comma separated strings.
type StringList struct {
	Values *[]string
}

func (l StringList) String() string {
	if l.Values == nil {
		return ""
	}
	return strings.Join(*l.Values, ",")
}

func (l StringList) Set(s string) error {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*l.Values = out
	return nil
}
