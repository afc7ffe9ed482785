// Package cli provides flag.Value implementations that remember whether a
// flag was actually set, so unset flags don't clobber config-file values.
package cli

import (
	"fmt"
	"strconv"
	"time"
)

// OptionalDuration is a duration flag that tracks presence.
type OptionalDuration struct {
	val time.Duration
	ok  bool
}

func (o *OptionalDuration) Set(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	o.val, o.ok = d, true
	return nil
}

func (o *OptionalDuration) String() string {
	if !o.ok {
		return ""
	}
	return o.val.String()
}

// Value returns the duration and whether it was set.
func (o *OptionalDuration) Value() (time.Duration, bool) {
	return o.val, o.ok
}

// OptionalInt is an int flag that tracks presence.
type OptionalInt struct {
	val int
	ok  bool
}

func (o *OptionalInt) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	o.val, o.ok = n, true
	return nil
}

func (o *OptionalInt) String() string {
	if !o.ok {
		return ""
	}
	return strconv.Itoa(o.val)
}

// Value returns the int and whether it was set.
func (o *OptionalInt) Value() (int, bool) {
	return o.val, o.ok
}

// OptionalString is a string flag that tracks presence.
type OptionalString struct {
	val string
	ok  bool
}

func (o *OptionalString) Set(s string) error {
	o.val, o.ok = s, true
	return nil
}

func (o *OptionalString) String() string {
	return o.val
}

// Value returns the string and whether it was set.
func (o *OptionalString) Value() (string, bool) {
	return o.val, o.ok
}

// OptionalBool is a bool flag that tracks presence.
type OptionalBool struct {
	val bool
	ok  bool
}

func (o *OptionalBool) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	o.val, o.ok = b, true
	return nil
}

func (o *OptionalBool) String() string {
	if !o.ok {
		return ""
	}
	return strconv.FormatBool(o.val)
}

// IsBoolFlag lets the flag package accept the bare form (-no-ui).
func (o *OptionalBool) IsBoolFlag() bool {
	return true
}

// Value returns the bool and whether it was set.
func (o *OptionalBool) Value() (bool, bool) {
	return o.val, o.ok
}
