package models

import (
	"errors"
	"fmt"
)

// ErrDuplicateKeys marks a source table whose declared key is not unique.
var ErrDuplicateKeys = errors.New("duplicate keys")

// FailureKind lets schedulers tell bad data from an infrastructure outage.
type FailureKind string

const (
	KindData   FailureKind = "data"   // the input cannot be trusted; retrying will not help
	KindInfra  FailureKind = "infra"  // the store or the gate was unreachable; safe to retry later
	KindConfig FailureKind = "config" // the run parameters are invalid
)

// Failure is a fatal run error. No output is produced when one is returned.
type Failure struct {
	Kind  FailureKind
	Op    string
	Table Table
	Key   string
	Err   error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s failure: %s", f.Kind, f.Op)
	if f.Table != "" {
		msg += fmt.Sprintf(" table=%s", f.Table)
	}
	if f.Key != "" {
		msg += fmt.Sprintf(" key=%s", f.Key)
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf returns the failure kind carried by err, or "" when err is not a *Failure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
