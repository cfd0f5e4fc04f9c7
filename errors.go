package docstore

import (
	"errors"
	"fmt"
)

// ErrTxReadOnly is returned when Set, Delete or Clear is invoked on a
// behavior bound to a read-only transaction.
var ErrTxReadOnly = errors.New("write inside a read-only transaction")

// ErrEngineClosed is returned by operations against a closed engine.
var ErrEngineClosed = errors.New("engine closed")

// OpenError reports a failure to open or upgrade a named store.
type OpenError struct {
	Store   string
	Version uint32
	Err     error
}

func openErrf(store string, version uint32, err error, format string, args ...any) error {
	if format != "" {
		err = fmt.Errorf(format+": %w", append(args, err)...)
	}
	return &OpenError{store, version, err}
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s v%d: %v", e.Store, e.Version, e.Err)
}

// DataError reports a record that could not be decoded.
type DataError struct {
	Data []byte
	Err  error
	Msg  string
}

func dataErrf(data []byte, err error, format string, args ...any) error {
	return &DataError{data, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
	}
	p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
	return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
}
