// Package errors provides standardized error handling for trooper.
// It defines the error taxonomy shared by the keymap loader, the navigator
// and the persistent store, plus helpers for creating, wrapping and
// inspecting those errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard errors package errors that we re-export for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// File error kinds
	FileNotFound
	FileAccessDenied
	InvalidPath
	FileOperationFailed
	// Config error kinds
	InvalidConfig
	ConfigNotFound
	UnknownAction
	MalformedSequence
	DuplicateBinding
	// Navigation error kinds
	PermissionDenied
	NotFound
	NameCollision
	InvalidName
	PartialPaste
	UnknownBookmark
	// Store error kinds
	StoreReadFailed
	StoreWriteFailed
	StoreConflict
)

var kindNames = map[ErrorKind]string{
	Unknown:             "Unknown",
	FileNotFound:        "FileNotFound",
	FileAccessDenied:    "FileAccessDenied",
	InvalidPath:         "InvalidPath",
	FileOperationFailed: "FileOperationFailed",
	InvalidConfig:       "InvalidConfig",
	ConfigNotFound:      "ConfigNotFound",
	UnknownAction:       "UnknownAction",
	MalformedSequence:   "MalformedSequence",
	DuplicateBinding:    "DuplicateBinding",
	PermissionDenied:    "PermissionDenied",
	NotFound:            "NotFound",
	NameCollision:       "NameCollision",
	InvalidName:         "InvalidName",
	PartialPaste:        "PartialPaste",
	UnknownBookmark:     "UnknownBookmark",
	StoreReadFailed:     "StoreReadFailed",
	StoreWriteFailed:    "StoreWriteFailed",
	StoreConflict:       "StoreConflict",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// FileError represents errors related to file operations
type FileError struct {
	ApplicationError
	path string
}

// NewFileError creates a new file error
func NewFileError(msg string, path string, kind ErrorKind, err error) *FileError {
	return &FileError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		path: path,
	}
}

// Error returns the file error message
func (e *FileError) Error() string {
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Path returns the file path associated with the error
func (e *FileError) Path() string {
	return e.path
}

// ConfigError represents errors related to configuration. Keymap errors
// carry the source file and the 1-based line of the offending entry.
type ConfigError struct {
	ApplicationError
	param string
	file  string
	line  int
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		param: param,
	}
}

// At records where in a configuration file the error was found.
func (e *ConfigError) At(file string, line int) *ConfigError {
	e.file = file
	e.line = line
	return e
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	var sb strings.Builder
	if e.file != "" {
		sb.WriteString(e.file)
		if e.line > 0 {
			fmt.Fprintf(&sb, ":%d", e.line)
		}
		sb.WriteString(": ")
	}
	if e.param != "" {
		if e.err != nil {
			fmt.Fprintf(&sb, "%s: %s: %v", e.msg, e.param, e.err)
		} else {
			fmt.Fprintf(&sb, "%s: %s", e.msg, e.param)
		}
		return sb.String()
	}
	sb.WriteString(e.ApplicationError.Error())
	return sb.String()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// File returns the configuration file the error was found in
func (e *ConfigError) File() string {
	return e.file
}

// Line returns the line the error was found on, or 0 if unknown
func (e *ConfigError) Line() int {
	return e.line
}

// NavigationError represents a recoverable failure of a navigator action.
// PartialPaste errors list every path that could not be pasted.
type NavigationError struct {
	ApplicationError
	path   string
	failed []string
}

// NewNavigationError creates a new navigation error
func NewNavigationError(msg string, path string, kind ErrorKind, err error) *NavigationError {
	return &NavigationError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		path: path,
	}
}

// NewPartialPasteError creates a PartialPaste error naming the failed paths.
// causes are joined into the wrapped error.
func NewPartialPasteError(failed []string, causes ...error) *NavigationError {
	paths := make([]string, len(failed))
	copy(paths, failed)
	return &NavigationError{
		ApplicationError: ApplicationError{
			msg:  fmt.Sprintf("paste failed for %d of the yanked entries", len(paths)),
			err:  errors.Join(causes...),
			kind: PartialPaste,
		},
		failed: paths,
	}
}

// Error returns the navigation error message
func (e *NavigationError) Error() string {
	if e.kind == PartialPaste {
		return fmt.Sprintf("%s: %s", e.msg, strings.Join(e.failed, ", "))
	}
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Path returns the path the failed action targeted
func (e *NavigationError) Path() string {
	return e.path
}

// Failed returns the paths a partial paste could not handle
func (e *NavigationError) Failed() []string {
	return e.failed
}

// StoreError represents errors of the persistent register/bookmark store
type StoreError struct {
	ApplicationError
	file string
}

// NewStoreError creates a new store error
func NewStoreError(msg string, file string, kind ErrorKind, err error) *StoreError {
	return &StoreError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		file: file,
	}
}

// Error returns the store error message
func (e *StoreError) Error() string {
	if e.file != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.file, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.file)
	}
	return e.ApplicationError.Error()
}

// File returns the store file involved
func (e *StoreError) File() string {
	return e.file
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: Unknown,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: Unknown,
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: Unknown,
	}
}

// IsFileNotFound checks if the error is a file not found error
func IsFileNotFound(err error) bool {
	var fileErr *FileError
	if errors.As(err, &fileErr) {
		return fileErr.Kind() == FileNotFound
	}
	return false
}

// IsFileAccessDenied checks if the error is a file access denied error
func IsFileAccessDenied(err error) bool {
	var fileErr *FileError
	if errors.As(err, &fileErr) {
		return fileErr.Kind() == FileAccessDenied
	}
	return false
}

// IsInvalidConfig checks if the error is any configuration error
func IsInvalidConfig(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsConfig checks if the error is a configuration error of the given kind
func IsConfig(err error, kind ErrorKind) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == kind
	}
	return false
}

// IsNavigation checks if the error is a navigation error of the given kind
func IsNavigation(err error, kind ErrorKind) bool {
	var navErr *NavigationError
	if errors.As(err, &navErr) {
		return navErr.Kind() == kind
	}
	return false
}

// IsStoreError checks if the error came from the persistent store
func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}

// KindOf returns the first known kind in err's chain, skipping plain wraps.
func KindOf(err error) ErrorKind {
	for err != nil {
		if k, ok := err.(interface{ Kind() ErrorKind }); ok && k.Kind() != Unknown {
			return k.Kind()
		}
		err = errors.Unwrap(err)
	}
	return Unknown
}
