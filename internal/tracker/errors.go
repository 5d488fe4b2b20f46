package tracker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/metalagman/goalpath/internal/db"
)

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrStorage        = errors.New("storage failure")
	ErrGraphIntegrity = errors.New("graph integrity violation")
)

// Error kinds reported to tool callers and HTTP clients.
const (
	KindValidation     = "validation"
	KindNotFound       = "not_found"
	KindStorage        = "storage"
	KindGraphIntegrity = "graph_integrity"
	KindInternal       = "internal"
)

// ValidationError reports a malformed request. Nothing was written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError reports that the targeted entity does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StorageError reports that the store failed or rejected a write. The change
// was not applied and may be retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// GraphIntegrityError reports a dependency write that would make a task depend
// on itself, directly or through a cycle. It also matches ErrValidation since
// it is rejected before anything is written.
type GraphIntegrityError struct {
	TaskID string
	Path   []string
}

func (e *GraphIntegrityError) Error() string {
	if len(e.Path) <= 2 {
		return fmt.Sprintf("task %s cannot depend on itself", e.TaskID)
	}
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

func (e *GraphIntegrityError) Is(target error) bool {
	return target == ErrGraphIntegrity || target == ErrValidation
}

// Kind classifies err for callers that report errors as strings.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrGraphIntegrity):
		return KindGraphIntegrity
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrStorage):
		return KindStorage
	default:
		return KindInternal
	}
}

// fromStore maps a store error onto the tracker's error kinds. kind and id name
// the entity the caller addressed.
func fromStore(op, kind, id string, err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return &NotFoundError{Kind: kind, ID: id}
	case errors.Is(err, db.ErrDependencyNotFound):
		return &ValidationError{Field: "dependencies", Reason: err.Error()}
	default:
		return &StorageError{Op: op, Err: err}
	}
}

// parentFromStore is fromStore for create operations: a parent that does not
// exist is a bad reference in the input, not a missing target.
func parentFromStore(op, field, kind, id string, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%s %s does not exist", kind, id)}
	}
	return fromStore(op, kind, id, err)
}
