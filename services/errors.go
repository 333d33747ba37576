package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorKind classifies a service failure so transports can pick a status code
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindAuthorization
	KindNotFound
	KindConflict
	KindDependent
	KindAuthentication
)

// Error is the error type returned by every service operation
type Error struct {
	Kind    ErrorKind
	Code    string
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrNotPermitted) match any authorization error
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// ErrNotPermitted is returned when a row or reference lies outside the caller's scope
var ErrNotPermitted = &Error{Kind: KindAuthorization, Code: "FORBIDDEN", Message: "You do not have permission to perform this action"}

func validationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Field: field, Message: message}
}

func notFoundError(entity string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    strings.ToUpper(strings.ReplaceAll(entity, " ", "_")) + "_NOT_FOUND",
		Message: capitalize(entity) + " not found",
	}
}

func conflictError(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func dependentError(message string) *Error {
	return &Error{Kind: KindDependent, Code: "HAS_DEPENDENTS", Message: message}
}

func forbidden(message string) *Error {
	return &Error{Kind: KindAuthorization, Code: "FORBIDDEN", Message: message}
}

// AsError unwraps err into a service error when it is one
func AsError(err error) (*Error, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// IsKind reports whether err is a service error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	svcErr, ok := AsError(err)
	return ok && svcErr.Kind == kind
}

// isUniqueViolation detects duplicate-key failures on both PostgreSQL and SQLite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "unique")
}

// isForeignKeyViolation detects writes rejected by a foreign key on both
// PostgreSQL and SQLite
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key")
}

// dependency is a relation that blocks deleting a row while it has rows
type dependency struct {
	model   interface{}
	query   string
	message string
}

// ensureNoDependents returns a dependent error naming the first relation
// that still references id
func ensureNoDependents(db *gorm.DB, id uint, deps ...dependency) error {
	for _, dep := range deps {
		exists, err := rowExists(db, dep.model, dep.query, id)
		if err != nil {
			return err
		}
		if exists {
			return dependentError(dep.message)
		}
	}
	return nil
}

// deleteGuarded hard-deletes value. A foreign key that still points at it
// becomes a dependent error instead of a database error.
func deleteGuarded(db *gorm.DB, value interface{}, message string) error {
	err := db.Delete(value).Error
	if isForeignKeyViolation(err) {
		return dependentError(message)
	}
	return err
}

// findByID loads one row or returns a not-found error for entity
func findByID(db *gorm.DB, dest interface{}, id uint, entity string) error {
	if err := db.First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError(entity)
		}
		return err
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// updateRow writes columns of a single row by primary key without touching
// any associations loaded on the caller's copy
func updateRow(db *gorm.DB, model interface{}, id uint, columns map[string]interface{}) error {
	return db.Model(model).Where("id = ?", id).Updates(columns).Error
}
