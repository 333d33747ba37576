package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kendall-kelly/agency-sales-api/utils"
	"gorm.io/gorm"
)

// DefaultMaxImportErrors bounds the row messages kept in an ImportResult
const DefaultMaxImportErrors = 10

// ImportResult summarizes one bulk import
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// ImportRules plug entity-specific decoding and resolution into RunImport.
// Decode turns a raw row into a typed record; Resolve checks references,
// scope and duplicates (against the database and rows staged earlier in the
// same file) and returns the entity to stage.
type ImportRules[R any, E any] struct {
	Decode  func(row utils.Row) (R, error)
	Resolve func(tx *gorm.DB, id Identity, record R, staged []E) (E, error)
}

// importErrors keeps the first max row messages and counts the rest
type importErrors struct {
	max      int
	messages []string
	total    int
}

func (e *importErrors) add(rowNumber int, err error) {
	e.total++
	if len(e.messages) < e.max {
		e.messages = append(e.messages, fmt.Sprintf("Row %d: %s", rowNumber, err.Error()))
	}
}

func (e *importErrors) summary() []string {
	out := append([]string{}, e.messages...)
	if extra := e.total - len(e.messages); extra > 0 {
		out = append(out, fmt.Sprintf("... and %d more errors", extra))
	}
	return out
}

// RunImport validates every row of table independently and commits the
// accepted rows in one transaction. Nothing is written when no row is
// accepted or when the commit fails.
func RunImport[R any, E any](db *gorm.DB, id Identity, table *utils.Table, rules ImportRules[R, E], maxErrors int) (*ImportResult, error) {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxImportErrors
	}
	errs := &importErrors{max: maxErrors}
	var staged []E

	for _, row := range table.Rows {
		record, err := rules.Decode(row)
		if err != nil {
			errs.add(row.Number, err)
			continue
		}
		entity, err := rules.Resolve(db, id, record, staged)
		if err != nil {
			errs.add(row.Number, err)
			continue
		}
		staged = append(staged, entity)
	}

	result := &ImportResult{Skipped: errs.total, Errors: errs.summary()}
	if len(staged) == 0 {
		return result, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&staged, 100).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, conflictError("IMPORT_CONFLICT", "Import failed: a conflicting record was created concurrently")
		}
		return nil, fmt.Errorf("import failed: %w", err)
	}
	result.Imported = len(staged)
	return result, nil
}

var recordValidator = newRecordValidator()

func newRecordValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("col"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

// validateRecord runs the struct tags of an import record and reports the
// first failure in spreadsheet terms
func validateRecord(record interface{}) error {
	err := recordValidator.Struct(record)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return validationError(fe.Field(), fmt.Sprintf("%s is required", fe.Field()))
	case "max":
		return validationError(fe.Field(), fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	case "email":
		return validationError(fe.Field(), fmt.Sprintf("%s must be a valid email address", fe.Field()))
	case "numeric":
		return validationError(fe.Field(), fmt.Sprintf("%s must be a number", fe.Field()))
	default:
		return validationError(fe.Field(), fmt.Sprintf("%s is invalid", fe.Field()))
	}
}

func quoted(s string) string {
	return "'" + strings.TrimSpace(s) + "'"
}

// ImportService runs bulk imports for the catalog entities
type ImportService struct {
	db        *gorm.DB
	maxErrors int
}

// NewImportService creates an ImportService keeping at most maxErrors row messages
func NewImportService(db *gorm.DB, maxErrors int) *ImportService {
	return &ImportService{db: db, maxErrors: maxErrors}
}

// Import decodes an uploaded file and imports its rows as entity. File-level
// problems are returned as a validation error before any row is processed.
func (s *ImportService) Import(id Identity, entity, filename string, data []byte) (*ImportResult, error) {
	if err := id.requireCatalogManager(); err != nil {
		return nil, err
	}
	if _, ok := ImportTemplateHeaders(entity); !ok {
		return nil, validationError("entity", fmt.Sprintf("Import is not supported for %s", entity))
	}

	table, err := utils.ReadTable(filename, data)
	if err != nil {
		var tabErr *utils.TabularError
		if errors.As(err, &tabErr) {
			return nil, &Error{Kind: KindValidation, Code: tabErr.Code, Field: "file", Message: tabErr.Message}
		}
		return nil, err
	}

	switch entity {
	case EntityProducts:
		return RunImport(s.db, id, table, productImportRules(), s.maxErrors)
	case EntityCustomers:
		return RunImport(s.db, id, table, customerImportRules(), s.maxErrors)
	default:
		return RunImport(s.db, id, table, locationImportRules(), s.maxErrors)
	}
}
