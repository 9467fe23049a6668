package core

// validation.go provides row-level validation of fetched datasets before loading.
//
// Each registered table carries a list of FieldSpecs. Every rule is checked
// for every row so the operator sees all problems of a row at once; a row
// with any violation is rejected as a whole and the rest of the dataset is
// accepted unchanged.

import (
	"fmt"
	"log/slog"
	"slices"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Row     int    // Zero-based data row index
	Field   string // Field/column name
	Value   string // The invalid value, empty for missing values
	Message string // Operator-facing message
}

func (e ValidationError) Error() string {
	return e.Message
}

// ValidationResult contains the result of validating a row.
type ValidationResult struct {
	Valid  bool              // True if all validations passed
	Errors []ValidationError // List of validation errors (empty if Valid)
}

// RowValidator validates rows against a table's field specifications.
type RowValidator struct {
	specs     []FieldSpec
	headerIdx HeaderIndex
}

// NewRowValidator creates a validator for the given field specs and header index.
func NewRowValidator(specs []FieldSpec, headerIdx HeaderIndex) *RowValidator {
	return &RowValidator{
		specs:     specs,
		headerIdx: headerIdx,
	}
}

// ValidateRow checks every rule against row and returns all violations.
// A column that does not exist reads as null.
func (v *RowValidator) ValidateRow(idx int, row []Value) ValidationResult {
	result := ValidationResult{Valid: true}

	for _, spec := range v.specs {
		val := Null()
		if pos, ok := v.headerIdx[spec.Name]; ok && pos < len(row) {
			val = row[pos]
		}

		if err := ValidateCell(idx, val, spec); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, *err)
		}
	}

	return result
}

// ValidateCell checks one value against its rule.
// Null values only fail required rules.
func ValidateCell(idx int, val Value, spec FieldSpec) *ValidationError {
	if val.IsNull() {
		if spec.Required {
			return &ValidationError{
				Row:     idx,
				Field:   spec.Name,
				Message: fmt.Sprintf("Row %d: Missing %s", idx, spec.Name),
			}
		}
		return nil
	}

	switch spec.Type {
	case FieldNumeric:
		n, ok := ParseNumber(val)
		if !ok {
			return &ValidationError{
				Row:     idx,
				Field:   spec.Name,
				Value:   val.String(),
				Message: fmt.Sprintf("Row %d: Invalid numeric value in %s", idx, spec.Name),
			}
		}
		if spec.NonNegative && n < 0 {
			return &ValidationError{
				Row:     idx,
				Field:   spec.Name,
				Value:   val.String(),
				Message: fmt.Sprintf("Row %d: Negative value in %s", idx, spec.Name),
			}
		}
	case FieldEnum:
		if len(spec.EnumValues) > 0 && !slices.Contains(spec.EnumValues, val.String()) {
			return &ValidationError{
				Row:     idx,
				Field:   spec.Name,
				Value:   val.String(),
				Message: fmt.Sprintf("Row %d: Invalid %s %s", idx, spec.Name, val.String()),
			}
		}
	}
	return nil
}

// RecordValidator filters datasets through the registered rule set of a table.
type RecordValidator struct {
	logger *slog.Logger
}

// NewRecordValidator creates a validator. A nil logger uses slog.Default().
func NewRecordValidator(logger *slog.Logger) *RecordValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordValidator{logger: logger}
}

// Validate returns the accepted rows of ds in input order together with one
// message per violation. The input is not modified.
// An unregistered kind returns ErrValidationConfig.
func (v *RecordValidator) Validate(ds *Dataset, kind string) (*Dataset, []string, error) {
	def, ok := Get(kind)
	if !ok {
		return nil, nil, Ef(ErrValidationConfig, "validate", "unknown table %q", kind)
	}

	rv := NewRowValidator(def.FieldSpecs, ds.Index())
	accepted := NewDataset(ds.Columns)
	var errs []string

	for idx, row := range ds.Rows {
		res := rv.ValidateRow(idx, row)
		if res.Valid {
			accepted.Rows = append(accepted.Rows, append([]Value(nil), row...))
			continue
		}

		msgs := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			msgs[i] = e.Message
		}
		v.logger.Warn("row rejected", "table", kind, "row", idx, "errors", msgs)
		errs = append(errs, msgs...)
	}

	if len(errs) > 0 {
		v.logger.Info("validation finished",
			"table", kind,
			"accepted", accepted.Len(),
			"rejected", ds.Len()-accepted.Len(),
		)
	}
	return accepted, errs, nil
}
