package services

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"wagebook/internal/core"
)

// RecordInput is a wage record as submitted by a form, API call or import.
type RecordInput struct {
	WorkerName string `json:"worker_name" validate:"required,max=100"`
	Category   string `json:"category" validate:"max=100"`
	Amount     string `json:"salary" validate:"required,amount"`
	WorkDate   string `json:"date" validate:"required,workdate"`
	Note       string `json:"notes" validate:"max=500"`
}

// WorkerInput registers a worker.
type WorkerInput struct {
	Name     string `json:"worker_name" validate:"required,max=100"`
	Category string `json:"category" validate:"max=100"`
	Contact  string `json:"contact" validate:"max=200"`
}

// ValidationError lists the failing fields by JSON name and rule.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, rule := range e.Fields {
		parts = append(parts, f+" "+rule)
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s: %s", core.ErrValidation, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return core.ErrValidation }

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := core.ParseAmount(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("workdate", func(fl validator.FieldLevel) bool {
		_, err := core.ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

func validationError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[fe.Field()] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}

func (in RecordInput) normalized() RecordInput {
	in.WorkerName = strings.TrimSpace(in.WorkerName)
	in.Category = strings.TrimSpace(in.Category)
	in.Amount = strings.TrimSpace(in.Amount)
	in.WorkDate = strings.TrimSpace(in.WorkDate)
	in.Note = strings.TrimSpace(in.Note)
	return in
}

func (in WorkerInput) normalized() WorkerInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Contact = strings.TrimSpace(in.Contact)
	return in
}

// toRecord assumes in passed validation.
func (in RecordInput) toRecord(id int64) (core.WageRecord, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.WageRecord{}, err
	}
	date, err := core.ParseDate(in.WorkDate)
	if err != nil {
		return core.WageRecord{}, err
	}
	return core.WageRecord{
		ID:         id,
		WorkerName: in.WorkerName,
		Category:   in.Category,
		Amount:     amount,
		WorkDate:   date,
		Note:       in.Note,
	}, nil
}
