package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"wagebook/internal/amqp"
	"wagebook/internal/core"
	"wagebook/internal/log"
	"wagebook/internal/store"
)

// EventPublisher announces committed writes. *amqp.Client implements it.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.ChangeEvent) error
}

// LedgerService owns every write to the ledger.
type LedgerService struct {
	store      store.RecordStore
	listings   *Listings
	events     EventPublisher
	validate   *validator.Validate
	logger     *log.Logger
	structured *log.StructuredLogger
}

// NewLedgerService wires the service. events may be nil.
func NewLedgerService(s store.RecordStore, listings *Listings, events EventPublisher, logger *log.Logger) *LedgerService {
	if listings == nil {
		listings = NewListings(s, nil, nil)
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &LedgerService{
		store:      s,
		listings:   listings,
		events:     events,
		validate:   newValidator(),
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
	}
}

func (s *LedgerService) checkRecord(in RecordInput) (RecordInput, error) {
	in = in.normalized()
	if err := s.validate.Struct(in); err != nil {
		return in, validationError(err)
	}
	return in, nil
}

// AddRecord saves a new wage record and returns it with its id.
func (s *LedgerService) AddRecord(ctx context.Context, in RecordInput) (core.WageRecord, error) {
	in, err := s.checkRecord(in)
	if err != nil {
		return core.WageRecord{}, err
	}
	r, err := in.toRecord(0)
	if err != nil {
		return core.WageRecord{}, err
	}

	id, err := s.store.InsertRecord(ctx, r)
	if err != nil {
		return core.WageRecord{}, fmt.Errorf("save record: %w", err)
	}
	r.ID = id
	s.listings.Invalidate()

	s.structured.LogRecordChange(ctx, log.OpCreate, r.ID, r.WorkerName, r.Amount.String(), r.WorkDate.String())
	s.publish(ctx, amqp.NewRecordEvent(amqp.RecordCreated, r.ID))
	s.autoRegister(ctx, r)
	return r, nil
}

// UpdateRecord replaces every field of record id.
func (s *LedgerService) UpdateRecord(ctx context.Context, id int64, in RecordInput) (core.WageRecord, error) {
	in, err := s.checkRecord(in)
	if err != nil {
		return core.WageRecord{}, err
	}
	r, err := in.toRecord(id)
	if err != nil {
		return core.WageRecord{}, err
	}

	if err := s.store.UpdateRecord(ctx, r); err != nil {
		return core.WageRecord{}, fmt.Errorf("update record: %w", err)
	}
	s.listings.Invalidate()

	s.structured.LogRecordChange(ctx, log.OpUpdate, r.ID, r.WorkerName, r.Amount.String(), r.WorkDate.String())
	s.publish(ctx, amqp.NewRecordEvent(amqp.RecordUpdated, r.ID))
	s.autoRegister(ctx, r)
	return r, nil
}

func (s *LedgerService) DeleteRecord(ctx context.Context, id int64) error {
	if err := s.store.DeleteRecord(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	s.listings.Invalidate()

	s.logger.InfoContext(ctx, "Wage record deleted", log.FieldRecordID, id, log.FieldOperation, log.OpDelete)
	s.publish(ctx, amqp.NewRecordEvent(amqp.RecordDeleted, id))
	return nil
}

// RegisterWorker adds a worker explicitly; an existing name is ErrDuplicate.
func (s *LedgerService) RegisterWorker(ctx context.Context, in WorkerInput) (core.Worker, error) {
	in = in.normalized()
	if err := s.validate.Struct(in); err != nil {
		return core.Worker{}, validationError(err)
	}
	w := core.Worker{Name: in.Name, Category: in.Category, Contact: in.Contact}

	id, err := s.store.InsertWorker(ctx, w)
	if err != nil {
		return core.Worker{}, fmt.Errorf("register worker: %w", err)
	}
	w.ID = id
	s.listings.Invalidate()

	s.logger.InfoContext(ctx, "Worker registered", log.FieldWorkerID, id, log.FieldWorkerName, w.Name)
	s.publish(ctx, amqp.NewWorkerEvent(amqp.WorkerCreated, id))
	return w, nil
}

// DeleteWorker removes the worker only; their records stay.
func (s *LedgerService) DeleteWorker(ctx context.Context, id int64) error {
	if err := s.store.DeleteWorker(ctx, id); err != nil {
		return fmt.Errorf("delete worker: %w", err)
	}
	s.listings.Invalidate()

	s.logger.InfoContext(ctx, "Worker deleted", log.FieldWorkerID, id)
	s.publish(ctx, amqp.NewWorkerEvent(amqp.WorkerDeleted, id))
	return nil
}

func (s *LedgerService) Workers(ctx context.Context) ([]core.Worker, error) {
	return s.listings.Workers(ctx)
}

// autoRegister adds r's worker to the registry when the name is new. The
// record is already saved, so failures are logged and otherwise ignored.
func (s *LedgerService) autoRegister(ctx context.Context, r core.WageRecord) {
	workers, err := s.listings.Workers(ctx)
	if err != nil {
		s.structured.LogError(ctx, "List workers for auto-registration failed", err, log.ComponentLedger, log.OpRegister, nil)
		return
	}
	for _, w := range workers {
		if w.Name == r.WorkerName {
			return
		}
	}

	id, err := s.store.InsertWorker(ctx, core.Worker{Name: r.WorkerName, Category: r.Category})
	switch {
	case errors.Is(err, core.ErrDuplicate):
		// registered concurrently
		return
	case err != nil:
		s.structured.LogError(ctx, "Auto-registration failed", err, log.ComponentLedger, log.OpRegister,
			log.NewFields().WithRecord(r.ID, r.WorkerName, r.Amount.String(), r.WorkDate.String()))
		return
	}
	s.listings.Invalidate()
	s.logger.InfoContext(ctx, "Worker auto-registered", log.FieldWorkerID, id, log.FieldWorkerName, r.WorkerName)
	s.publish(ctx, amqp.NewWorkerEvent(amqp.WorkerCreated, id))
}

// publish is best effort: the write has already succeeded.
func (s *LedgerService) publish(ctx context.Context, ev *amqp.ChangeEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish change event",
			"type", ev.Type, log.FieldRecordID, ev.RecordID, log.FieldWorkerID, ev.WorkerID, log.FieldError, err)
	}
}
