package services

import (
	"context"
	"strings"

	"wagebook/internal/core"
)

// ReportService answers read-only questions about the ledger.
type ReportService struct {
	listings *Listings
}

func NewReportService(listings *Listings) *ReportService {
	return &ReportService{listings: listings}
}

// NewFilter builds a filter from optional query strings. Empty bounds
// default to the range of whatever set the filter is applied to.
func NewFilter(from, to, worker string) (core.Filter, error) {
	var f core.Filter
	if strings.TrimSpace(from) != "" {
		d, err := core.ParseDate(from)
		if err != nil {
			return core.Filter{}, err
		}
		f.From = d
	}
	if strings.TrimSpace(to) != "" {
		d, err := core.ParseDate(to)
		if err != nil {
			return core.Filter{}, err
		}
		f.To = d
	}
	f.Worker = strings.TrimSpace(worker)
	return f, nil
}

// View returns the filtered records, newest first.
func (s *ReportService) View(ctx context.Context, f core.Filter) ([]core.WageRecord, error) {
	records, err := s.listings.Records(ctx)
	if err != nil {
		return nil, err
	}
	return core.ApplyFilter(records, f), nil
}

func (s *ReportService) Summary(ctx context.Context, f core.Filter) (core.Summary, error) {
	view, err := s.View(ctx, f)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(view), nil
}

// Dates lists the distinct work dates in the filtered view.
func (s *ReportService) Dates(ctx context.Context, f core.Filter) ([]core.Date, error) {
	view, err := s.View(ctx, f)
	if err != nil {
		return nil, err
	}
	return core.DatesPresent(view), nil
}
