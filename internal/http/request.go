package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"wagebook/internal/core"
	"wagebook/internal/services"
)

const maxBodyBytes = 1 << 20

var errBadID = errors.New("id must be a positive integer")

// decodeRequest fills v from a JSON body, or calls fromForm with a getter
// over the parsed form for any other content type.
func decodeRequest(r *http.Request, v any, fromForm func(get func(string) string)) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("invalid JSON body: %w", err)
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("invalid form body: %w", err)
	}
	fromForm(func(key string) string { return sanitizeInput(r.PostForm.Get(key)) })
	return nil
}

func decodeRecordInput(r *http.Request) (services.RecordInput, error) {
	var in services.RecordInput
	err := decodeRequest(r, &in, func(get func(string) string) {
		in = services.RecordInput{
			WorkerName: get("worker_name"),
			Category:   get("category"),
			Amount:     get("salary"),
			WorkDate:   get("date"),
			Note:       get("notes"),
		}
	})
	return in, err
}

func decodeWorkerInput(r *http.Request) (services.WorkerInput, error) {
	var in services.WorkerInput
	err := decodeRequest(r, &in, func(get func(string) string) {
		in = services.WorkerInput{
			Name:     get("worker_name"),
			Category: get("category"),
			Contact:  get("contact"),
		}
	})
	return in, err
}

// parseFilter reads the optional from, to and worker query parameters.
func parseFilter(r *http.Request) (core.Filter, error) {
	q := r.URL.Query()
	return services.NewFilter(q.Get("from"), q.Get("to"), sanitizeInput(q.Get("worker")))
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

// sanitizeInput trims and drops control characters other than tab and
// newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
