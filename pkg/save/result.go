// Package save applies a batch of field edits posted by inline editors. Keys
// name a record and a field (recordId__fieldName); each value is decoded by
// the field's input control, applied to its record, and every modified
// record is committed through the store. The outcome is a Result carrying a
// status code, the aggregate error text and fresh values for every key.
package save

import (
	"strings"
)

// Status encodes the logical outcome of a save request.
type Status int

const (
	// StatusError means nothing was saved.
	StatusError Status = 0
	// StatusSuccess means every change was saved without errors.
	StatusSuccess Status = 1
	// StatusPartial means some changes were saved and some failed.
	StatusPartial Status = 2
	// StatusNoChanges means the submitted values matched the stored ones.
	StatusNoChanges Status = 3

	statusUnset Status = -1
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	case StatusPartial:
		return "partial"
	case StatusNoChanges:
		return "no-changes"
	default:
		return "unset"
	}
}

// FailedCSRFMessage is the error reported when the token check fails.
const FailedCSRFMessage = "Failed CSRF check"

// Result is the JSON payload returned to the client.
type Result struct {
	Status      Status            `json:"status"`
	Error       string            `json:"error"`
	Changes     string            `json:"changes"`
	Formatted   map[string]string `json:"formatted"`
	Unformatted map[string]string `json:"unformatted"`

	// Errors holds the individual messages joined into Error.
	Errors []string `json:"-"`
}

// collector accumulates messages and the running status of one request.
type collector struct {
	status    Status
	committed bool
	errors    []string
	changes   []string
}

func newCollector() *collector {
	return &collector{status: statusUnset}
}

func (c *collector) fail(message string) {
	c.errors = append(c.errors, message)
}

func (c *collector) commitFailed(message string) {
	c.fail(message)
	if c.committed {
		c.status = StatusPartial
		return
	}
	c.status = StatusError
}

func (c *collector) commitSucceeded(changes []string) {
	c.committed = true
	c.changes = append(c.changes, changes...)
	if len(c.errors) > 0 {
		c.status = StatusPartial
		return
	}
	c.status = StatusSuccess
}

func (c *collector) unchanged() {
	if c.status == statusUnset {
		c.status = StatusNoChanges
	}
}

func (c *collector) result() Result {
	messages := normalizeMessages(c.errors)
	status := c.status
	switch {
	case status == statusUnset && len(messages) == 0:
		status = StatusNoChanges
	case status == statusUnset, status == StatusNoChanges && len(messages) > 0:
		status = StatusError
	}
	return Result{
		Status:      status,
		Error:       strings.Join(messages, "\n"),
		Changes:     strings.Join(normalizeMessages(c.changes), ","),
		Formatted:   map[string]string{},
		Unformatted: map[string]string{},
		Errors:      messages,
	}
}

// normalizeMessages trims messages and removes duplicates while preserving
// order.
func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
