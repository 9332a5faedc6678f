package backend

import "strings"

// CommandResult accumulates a drained engine log stream. Failure is
// in-band: an item carrying error/errorDetail marks the whole command
// as failed, absence of such an item across the stream marks success.
type CommandResult struct {
	logs        []string
	parsed      []LogItem
	err         string
	errorDetail *ErrorDetail
}

// ParseItem folds one stream item into the result.
func (r *CommandResult) ParseItem(item LogItem) {
	r.parsed = append(r.parsed, item)

	for _, line := range strings.Split(item.Stream, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			r.logs = append(r.logs, line)
		}
	}
	if item.Status != "" {
		r.logs = append(r.logs, item.Status)
	}

	if item.Error != "" {
		r.err = item.Error
	}
	if item.ErrorDetail != nil {
		r.errorDetail = item.ErrorDetail
	}
}

// Logs returns the flattened log lines seen so far.
func (r *CommandResult) Logs() []string { return r.logs }

// ParsedItems returns the raw decoded items.
func (r *CommandResult) ParsedItems() []LogItem { return r.parsed }

// Error returns the failure message, or "" on success.
func (r *CommandResult) Error() string {
	if r.err != "" {
		return r.err
	}
	if r.errorDetail != nil {
		return r.errorDetail.Message
	}
	return ""
}

// IsFailed reports whether any stream item carried an error.
func (r *CommandResult) IsFailed() bool {
	return r.err != "" || r.errorDetail != nil
}

// Wait drains a log stream into a CommandResult, blocking until the
// stream is closed.
func Wait(stream <-chan LogItem) *CommandResult {
	result := &CommandResult{}
	for item := range stream {
		result.ParseItem(item)
	}
	return result
}
