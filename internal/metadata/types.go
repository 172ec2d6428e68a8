// Package metadata supplies the publisher's default metadata dataset and
// filter evaluator. The protocol treats metadata as an external
// collaborator ("evaluate this filter expression, return matching rows");
// this package is the default, swappable implementation backing that
// collaborator so the rest of the module builds and runs end to end.
package metadata

import (
	"strings"

	uuid "github.com/satori/go.uuid"
)

// Row is one ActiveMeasurements-style metadata record: a signal a
// subscriber can filter on and subscribe to.
type Row struct {
	ID         uuid.UUID         `bson:"id"`
	SignalID   uuid.UUID         `bson:"signal_id"`
	Source     string            `bson:"source"`
	SignalType string            `bson:"signal_type"`
	Fields     map[string]string `bson:"fields"`
}

// Field looks up a column by name, checking the well-known columns before
// falling back to the free-form Fields map, so filter expressions can
// reference either without the evaluator caring which. Names match
// case-insensitively.
func (r Row) Field(name string) (string, bool) {
	switch strings.ToUpper(name) {
	case "ID":
		return r.ID.String(), true
	case "SIGNALID":
		return r.SignalID.String(), true
	case "SOURCE":
		return r.Source, true
	case "SIGNALTYPE":
		return r.SignalType, true
	}
	if v, ok := r.Fields[name]; ok {
		return v, true
	}
	for key, v := range r.Fields {
		if strings.EqualFold(key, name) {
			return v, true
		}
	}
	return "", false
}

// Dataset is a named table of metadata rows, such as ActiveMeasurements.
type Dataset interface {
	Name() string
	Rows() []Row
	Marshal() ([]byte, error)
}

// Evaluator resolves a subscriber's filter expression into the rows it
// selects. Dataset exposes the full backing catalog for callers, such
// as MetadataRefresh, that need the complete set rather than a filtered
// subscription.
type Evaluator interface {
	Evaluate(filterExpression string) ([]Row, error)
	Dataset() Dataset
}

// ParseError reports a malformed filter expression, carrying the original
// text so the caller can echo it back verbatim to the subscriber.
type ParseError struct {
	Expression string
	Reason     string
}

func (e *ParseError) Error() string {
	return "invalid filter expression \"" + e.Expression + "\": " + e.Reason
}
