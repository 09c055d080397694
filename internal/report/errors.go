package report

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a report failed to parse. The kinds are the
// user-input error taxonomy; each maps to a user-facing reply.
type FailureKind int

const (
	// UnknownCommand means the command token is not a recognized score
	// command.
	UnknownCommand FailureKind = iota

	// EmptyFieldList means the report tags no participants, or fewer than
	// the configured minimum without a big admin override.
	EmptyFieldList

	// MalformedField means a field is missing its participant mention or
	// its statistic token.
	MalformedField

	// DuplicateParticipant means the same participant is tagged more than
	// once.
	DuplicateParticipant

	// SelfOnlyReport means the report tags only its author and the author
	// is not a big admin.
	SelfOnlyReport
)

// String returns the kind's name.
func (k FailureKind) String() string {
	switch k {
	case UnknownCommand:
		return "unknown_command"
	case EmptyFieldList:
		return "empty_field_list"
	case MalformedField:
		return "malformed_field"
	case DuplicateParticipant:
		return "duplicate_participant"
	case SelfOnlyReport:
		return "self_only_report"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// ParseError is a typed validation failure produced by the parser. Index is
// the zero-based field position for MalformedField and is unused otherwise.
type ParseError struct {
	Kind  FailureKind
	Index int
}

// Error returns the user-facing failure reason. The text is quoted back to
// the reporting user verbatim.
func (e *ParseError) Error() string {
	switch e.Kind {
	case UnknownCommand:
		return "Unrecognized score command"
	case EmptyFieldList:
		return "Not enough tagged participants in this report"
	case MalformedField:
		return fmt.Sprintf(
			"Participant entry %d is missing its mention or score",
			e.Index+1,
		)
	case DuplicateParticipant:
		return "The same participant is tagged more than once"
	case SelfOnlyReport:
		return "A report must include at least one other participant"
	default:
		return "Invalid score report"
	}
}

// AsParseError returns the wrapped ParseError if err is one.
func AsParseError(err error) (*ParseError, bool) {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr, true
	}

	return nil, false
}
