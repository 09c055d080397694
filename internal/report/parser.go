package report

import (
	"regexp"
	"strings"

	"github.com/matchledger/matchledger/internal/chat"
)

// mentionRE matches a participant mention token, with or without the
// nickname marker, capturing the numeric user id.
var mentionRE = regexp.MustCompile(`^<@!?([0-9]+)>$`)

// DefaultMinFields is the minimum number of participant fields a report must
// carry unless the reporter is a big admin.
const DefaultMinFields = 2

// AdminPolicy is the slice of the permission policy the parser consults for
// its configuration-driven exception paths.
type AdminPolicy interface {
	// IsBigAdmin reports whether the user may file reports that relax the
	// field-count and self-report rules.
	IsBigAdmin(userID string) bool
}

// Parser turns raw score-command text into a structured Report or a typed
// ParseError. It is side-effect free and deterministic for a given input and
// admin set.
type Parser struct {
	commands  map[string]struct{}
	minFields int
	admins    AdminPolicy
}

// NewParser creates a parser recognizing the given score-command tokens. A
// non-positive minFields falls back to DefaultMinFields.
func NewParser(commands []string, minFields int, admins AdminPolicy) *Parser {
	if minFields <= 0 {
		minFields = DefaultMinFields
	}

	cmdSet := make(map[string]struct{}, len(commands))
	for _, cmd := range commands {
		cmdSet[cmd] = struct{}{}
	}

	return &Parser{
		commands:  cmdSet,
		minFields: minFields,
		admins:    admins,
	}
}

// IsScoreCommand reports whether the message content starts with a
// recognized score command. Used as the controller's cheap pre-filter before
// any record lookup.
func (p *Parser) IsScoreCommand(content string) bool {
	tokens := strings.Fields(content)
	if len(tokens) == 0 {
		return false
	}

	_, ok := p.commands[tokens[0]]

	return ok
}

// Parse validates the message content and extracts the participant fields.
// Big admins may file reports below the minimum field count and on behalf of
// absent participants; everyone else gets the strict rules.
func (p *Parser) Parse(msg chat.Message) (*Report, error) {
	tokens := strings.Fields(msg.Content)
	if len(tokens) == 0 {
		return nil, &ParseError{Kind: UnknownCommand}
	}
	if _, ok := p.commands[tokens[0]]; !ok {
		return nil, &ParseError{Kind: UnknownCommand}
	}

	fields, err := splitFields(tokens[1:])
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return nil, &ParseError{Kind: EmptyFieldList}
	}

	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, dup := seen[f.UserID]; dup {
			return nil, &ParseError{Kind: DuplicateParticipant}
		}
		seen[f.UserID] = struct{}{}
	}

	relaxed := p.admins.IsBigAdmin(msg.AuthorID)

	if len(fields) < p.minFields && !relaxed {
		return nil, &ParseError{Kind: EmptyFieldList}
	}

	if !relaxed && selfOnly(fields, msg.AuthorID) {
		return nil, &ParseError{Kind: SelfOnlyReport}
	}

	return &Report{
		MessageID:  msg.ID,
		ChannelID:  msg.ChannelID,
		GuildID:    msg.GuildID,
		ReporterID: msg.AuthorID,
		Fields:     fields,
	}, nil
}

// splitFields walks the payload tokens, opening a new field at every mention
// and folding the following tokens into that field's statistic.
func splitFields(payload []string) ([]Field, error) {
	var fields []Field
	cur := -1

	for _, tok := range payload {
		if m := mentionRE.FindStringSubmatch(tok); m != nil {
			// The previous field must have collected a statistic
			// before the next mention opens a new one.
			if cur >= 0 && fields[cur].Stat == "" {
				return nil, &ParseError{
					Kind:  MalformedField,
					Index: cur,
				}
			}

			fields = append(fields, Field{UserID: m[1]})
			cur++

			continue
		}

		// A statistic token before any mention has no field to attach
		// to.
		if cur < 0 {
			return nil, &ParseError{Kind: MalformedField}
		}

		if fields[cur].Stat == "" {
			fields[cur].Stat = tok
		} else {
			fields[cur].Stat += " " + tok
		}
	}

	if cur >= 0 && fields[cur].Stat == "" {
		return nil, &ParseError{Kind: MalformedField, Index: cur}
	}

	return fields, nil
}

// selfOnly reports whether every field names the author.
func selfOnly(fields []Field, authorID string) bool {
	for _, f := range fields {
		if f.UserID != authorID {
			return false
		}
	}

	return true
}
