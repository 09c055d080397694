package report

import (
	"fmt"
	"strings"
	"testing"

	"github.com/matchledger/matchledger/internal/chat"
	"github.com/matchledger/matchledger/internal/policy"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// testParser builds a parser with user 901 as the only big admin.
func testParser() *Parser {
	return NewParser(
		[]string{"!score", "!s"}, 2,
		policy.New(nil, []string{"901"}),
	)
}

// scoreMsg wraps content in a message authored by the given user.
func scoreMsg(authorID, content string) chat.Message {
	return chat.Message{
		ID:        "msg-1",
		ChannelID: "chan-1",
		GuildID:   "guild-1",
		AuthorID:  authorID,
		Content:   content,
	}
}

// requireKind asserts err is a ParseError of the given kind.
func requireKind(t *testing.T, err error, kind FailureKind) {
	t.Helper()

	require.Error(t, err)
	parseErr, ok := AsParseError(err)
	require.True(t, ok, "expected ParseError, got %T", err)
	require.Equal(t, kind, parseErr.Kind)
}

// TestParseValidReport covers the well-formed two-participant case.
func TestParseValidReport(t *testing.T) {
	p := testParser()

	rep, err := p.Parse(scoreMsg(
		"100", "!score <@100> 10 kills <@200> 7 kills 2 deaths",
	))
	require.NoError(t, err)

	require.Equal(t, "msg-1", rep.MessageID)
	require.Equal(t, "100", rep.ReporterID)
	require.Equal(t, []Field{
		{UserID: "100", Stat: "10 kills"},
		{UserID: "200", Stat: "7 kills 2 deaths"},
	}, rep.Fields)
}

// TestParseNicknameMention covers the alternate mention form.
func TestParseNicknameMention(t *testing.T) {
	p := testParser()

	rep, err := p.Parse(scoreMsg("100", "!score <@!100> 3 <@!200> 4"))
	require.NoError(t, err)
	require.Equal(t, "100", rep.Fields[0].UserID)
	require.Equal(t, "200", rep.Fields[1].UserID)
}

// TestParseFailures covers the typed failure taxonomy.
func TestParseFailures(t *testing.T) {
	p := testParser()

	cases := []struct {
		name    string
		content string
		kind    FailureKind
	}{
		{
			name:    "unknown command",
			content: "!points <@100> 1 <@200> 2",
			kind:    UnknownCommand,
		},
		{
			name:    "empty content",
			content: "",
			kind:    UnknownCommand,
		},
		{
			name:    "no fields",
			content: "!score",
			kind:    EmptyFieldList,
		},
		{
			name:    "below minimum",
			content: "!score <@200> 5",
			kind:    EmptyFieldList,
		},
		{
			name:    "mention without stat",
			content: "!score <@100> <@200> 5",
			kind:    MalformedField,
		},
		{
			name:    "trailing mention without stat",
			content: "!score <@100> 5 <@200>",
			kind:    MalformedField,
		},
		{
			name:    "stat before any mention",
			content: "!score 5 kills <@100> 3",
			kind:    MalformedField,
		},
		{
			name:    "duplicate participant",
			content: "!score <@200> 5 <@200> 6",
			kind:    DuplicateParticipant,
		},
		{
			name:    "author tagged twice",
			content: "!score <@100> 5 <@100> 6",
			kind:    DuplicateParticipant,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Parse(scoreMsg("100", tc.content))
			requireKind(t, err, tc.kind)
		})
	}
}

// TestParseSelfOnly covers a multi-field report that still only names its
// author.
func TestParseSelfOnly(t *testing.T) {
	p := NewParser([]string{"!score"}, 1, policy.New(nil, nil))

	_, err := p.Parse(scoreMsg("100", "!score <@100> 5 kills"))
	requireKind(t, err, SelfOnlyReport)
}

// TestMalformedFieldIndex verifies the failing field's position is reported
// one-based.
func TestMalformedFieldIndex(t *testing.T) {
	p := testParser()

	_, err := p.Parse(scoreMsg("100", "!score <@100> 5 <@200> <@300> 7"))
	parseErr, ok := AsParseError(err)
	require.True(t, ok)
	require.Equal(t, MalformedField, parseErr.Kind)
	require.Contains(t, parseErr.Error(), "entry 2")
}

// TestBigAdminRelaxations verifies big admins bypass the field-count and
// self-report rules but not the structural ones.
func TestBigAdminRelaxations(t *testing.T) {
	p := testParser()

	// Below minimum, self-only: allowed for the big admin.
	rep, err := p.Parse(scoreMsg("901", "!score <@901> 20 kills"))
	require.NoError(t, err)
	require.Len(t, rep.Fields, 1)

	// Structural failures still apply.
	_, err = p.Parse(scoreMsg("901", "!score <@901>"))
	requireKind(t, err, MalformedField)

	_, err = p.Parse(scoreMsg("901", "!score <@901> 1 <@901> 2"))
	requireKind(t, err, DuplicateParticipant)
}

// TestIsScoreCommand covers the cheap pre-filter.
func TestIsScoreCommand(t *testing.T) {
	p := testParser()

	require.True(t, p.IsScoreCommand("!score <@100> 1"))
	require.True(t, p.IsScoreCommand("!s"))
	require.True(t, p.IsScoreCommand("  !score padded"))
	require.False(t, p.IsScoreCommand("!scoreboard <@100> 1"))
	require.False(t, p.IsScoreCommand("gg"))
	require.False(t, p.IsScoreCommand(""))
}

// TestParseRoundTrip generates random well-formed reports and verifies the
// parser reconstructs exactly the generated fields.
func TestParseRoundTrip(t *testing.T) {
	p := testParser()

	rapid.Check(t, func(t *rapid.T) {
		numFields := rapid.IntRange(2, 6).Draw(t, "numFields")

		var (
			sb     strings.Builder
			fields []Field
			seen   = map[string]struct{}{}
		)
		sb.WriteString("!score")

		for i := 0; i < numFields; i++ {
			var id string
			for {
				id = fmt.Sprintf(
					"%d", rapid.IntRange(100, 999).Draw(t, "id"),
				)
				if _, dup := seen[id]; !dup {
					break
				}
			}
			seen[id] = struct{}{}

			numStat := rapid.IntRange(1, 3).Draw(t, "numStat")
			statTokens := make([]string, numStat)
			for j := 0; j < numStat; j++ {
				statTokens[j] = rapid.StringMatching(
					`[a-z0-9]{1,6}`,
				).Draw(t, "stat")
			}
			stat := strings.Join(statTokens, " ")

			fmt.Fprintf(&sb, " <@%s> %s", id, stat)
			fields = append(fields, Field{UserID: id, Stat: stat})
		}

		// The author is the first participant, so the report is never
		// self-only.
		rep, err := p.Parse(scoreMsg(fields[0].UserID, sb.String()))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}

		if len(rep.Fields) != len(fields) {
			t.Fatalf("field count mismatch: %d != %d",
				len(rep.Fields), len(fields))
		}
		for i := range fields {
			if rep.Fields[i] != fields[i] {
				t.Fatalf("field %d mismatch: %+v != %+v",
					i, rep.Fields[i], fields[i])
			}
		}
	})
}
