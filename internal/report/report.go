package report

// Field is one participant entry in a match report: the tagged participant
// and the statistic text they contributed.
type Field struct {
	// UserID is the tagged participant's user id.
	UserID string `json:"participant"`

	// Stat is the statistic text following the mention. Multi-token
	// statistics are joined with single spaces.
	Stat string `json:"stat"`
}

// Report is a parsed match report. It carries enough of the source message
// to regenerate a ledger row at certification time.
type Report struct {
	// MessageID is the source message identifier. Game records and ledger
	// rows are keyed by it.
	MessageID string `json:"message_id"`

	// ChannelID is the source channel identifier.
	ChannelID string `json:"channel_id"`

	// GuildID is the source guild identifier.
	GuildID string `json:"guild_id"`

	// ReporterID is the id of the user who posted the report.
	ReporterID string `json:"reporter_id"`

	// Fields is the ordered, non-empty participant field sequence. Every
	// participant id is distinct within the report.
	Fields []Field `json:"fields"`
}

// Participants returns the ordered participant ids of the report.
func (r *Report) Participants() []string {
	ids := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		ids[i] = f.UserID
	}

	return ids
}

// Tags returns true if the given user is one of the report's participants.
func (r *Report) Tags(userID string) bool {
	for _, f := range r.Fields {
		if f.UserID == userID {
			return true
		}
	}

	return false
}
