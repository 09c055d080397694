package policy

// Policy answers permission questions against the configured admin and big
// admin identifier sets. All predicates are pure membership tests; the sets
// are loaded once at startup and never mutated.
type Policy struct {
	admins    map[string]struct{}
	bigAdmins map[string]struct{}
}

// New creates a Policy from the configured admin and big admin id lists. Big
// admins are implicitly admins as well.
func New(admins, bigAdmins []string) *Policy {
	p := &Policy{
		admins:    make(map[string]struct{}, len(admins)+len(bigAdmins)),
		bigAdmins: make(map[string]struct{}, len(bigAdmins)),
	}
	for _, id := range admins {
		p.admins[id] = struct{}{}
	}
	for _, id := range bigAdmins {
		p.admins[id] = struct{}{}
		p.bigAdmins[id] = struct{}{}
	}

	return p
}

// IsAdmin returns true if the user is in the configured admin set.
func (p *Policy) IsAdmin(userID string) bool {
	_, ok := p.admins[userID]
	return ok
}

// IsBigAdmin returns true if the user is in the configured big admin set.
func (p *Policy) IsBigAdmin(userID string) bool {
	_, ok := p.bigAdmins[userID]
	return ok
}

// IsSelfTag returns true when the acting user is the participant named in a
// report field. Used to suppress self-notification on report submission.
func (p *Policy) IsSelfTag(userID, participantID string) bool {
	return userID == participantID
}

// CanCertify returns true if the user may certify a validated report.
func (p *Policy) CanCertify(userID string) bool {
	return p.IsAdmin(userID)
}

// CanForceValidate returns true if the user's reaction validates a report
// regardless of whether they are a tagged participant.
func (p *Policy) CanForceValidate(userID string) bool {
	return p.IsBigAdmin(userID)
}
