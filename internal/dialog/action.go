package dialog

import (
	"errors"
	"fmt"
	"strings"
)

// Action identifiers. Prefixed verbs are sliced at a fixed length, so the
// prefixes are part of the wire contract with already rendered buttons.
const (
	TriggerSearchID = "Get_Connections_Experts"
	StopID          = "STOP"

	searchPrefix = "CSEARCH-"
	showPrefix   = "SHOWEXPERT-"
	sharePrefix  = "SHARE-"
	inviteVerb   = "INVITE"

	// FieldSeparator splits the fields of an INVITE identifier.
	FieldSeparator = "****"
)

var (
	// ErrUnknownAction is returned for identifiers with no known verb.
	ErrUnknownAction = errors.New("dialog: unknown action")
	// ErrMalformedAction is returned for a known verb with a bad payload.
	ErrMalformedAction = errors.New("dialog: malformed action")
	// ErrSeparatorInField is returned when an INVITE field contains the
	// field separator and could not be parsed back.
	ErrSeparatorInField = errors.New("dialog: field contains " + FieldSeparator)
)

// Action is a decoded button identifier. It is the only state carried from
// one dialog turn to the next.
type Action interface {
	// Encode renders the identifier to embed in a button.
	Encode() (string, error)
	isAction()
}

// TriggerSearch restarts the flow from the referral message's expert query.
type TriggerSearch struct{}

// Search runs a full text directory search for Term.
type Search struct {
	Term string
}

// ShowExpert shows the detail card of one directory profile.
type ShowExpert struct {
	UserID string
}

// Invite adds a platform account to the current space.
type Invite struct {
	PersonID    string
	DisplayName string
}

// Share posts a profile card into the current space.
type Share struct {
	UserID string
}

// Stop closes the dialog.
type Stop struct{}

func (TriggerSearch) isAction() {}
func (Search) isAction()        {}
func (ShowExpert) isAction()    {}
func (Invite) isAction()        {}
func (Share) isAction()         {}
func (Stop) isAction()          {}

func (TriggerSearch) Encode() (string, error) { return TriggerSearchID, nil }
func (Stop) Encode() (string, error)          { return StopID, nil }

func (a Search) Encode() (string, error) {
	if a.Term == "" {
		return "", fmt.Errorf("%w: empty search term", ErrMalformedAction)
	}
	return searchPrefix + a.Term, nil
}

func (a ShowExpert) Encode() (string, error) {
	if a.UserID == "" {
		return "", fmt.Errorf("%w: empty user id", ErrMalformedAction)
	}
	return showPrefix + a.UserID, nil
}

func (a Share) Encode() (string, error) {
	if a.UserID == "" {
		return "", fmt.Errorf("%w: empty user id", ErrMalformedAction)
	}
	return sharePrefix + a.UserID, nil
}

func (a Invite) Encode() (string, error) {
	if a.PersonID == "" {
		return "", fmt.Errorf("%w: empty person id", ErrMalformedAction)
	}
	if strings.Contains(a.PersonID, FieldSeparator) || strings.Contains(a.DisplayName, FieldSeparator) {
		return "", ErrSeparatorInField
	}
	return strings.Join([]string{inviteVerb, a.PersonID, a.DisplayName}, FieldSeparator), nil
}

// Parse decodes a button identifier received in an actionSelected event.
func Parse(id string) (Action, error) {
	switch {
	case id == TriggerSearchID:
		return TriggerSearch{}, nil
	case id == StopID:
		return Stop{}, nil
	case strings.HasPrefix(id, searchPrefix):
		term := id[len(searchPrefix):]
		if term == "" {
			return nil, fmt.Errorf("%w: %q has no search term", ErrMalformedAction, id)
		}
		return Search{Term: term}, nil
	case strings.HasPrefix(id, showPrefix):
		userID := id[len(showPrefix):]
		if userID == "" {
			return nil, fmt.Errorf("%w: %q has no user id", ErrMalformedAction, id)
		}
		return ShowExpert{UserID: userID}, nil
	case strings.HasPrefix(id, sharePrefix):
		userID := id[len(sharePrefix):]
		if userID == "" {
			return nil, fmt.Errorf("%w: %q has no user id", ErrMalformedAction, id)
		}
		return Share{UserID: userID}, nil
	case strings.HasPrefix(id, inviteVerb+FieldSeparator):
		fields := strings.Split(id, FieldSeparator)
		if len(fields) != 3 || fields[1] == "" {
			return nil, fmt.Errorf("%w: %q does not have exactly a person id and a name", ErrMalformedAction, id)
		}
		return Invite{PersonID: fields[1], DisplayName: fields[2]}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, id)
}

// Name is the verb of a, for logging.
func Name(a Action) string {
	switch a.(type) {
	case TriggerSearch:
		return "trigger_search"
	case Search:
		return "search"
	case ShowExpert:
		return "show_expert"
	case Invite:
		return "invite"
	case Share:
		return "share"
	case Stop:
		return "stop"
	}
	return "unknown"
}

// SearchText turns a search term into directory search text: terms joined
// from several keywords are separated by spaces again.
func SearchText(term string) string {
	return strings.Join(strings.FieldsFunc(term, func(r rune) bool {
		return r == termSeparator || r == ' '
	}), " ")
}

const termSeparator = ','

// JoinTerms joins a keyword combination into one search term.
func JoinTerms(keywords []string) string {
	return strings.Join(keywords, string(termSeparator))
}
