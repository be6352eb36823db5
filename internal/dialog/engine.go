package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kalambet/expertfinder/internal/directory"
	"github.com/kalambet/expertfinder/internal/intent"
	"github.com/kalambet/expertfinder/internal/workspace"
)

// DialogContext correlates the turns of one interaction. It is forwarded to
// the gateway unchanged.
type DialogContext struct {
	ConversationID string
	TargetUserID   string
	TargetDialogID string
	SpaceID        string
}

// Request is one action fulfillment callback.
type Request struct {
	Context           DialogContext
	ActionID          string
	ReferralMessageID string
	UserName          string
	SpaceName         string
}

// Directory is the subset of the directory client the engine needs.
type Directory interface {
	SearchFullText(ctx context.Context, text string) (directory.SearchResult, error)
	SearchByID(ctx context.Context, userID string) (directory.Profile, error)
}

// Gateway is the subset of the messaging platform client the engine needs.
type Gateway interface {
	intent.AnnotationFetcher
	CreateTargetedMessage(ctx context.Context, m workspace.TargetedMessage) error
	PostMessage(ctx context.Context, spaceID string, m workspace.AppMessage) error
	PersonByEmail(ctx context.Context, email string) (workspace.Person, error)
	AddMember(ctx context.Context, spaceID, personID string) error
}

// SearchReporter records that a user picked a search term.
type SearchReporter interface {
	ReportSearch(ctx context.Context, user, space, query string) error
}

// Options configures how cards are rendered and branded.
type Options struct {
	DirectoryHost string
	OrgName       string
	OrgAvatarURL  string
	// Usage is optional.
	Usage SearchReporter
}

// Engine runs one dialog turn per action fulfillment callback. It keeps no
// state between turns; everything it needs comes from the Request.
type Engine struct {
	dir       Directory
	gw        Gateway
	extractor *intent.Extractor
	opts      Options
	logger    *slog.Logger
}

// NewEngine creates an Engine over the given directory and gateway.
func NewEngine(dir Directory, gw Gateway, opts Options) *Engine {
	return &Engine{
		dir:       dir,
		gw:        gw,
		extractor: intent.NewExtractor(gw),
		opts:      opts,
		logger:    slog.Default(),
	}
}

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying l. Handle logs through it, so
// fields added by the caller appear on every line of the turn.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// LoggerFrom returns the logger stored by WithLogger, or nil.
func LoggerFrom(ctx context.Context) *slog.Logger {
	l, _ := ctx.Value(loggerKey{}).(*slog.Logger)
	return l
}

// Handle decodes req.ActionID and performs the matching turn. Steps within a
// turn run strictly in order. An error means the turn was abandoned; the user
// may have received nothing.
func (e *Engine) Handle(ctx context.Context, req Request) error {
	a, err := Parse(req.ActionID)
	if err != nil {
		return err
	}

	log := LoggerFrom(ctx)
	if log == nil {
		log = e.logger
	}
	log = log.With(
		"action", Name(a),
		"conversation_id", req.Context.ConversationID,
		"space_id", req.Context.SpaceID,
	)
	log.Info("handling action", "user", req.UserName)

	switch a := a.(type) {
	case TriggerSearch:
		return e.triggerSearch(ctx, log, req)
	case Search:
		err := e.search(ctx, log, req, a.Term)
		e.reportSearch(ctx, log, req, a.Term)
		return err
	case ShowExpert:
		return e.show(ctx, log, req, a.UserID)
	case Invite:
		return e.invite(ctx, log, req, a)
	case Share:
		return e.share(ctx, log, req, a.UserID)
	case Stop:
		return e.send(ctx, req.Context, stopTurn())
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, req.ActionID)
}

func (e *Engine) triggerSearch(ctx context.Context, log *slog.Logger, req Request) error {
	q, err := e.extractor.Extract(ctx, req.ReferralMessageID)
	if errors.Is(err, intent.ErrNoExpertQuery) {
		log.Info("referral message has no expert query", "message_id", req.ReferralMessageID)
		return e.send(ctx, req.Context, noTermsTurn())
	}
	if err != nil {
		return fmt.Errorf("recovering expert query: %w", err)
	}
	if len(q.Keywords) == 0 {
		log.Info("expert query has no searchable keywords", "phrase", q.Phrase)
		return e.send(ctx, req.Context, noTermsTurn())
	}

	combos := Combinations(q.Keywords)
	terms := make([]string, 0, len(combos))
	for _, c := range combos {
		terms = append(terms, JoinTerms(c))
	}
	log.Info("expert query recovered", "keywords", q.Keywords, "confidence", intent.FormatConfidence(q.Confidence), "combinations", len(terms))

	if len(terms) == 1 {
		return e.search(ctx, log, req, terms[0])
	}
	return e.send(ctx, req.Context, combinationsTurn(q.Confidence, terms))
}

func (e *Engine) search(ctx context.Context, log *slog.Logger, req Request, term string) error {
	res, err := e.dir.SearchFullText(ctx, SearchText(term))
	if err != nil {
		return fmt.Errorf("searching %q: %w", term, err)
	}
	log.Info("directory search", "term", term, "total", res.TotalCount, "profiles", len(res.Profiles))

	switch {
	case res.TotalCount == 0 || len(res.Profiles) == 0:
		return e.send(ctx, req.Context, noResultsTurn())
	case res.TotalCount == 1:
		return e.show(ctx, log, req, res.Profiles[0].UserID)
	default:
		return e.send(ctx, req.Context, pickerTurn(res.Profiles))
	}
}

func (e *Engine) show(ctx context.Context, log *slog.Logger, req Request, userID string) error {
	p, err := e.dir.SearchByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", userID, err)
	}

	shareID, err := Share{UserID: p.UserID}.Encode()
	if err != nil {
		return err
	}

	var inviteID string
	if p.Email != "" {
		person, err := e.gw.PersonByEmail(ctx, p.Email)
		switch {
		case err == nil:
			inviteID, err = Invite{PersonID: person.ID, DisplayName: p.DisplayName}.Encode()
			if err != nil {
				log.Warn("cannot offer invite for expert", "user_id", p.UserID, "error", err)
				inviteID = ""
			}
		case errors.Is(err, workspace.ErrPersonNotFound):
			log.Debug("expert has no platform account", "user_id", p.UserID)
		default:
			log.Warn("person lookup failed, invite not offered", "user_id", p.UserID, "error", err)
		}
	}

	return e.send(ctx, req.Context, detailTurn(FormatProfile(p, e.opts.DirectoryHost), inviteID, shareID))
}

func (e *Engine) invite(ctx context.Context, log *slog.Logger, req Request, a Invite) error {
	spaceID := req.Context.SpaceID

	text := inviteOKText
	if err := e.gw.AddMember(ctx, spaceID, a.PersonID); err != nil {
		if isAuthError(err) {
			return fmt.Errorf("adding member: %w", err)
		}
		log.Warn("adding member to space failed", "person_id", a.PersonID, "error", err)
		text = inviteFailedText
	} else {
		msg := workspace.AppMessage{
			Text:      "... I have invited " + a.DisplayName + " into this space.",
			ActorName: inviteActor,
		}
		if err := e.gw.PostMessage(ctx, spaceID, msg); err != nil {
			log.Warn("posting invite notice failed", "error", err)
		}
	}

	return e.send(ctx, req.Context, statusTurn(text))
}

func (e *Engine) share(ctx context.Context, log *slog.Logger, req Request, userID string) error {
	p, err := e.dir.SearchByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", userID, err)
	}

	msg := workspace.AppMessage{
		Title:       e.opts.OrgName,
		Text:        FormatProfile(p, e.opts.DirectoryHost),
		ActorName:   shareActor,
		ActorAvatar: e.opts.OrgAvatarURL,
	}

	text := shareOKText
	if err := e.gw.PostMessage(ctx, req.Context.SpaceID, msg); err != nil {
		if isAuthError(err) {
			return fmt.Errorf("sharing expert: %w", err)
		}
		log.Warn("sharing expert card failed", "user_id", userID, "error", err)
		text = shareFailedText
	}

	return e.send(ctx, req.Context, statusTurn(text))
}

func (e *Engine) reportSearch(ctx context.Context, log *slog.Logger, req Request, term string) {
	if e.opts.Usage == nil {
		return
	}
	if err := e.opts.Usage.ReportSearch(ctx, req.UserName, req.SpaceName, term); err != nil {
		log.Warn("usage report failed", "error", err)
	}
}

func (e *Engine) send(ctx context.Context, dc DialogContext, t Turn) error {
	err := e.gw.CreateTargetedMessage(ctx, workspace.TargetedMessage{
		ConversationID: dc.ConversationID,
		TargetUserID:   dc.TargetUserID,
		TargetDialogID: dc.TargetDialogID,
		Title:          t.Title,
		Text:           t.Text,
		Buttons:        t.Buttons,
	})
	if err != nil {
		return fmt.Errorf("sending %q turn: %w", t.Title, err)
	}
	return nil
}

func isAuthError(err error) bool {
	var ae *workspace.AuthError
	return errors.As(err, &ae)
}
