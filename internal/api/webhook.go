package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/expertfinder/internal/dialog"
	"github.com/kalambet/expertfinder/internal/intent"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Event types delivered to the callback.
const (
	eventVerification           = "verification"
	eventMessageAnnotationAdded = "message-annotation-added"
	eventMessageCreated         = "message-created"
)

// Event is the body of a webhook delivery. Content is a pointer so an absent
// field can be told apart from an empty message.
type Event struct {
	Type              string  `json:"type"`
	Challenge         string  `json:"challenge,omitempty"`
	MessageID         string  `json:"messageId,omitempty"`
	UserID            string  `json:"userId,omitempty"`
	UserName          string  `json:"userName,omitempty"`
	SpaceID           string  `json:"spaceId,omitempty"`
	SpaceName         string  `json:"spaceName,omitempty"`
	Content           *string `json:"content,omitempty"`
	AnnotationType    string  `json:"annotationType,omitempty"`
	AnnotationPayload string  `json:"annotationPayload,omitempty"`
}

// WebhookDeps holds the dependencies of the webhook handler.
type WebhookDeps struct {
	AppID            string
	WebhookSecret    string
	VerifySignatures bool
	Dispatcher       *Dispatcher
}

// NewWebhookHandler returns the router serving the platform callback and the
// health check.
func NewWebhookHandler(deps WebhookDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	if deps.VerifySignatures {
		r.With(SignedWebhook(deps.WebhookSecret)).Post("/callback", handleCallback(deps))
	} else {
		r.Post("/callback", handleCallback(deps))
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleCallback(deps WebhookDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid event body: %v", err)
			return
		}

		deliveryID := uuid.New().String()
		log := slog.With("delivery_id", deliveryID, "event_type", ev.Type)

		if ev.Type == eventVerification {
			log.Info("answering webhook verification challenge")
			answerChallenge(w, deps.WebhookSecret, ev.Challenge)
			return
		}

		if ev.UserID != "" && ev.UserID == deps.AppID {
			log.Debug("dropping event authored by the app")
			w.WriteHeader(http.StatusOK)
			return
		}
		if ev.Content != nil && *ev.Content == "" {
			log.Debug("dropping empty message")
			w.WriteHeader(http.StatusOK)
			return
		}

		// Acknowledge before any downstream work so the platform does not
		// redeliver.
		w.WriteHeader(http.StatusOK)

		switch ev.Type {
		case eventMessageAnnotationAdded:
			routeAnnotation(r, deps, log, deliveryID, ev)
		case eventMessageCreated:
			log.Debug("message created", "space_id", ev.SpaceID, "message_id", ev.MessageID)
		default:
			log.Info("skipping unwanted event type")
		}
	}
}

func routeAnnotation(r *http.Request, deps WebhookDeps, log *slog.Logger, deliveryID string, ev Event) {
	log = log.With("annotation_type", ev.AnnotationType, "space_id", ev.SpaceID)

	switch ev.AnnotationType {
	case intent.TypeMessageFocus:
		f, err := intent.ParseFocus(ev.AnnotationPayload)
		if err != nil {
			log.Warn("undecodable focus annotation", "error", err)
			return
		}
		if f.IsExpertQuery() {
			// The platform underlines the phrase; the user clicking it
			// arrives as an actionSelected event.
			log.Info("expert query detected", "phrase", f.Phrase, "confidence", intent.FormatConfidence(f.Confidence))
		}

	case intent.TypeActionSelected:
		a, err := intent.ParseActionSelected(ev.AnnotationPayload)
		if err != nil {
			log.Warn("undecodable action payload", "error", err)
			return
		}
		if deps.Dispatcher == nil {
			log.Warn("no dispatcher configured, dropping action", "action_id", a.ActionID)
			return
		}
		deps.Dispatcher.Dispatch(r.Context(), deliveryID, dialog.Request{
			Context: dialog.DialogContext{
				ConversationID: a.ConversationID,
				TargetUserID:   ev.UserID,
				TargetDialogID: a.TargetDialogID,
				SpaceID:        ev.SpaceID,
			},
			ActionID:          a.ActionID,
			ReferralMessageID: a.ReferralMessageID,
			UserName:          ev.UserName,
			SpaceName:         ev.SpaceName,
		})

	default:
		log.Debug("ignoring annotation")
	}
}

// answerChallenge echoes the challenge and signs the exact bytes sent.
func answerChallenge(w http.ResponseWriter, secret, challenge string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(struct {
		Response string `json:"response"`
	}{Response: challenge}); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "encoding challenge response: %v", err)
		return
	}
	body := bytes.TrimRight(buf.Bytes(), "\n")

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(SignatureHeader, Sign(secret, body))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, bytes.NewReader(body))
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
