package workspace

import (
	"context"
	"net/http"
	"net/url"
)

// DefaultColor is the accent used for app messages.
const DefaultColor = "#00B6CB"

// AppMessage is a passive message posted into a space, visible to all of its
// members.
type AppMessage struct {
	Title       string
	Text        string
	Color       string
	ActorName   string
	ActorAvatar string
	ActorURL    string
}

type appMessageBody struct {
	Type        string          `json:"type"`
	Version     float64         `json:"version"`
	Annotations []appAnnotation `json:"annotations"`
}

type appAnnotation struct {
	Type    string   `json:"type"`
	Version float64  `json:"version"`
	Color   string   `json:"color"`
	Title   string   `json:"title"`
	Text    string   `json:"text"`
	Actor   appActor `json:"actor"`
}

type appActor struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	URL    string `json:"url"`
}

// PostMessage posts m into spaceID.
func (c *Client) PostMessage(ctx context.Context, spaceID string, m AppMessage) error {
	tok, err := c.ClientCredentials(ctx)
	if err != nil {
		return err
	}

	color := m.Color
	if color == "" {
		color = DefaultColor
	}
	body := appMessageBody{
		Type:    "appMessage",
		Version: 1.0,
		Annotations: []appAnnotation{{
			Type:    "generic",
			Version: 1.0,
			Color:   color,
			Title:   m.Title,
			Text:    m.Text,
			Actor: appActor{
				Name:   m.ActorName,
				Avatar: m.ActorAvatar,
				URL:    m.ActorURL,
			},
		}},
	}

	path := "/v1/spaces/" + url.PathEscape(spaceID) + "/messages"
	return c.postJSON(ctx, "post message", path, tok.AccessToken, body, http.StatusCreated, nil)
}
