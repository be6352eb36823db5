package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const graphQLPath = "/graphql"

// Operation documents are fixed; every caller-supplied value travels in
// variables, never in the query text.
const (
	createTargetedMessageDoc = `mutation CreateTargetedMessage($input: CreateTargetedMessageInput!) {
  createTargetedMessage(input: $input) { successful }
}`

	messageAnnotationsDoc = `query GetMessage($id: ID!) {
  message(id: $id) { annotations }
}`

	personByEmailDoc = `query GetProfile($email: String!) {
  person(email: $email) { id displayName }
}`

	addMembersDoc = `mutation UpdateSpaceAddMembers($input: UpdateSpaceInput!) {
  updateSpace(input: $input) { memberIdsChanged }
}`

	listSpacesDoc = `query GetSpaces($first: Int!) {
  spaces(first: $first) { items { id title } }
}`
)

const spacesPageSize = 200

// ErrUnsuccessful is returned when a mutation is accepted but reports
// successful=false.
var ErrUnsuccessful = errors.New("workspace: mutation not successful")

// ButtonStyle is the visual weight of a postback button.
type ButtonStyle string

const (
	Primary   ButtonStyle = "PRIMARY"
	Secondary ButtonStyle = "SECONDARY"
)

// Button is one postback button of a dialog turn. ID is echoed back verbatim
// in the actionSelected event when the user clicks it.
type Button struct {
	Title string      `json:"title"`
	ID    string      `json:"id"`
	Style ButtonStyle `json:"style"`
}

// TargetedMessage is a dialog turn visible only to TargetUserID.
type TargetedMessage struct {
	ConversationID string
	TargetUserID   string
	TargetDialogID string
	Title          string
	Text           string
	Buttons        []Button
}

// Person is a platform account.
type Person struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Space is a collaboration space the app belongs to.
type Space struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// graphQL runs one operation with a fresh app token and decodes data into out.
func (c *Client) graphQL(ctx context.Context, op, doc string, vars map[string]any, out any) error {
	tok, err := c.ClientCredentials(ctx)
	if err != nil {
		return err
	}

	var resp graphQLResponse
	if err := c.postJSON(ctx, op, graphQLPath, tok.AccessToken, graphQLRequest{Query: doc, Variables: vars}, http.StatusOK, &resp); err != nil {
		return err
	}

	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return &GraphQLError{Messages: msgs}
	}

	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decoding %s data: %w", op, err)
	}
	return nil
}

// CreateTargetedMessage sends a private dialog turn to one user.
func (c *Client) CreateTargetedMessage(ctx context.Context, m TargetedMessage) error {
	annotation := map[string]any{
		"title": m.Title,
		"text":  m.Text,
	}
	if len(m.Buttons) > 0 {
		buttons := make([]map[string]Button, 0, len(m.Buttons))
		for _, b := range m.Buttons {
			buttons = append(buttons, map[string]Button{"postbackButton": b})
		}
		annotation["buttons"] = buttons
	}

	vars := map[string]any{
		"input": map[string]any{
			"conversationId": m.ConversationID,
			"targetUserId":   m.TargetUserID,
			"targetDialogId": m.TargetDialogID,
			"annotations": []map[string]any{
				{"genericAnnotation": annotation},
			},
		},
	}

	var data struct {
		CreateTargetedMessage struct {
			Successful bool `json:"successful"`
		} `json:"createTargetedMessage"`
	}
	if err := c.graphQL(ctx, "createTargetedMessage", createTargetedMessageDoc, vars, &data); err != nil {
		return err
	}
	if !data.CreateTargetedMessage.Successful {
		return ErrUnsuccessful
	}
	return nil
}

// MessageAnnotations returns the raw JSON annotations attached to a message.
func (c *Client) MessageAnnotations(ctx context.Context, messageID string) ([]string, error) {
	var data struct {
		Message *struct {
			Annotations []string `json:"annotations"`
		} `json:"message"`
	}
	if err := c.graphQL(ctx, "message", messageAnnotationsDoc, map[string]any{"id": messageID}, &data); err != nil {
		return nil, err
	}
	if data.Message == nil {
		return nil, nil
	}
	return data.Message.Annotations, nil
}

// PersonByEmail resolves the platform account for an email address.
func (c *Client) PersonByEmail(ctx context.Context, email string) (Person, error) {
	var data struct {
		Person *Person `json:"person"`
	}
	if err := c.graphQL(ctx, "person", personByEmailDoc, map[string]any{"email": email}, &data); err != nil {
		return Person{}, err
	}
	if data.Person == nil || data.Person.ID == "" {
		return Person{}, ErrPersonNotFound
	}
	return *data.Person, nil
}

// AddMember adds personID to the members of spaceID.
func (c *Client) AddMember(ctx context.Context, spaceID, personID string) error {
	vars := map[string]any{
		"input": map[string]any{
			"id":              spaceID,
			"members":         []string{personID},
			"memberOperation": "ADD",
		},
	}
	return c.graphQL(ctx, "updateSpace", addMembersDoc, vars, nil)
}

// ListSpaces returns the first page of spaces the app is a member of.
func (c *Client) ListSpaces(ctx context.Context) ([]Space, error) {
	var data struct {
		Spaces *struct {
			Items []Space `json:"items"`
		} `json:"spaces"`
	}
	if err := c.graphQL(ctx, "spaces", listSpacesDoc, map[string]any{"first": spacesPageSize}, &data); err != nil {
		return nil, err
	}
	if data.Spaces == nil {
		return []Space{}, nil
	}
	return data.Spaces.Items, nil
}
