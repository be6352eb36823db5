package dialog

import (
	"net/url"
	"strings"

	"github.com/kalambet/expertfinder/internal/directory"
	"github.com/kalambet/expertfinder/internal/intent"
	"github.com/kalambet/expertfinder/internal/workspace"
)

const lineBreak = "\r\n"

// Turn is one rendered dialog card before it is addressed to a user.
type Turn struct {
	Title   string
	Text    string
	Buttons []workspace.Button
}

var (
	stopButton        = workspace.Button{Title: "No thanks, I'm good", ID: StopID, Style: workspace.Secondary}
	searchAgainButton = workspace.Button{Title: "Search Again ?", ID: TriggerSearchID, Style: workspace.Secondary}
)

// FormatProfile renders the expert card shared in dialogs and spaces. The
// title segment is omitted when the profile has no title.
func FormatProfile(p directory.Profile, directoryHost string) string {
	var sb strings.Builder
	sb.WriteString("*" + p.DisplayName + "*")
	if p.Title != "" {
		sb.WriteString(" (" + p.Title + ")")
	}
	sb.WriteString(lineBreak)
	sb.WriteString("Email : [" + p.Email + "](mailto:" + p.Email + ")")
	sb.WriteString(lineBreak)
	sb.WriteString("Link to profile : [browser](" + directory.ProfileURL(directoryHost, p.UserID) + ")")
	sb.WriteString(" / [mobile](ibmscp://com.ibm.connections/profiles?userid=" + url.QueryEscape(p.UserID) + ")")
	return sb.String()
}

func noTermsTurn() Turn {
	return Turn{
		Title: "Looking for an expert ?",
		Text:  "Sorry, I couldn't find anything to search for in that message. Do you want to try again ?",
		Buttons: []workspace.Button{
			{Title: "Yes, please !", ID: TriggerSearchID, Style: workspace.Primary},
			stopButton,
		},
	}
}

// combinationsTurn offers one button per search term. Callers guarantee
// terms is non-empty.
func combinationsTurn(confidence float64, terms []string) Turn {
	buttons := make([]workspace.Button, 0, len(terms)+1)
	for _, term := range terms {
		id, _ := Search{Term: term}.Encode()
		buttons = append(buttons, workspace.Button{Title: term, ID: id, Style: workspace.Primary})
	}
	buttons = append(buttons, stopButton)
	return Turn{
		Title: "Looking for an expert ?",
		Text: "I'm " + intent.FormatConfidence(confidence) +
			"% sure you're looking for an expert and detected these possible search combinations. Please select one :",
		Buttons: buttons,
	}
}

func noResultsTurn() Turn {
	return Turn{
		Title: "Expert details",
		Text:  "Sorry, couldn't find any experts. Do you want to try again ?",
		Buttons: []workspace.Button{
			{Title: "Yes, please !", ID: TriggerSearchID, Style: workspace.Primary},
			stopButton,
		},
	}
}

func pickerTurn(profiles []directory.Profile) Turn {
	buttons := make([]workspace.Button, 0, len(profiles)+2)
	for _, p := range profiles {
		id, err := ShowExpert{UserID: p.UserID}.Encode()
		if err != nil {
			continue
		}
		buttons = append(buttons, workspace.Button{Title: p.DisplayName, ID: id, Style: workspace.Primary})
	}
	buttons = append(buttons, searchAgainButton, stopButton)
	return Turn{
		Title:   "Results",
		Text:    "I've found these experts. Select one to get more details.",
		Buttons: buttons,
	}
}

// detailTurn renders an expert card. inviteID is empty when the expert has
// no platform account to invite.
func detailTurn(card, inviteID, shareID string) Turn {
	var buttons []workspace.Button
	if inviteID != "" {
		buttons = append(buttons, workspace.Button{Title: "Invite to space", ID: inviteID, Style: workspace.Primary})
	}
	buttons = append(buttons,
		workspace.Button{Title: "Share details with space", ID: shareID, Style: workspace.Primary},
		searchAgainButton,
		stopButton,
	)
	return Turn{Title: "Expert details", Text: card, Buttons: buttons}
}

// statusTurn follows an invite or share with a status line.
func statusTurn(text string) Turn {
	return Turn{
		Title:   "Expert details",
		Text:    text,
		Buttons: []workspace.Button{searchAgainButton, stopButton},
	}
}

func stopTurn() Turn {
	return Turn{Title: "OK", Text: "No problem. You can safely close this window now."}
}

const (
	inviteOKText     = "The user was successfully added to this space. Anything else you need ?"
	inviteFailedText = "I'm sorry, I was unable to add the expert to this space. Is there anything else I can help you with ?"
	shareOKText      = "I've shared the expert details with the Space. Is there anything else I can do for you ?"
	shareFailedText  = "I'm sorry, I was unable to share the expert details with the Space. Is there anything else I can help you with ?"

	inviteActor = "At your request ..."
	shareActor  = "I have found this expert within"
)
