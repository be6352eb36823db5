package directory

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// atomFeed mirrors the subset of the profiles search feed we read. Element
// names carry no namespace so opensearch:/snx: prefixed elements match on
// their local name.
type atomFeed struct {
	XMLName      xml.Name    `xml:"feed"`
	TotalResults string      `xml:"totalResults"`
	Entries      []atomEntry `xml:"entry"`
}

type atomEntry struct {
	XMLName      xml.Name          `xml:"entry"`
	Contributors []atomContributor `xml:"contributor"`
	Content      atomContent       `xml:"content"`
}

type atomContributor struct {
	UserID string `xml:"userid"`
	Email  string `xml:"email"`
	Name   string `xml:"name"`
}

// atomContent keeps both readings of the content element: xhtml content
// arrives as markup, html content as escaped text.
type atomContent struct {
	Type  string `xml:"type,attr"`
	Inner string `xml:",innerxml"`
	Text  string `xml:",chardata"`
}

func decodeFeed(r io.Reader, query string) (SearchResult, error) {
	var feed atomFeed
	if err := xml.NewDecoder(r).Decode(&feed); err != nil {
		return SearchResult{}, fmt.Errorf("decoding feed: %w", err)
	}

	profiles := make([]Profile, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		if p, ok := e.profile(); ok {
			profiles = append(profiles, p)
		}
	}

	total := len(profiles)
	if raw := strings.TrimSpace(feed.TotalResults); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return SearchResult{}, fmt.Errorf("decoding feed: invalid totalResults %q", raw)
		}
		total = n
	}

	return SearchResult{
		Query:      query,
		TotalCount: total,
		Profiles:   profiles,
	}, nil
}

func decodeEntry(r io.Reader) (Profile, error) {
	var entry atomEntry
	if err := xml.NewDecoder(r).Decode(&entry); err != nil {
		return Profile{}, fmt.Errorf("decoding entry: %w", err)
	}
	p, ok := entry.profile()
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (e atomEntry) profile() (Profile, bool) {
	if len(e.Contributors) == 0 {
		return Profile{}, false
	}
	c := e.Contributors[0]
	userID := strings.TrimSpace(c.UserID)
	if userID == "" {
		return Profile{}, false
	}
	photo, title := e.Content.vcard()
	return Profile{
		UserID:      userID,
		Email:       strings.TrimSpace(c.Email),
		DisplayName: strings.TrimSpace(c.Name),
		PhotoURL:    photo,
		Title:       title,
	}, true
}

// titleDivIndex is the position of the job title among the vcard span's divs
// when the directory does not mark it with a class.
const titleDivIndex = 7

// node is a parsed element or text run of the rich content block.
type node struct {
	name     string
	attrs    map[string]string
	text     string
	children []*node
}

func (c atomContent) vcard() (photo, title string) {
	var root *node
	if strings.EqualFold(c.Type, "html") {
		root = parseHTMLContent(c.Text)
	} else {
		root = parseXHTMLContent(c.Inner)
	}
	if root == nil {
		return "", ""
	}
	return readVCard(root)
}

// parseXHTMLContent builds a tree from an xhtml fragment. Self-closed
// elements stay empty, so sibling positions are kept.
func parseXHTMLContent(fragment string) *node {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}
	d := xml.NewDecoder(strings.NewReader(fragment))
	d.Strict = false
	d.AutoClose = xml.HTMLAutoClose
	d.Entity = xml.HTMLEntity

	root := &node{}
	stack := []*node{root}
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil
		}
		cur := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.attrs[a.Name.Local] = a.Value
			}
			cur.children = append(cur.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			cur.children = append(cur.children, &node{text: string(t)})
		}
	}
	return root
}

// parseHTMLContent reads content delivered as escaped html.
func parseHTMLContent(text string) *node {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil
	}
	return fromHTML(doc)
}

func fromHTML(h *html.Node) *node {
	n := &node{}
	switch h.Type {
	case html.TextNode:
		n.text = h.Data
		return n
	case html.ElementNode:
		n.name = h.Data
		if i := strings.LastIndexByte(n.name, ':'); i >= 0 {
			n.name = n.name[i+1:]
		}
		n.attrs = make(map[string]string, len(h.Attr))
		for _, a := range h.Attr {
			n.attrs[a.Key] = a.Val
		}
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		n.children = append(n.children, fromHTML(c))
	}
	return n
}

// readVCard extracts the photo URL and job title. The block is a vcard span
// whose first div holds the photo img; the title sits in a div classed
// "title" or, failing that, at titleDivIndex.
func readVCard(root *node) (photo, title string) {
	span := root.find(func(n *node) bool { return n.name == "span" })
	if span == nil {
		return "", ""
	}

	var divs []*node
	for _, c := range span.children {
		if c.name == "div" {
			divs = append(divs, c)
		}
	}

	if len(divs) > 0 {
		if img := divs[0].find(func(n *node) bool { return n.name == "img" }); img != nil {
			photo = strings.TrimSpace(img.attrs["src"])
		}
	}

	if n := span.find(func(n *node) bool { return n.hasClass("title") }); n != nil {
		title = n.textContent()
	} else if len(divs) > titleDivIndex {
		title = divs[titleDivIndex].textContent()
	}
	return photo, title
}

func (n *node) find(match func(*node) bool) *node {
	if n.name != "" && match(n) {
		return n
	}
	for _, c := range n.children {
		if found := c.find(match); found != nil {
			return found
		}
	}
	return nil
}

func (n *node) hasClass(class string) bool {
	for _, c := range strings.Fields(n.attrs["class"]) {
		if c == class {
			return true
		}
	}
	return false
}

func (n *node) textContent() string {
	var sb strings.Builder
	var walk func(*node)
	walk = func(x *node) {
		sb.WriteString(x.text)
		for _, c := range x.children {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
