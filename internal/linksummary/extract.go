package linksummary

import (
	"encoding/xml"
	"regexp"
	"strings"
)

const appMsgTypeLink = 5

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'，。！？、）)]+`)

// firstURL returns the first http(s) URL in text.
func firstURL(text string) string {
	return urlPattern.FindString(text)
}

// stripSenderPrefix removes the "wxid:\n" prefix the gateway puts in front of
// group message content.
func stripSenderPrefix(content string) string {
	head, rest, ok := strings.Cut(content, ":\n")
	if !ok || strings.ContainsAny(head, " \n<") {
		return content
	}
	return rest
}

// matchTrigger reports whether text starts with one of triggers, preferring
// the longest, and returns the remainder.
func matchTrigger(text string, triggers []string) (string, bool) {
	best := ""
	for _, t := range triggers {
		if t != "" && strings.HasPrefix(text, t) && len(t) > len(best) {
			best = t
		}
	}
	if best == "" {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(text, best)), true
}

type linkEnvelope struct {
	AppMsg struct {
		Type int    `xml:"type"`
		URL  string `xml:"url"`
	} `xml:"appmsg"`
}

// sharedLinkURL extracts the target of a shared link card.
func sharedLinkURL(content string) string {
	content = strings.TrimSpace(content)
	if i := strings.IndexByte(content, '<'); i > 0 {
		content = content[i:]
	}
	var env linkEnvelope
	if err := xml.Unmarshal([]byte(content), &env); err != nil {
		return ""
	}
	if env.AppMsg.Type != appMsgTypeLink {
		return ""
	}
	return firstURL(strings.TrimSpace(env.AppMsg.URL))
}
