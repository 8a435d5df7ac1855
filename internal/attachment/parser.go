// Package attachment extracts file-attachment metadata from WeChat app
// messages.
package attachment

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// AppMsgTypeFile is the appmsg type discriminator of a file attachment.
const AppMsgTypeFile = 6

// Descriptor is the metadata of one announced attachment.
type Descriptor struct {
	Title         string
	FileExtension string
	AttachmentID  string
	AppID         string
	TotalLength   int64
	OwnerChatID   string
	IsGroupChat   bool
}

type msgXML struct {
	AppMsg *appMsgXML `xml:"appmsg"`
}

type appMsgXML struct {
	AppID     string        `xml:"appid,attr"`
	Type      *string       `xml:"type"`
	Title     *string       `xml:"title"`
	AppAttach *appAttachXML `xml:"appattach"`
}

type appAttachXML struct {
	AttachID *string `xml:"attachid"`
	FileExt  *string `xml:"fileext"`
	TotalLen *string `xml:"totallen"`
}

// Parse reads the XML payload of an app message. It returns ErrNotAttachment
// for anything that is not a type-6 appmsg, including payloads that are not
// well-formed XML, and a *ParseError (matching ErrMalformed) when a file
// attachment lacks required fields.
func Parse(content, owner string, isGroup bool) (Descriptor, error) {
	content = strings.TrimSpace(content)
	// group payloads arrive as "<sender wxid>:\n<msg>...".
	if i := strings.IndexByte(content, '<'); i > 0 {
		content = content[i:]
	}
	var root msgXML
	if err := xml.Unmarshal([]byte(content), &root); err != nil {
		return Descriptor{}, fmt.Errorf("%w: invalid xml: %v", ErrNotAttachment, err)
	}
	app := root.AppMsg
	if app == nil || app.Type == nil {
		return Descriptor{}, ErrNotAttachment
	}
	typ, err := strconv.Atoi(strings.TrimSpace(*app.Type))
	if err != nil || typ != AppMsgTypeFile {
		return Descriptor{}, ErrNotAttachment
	}

	if app.Title == nil {
		return Descriptor{}, &ParseError{Field: "title", Reason: "missing"}
	}
	attach := app.AppAttach
	if attach == nil {
		return Descriptor{}, &ParseError{Field: "appattach", Reason: "missing"}
	}
	attachID, err := required("attachid", attach.AttachID)
	if err != nil {
		return Descriptor{}, err
	}
	if attachID == "" {
		return Descriptor{}, &ParseError{Field: "attachid", Reason: "empty"}
	}
	ext, err := required("fileext", attach.FileExt)
	if err != nil {
		return Descriptor{}, err
	}
	rawLen, err := required("totallen", attach.TotalLen)
	if err != nil {
		return Descriptor{}, err
	}
	total, err := strconv.ParseInt(rawLen, 10, 64)
	if err != nil {
		return Descriptor{}, &ParseError{Field: "totallen", Reason: "not a number", Err: err}
	}
	if total < 0 {
		return Descriptor{}, &ParseError{Field: "totallen", Reason: fmt.Sprintf("negative length %d", total)}
	}

	return Descriptor{
		Title:         strings.TrimSpace(*app.Title),
		FileExtension: ext,
		AttachmentID:  attachID,
		AppID:         strings.TrimSpace(app.AppID),
		TotalLength:   total,
		OwnerChatID:   owner,
		IsGroupChat:   isGroup,
	}, nil
}

func required(field string, v *string) (string, error) {
	if v == nil {
		return "", &ParseError{Field: field, Reason: "missing"}
	}
	return strings.TrimSpace(*v), nil
}
