// Package notify delivers new-post announcements to Discord channels.
package notify

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// ErrorKind classifies delivery failures. The caller logs and swallows all
// of them; a failed notification must never abort a poll cycle.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindChannelMissing
	KindForbidden
)

func (k ErrorKind) String() string {
	switch k {
	case KindChannelMissing:
		return "channel_missing"
	case KindForbidden:
		return "forbidden"
	default:
		return "transient"
	}
}

// NotifyError wraps a failed delivery with its classification.
type NotifyError struct {
	Kind      ErrorKind
	ChannelID string
	Err       error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify channel %s (%s): %v", e.ChannelID, e.Kind, e.Err)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from an error chain.
func KindOf(err error) ErrorKind {
	var ne *NotifyError
	if errors.As(err, &ne) {
		return ne.Kind
	}
	return KindTransient
}

// Notifier is the capability the poller uses to deliver a message.
type Notifier interface {
	Notify(channelID, body, roleID string) error
}

// Discord sends notifications through a discordgo session.
type Discord struct {
	session *discordgo.Session
}

// NewDiscord creates a Notifier backed by the given session.
func NewDiscord(s *discordgo.Session) *Discord {
	return &Discord{session: s}
}

// Notify posts body to the channel, prefixed with a role mention when roleID
// is set. Role mentions are explicitly allowed so the ping goes through.
func (d *Discord) Notify(channelID, body, roleID string) error {
	msg := &discordgo.MessageSend{
		Content: buildContent(body, roleID),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeRoles},
		},
	}

	if _, err := d.session.ChannelMessageSendComplex(channelID, msg); err != nil {
		return wrap(channelID, err)
	}
	return nil
}

// buildContent prefixes the body with a role mention token when set.
func buildContent(body, roleID string) string {
	if roleID == "" {
		return body
	}
	return fmt.Sprintf("<@&%s> %s", roleID, body)
}

// wrap maps discordgo REST errors onto NotifyError kinds.
func wrap(channelID string, err error) *NotifyError {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return &NotifyError{Kind: KindChannelMissing, ChannelID: channelID, Err: err}
		case http.StatusForbidden:
			return &NotifyError{Kind: KindForbidden, ChannelID: channelID, Err: err}
		}
	}
	return &NotifyError{Kind: KindTransient, ChannelID: channelID, Err: err}
}
