// Copyright (c) Microsoft. All rights reserved.

package botframework

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// ActivityType identifies the kind of conversational exchange an [Activity]
// represents.
type ActivityType string

const (
	ActivityTypeMessage            ActivityType = "message"
	ActivityTypeInvoke             ActivityType = "invoke"
	ActivityTypeEvent              ActivityType = "event"
	ActivityTypeTrace              ActivityType = "trace"
	ActivityTypeTyping             ActivityType = "typing"
	ActivityTypeConversationUpdate ActivityType = "conversationUpdate"
	ActivityTypeEndOfConversation  ActivityType = "endOfConversation"
)

// DeliveryMode controls how a bot's replies are delivered back to the caller.
type DeliveryMode string

const (
	// DeliveryModeNormal sends replies out-of-band through the channel service.
	DeliveryModeNormal DeliveryMode = "normal"

	// DeliveryModeExpectReplies requires all replies to be returned inline in
	// the HTTP response that delivered the inbound activity.
	DeliveryModeExpectReplies DeliveryMode = "expectReplies"
)

// ChannelAccount identifies a user or bot on a channel.
type ChannelAccount struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// ConversationAccount identifies the conversation an activity belongs to.
type ConversationAccount struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	IsGroup bool   `json:"isGroup,omitempty"`
}

// Activity is the wire-level unit of conversational exchange. Only the fields
// the dispatch core reads are modeled; everything else rides along in
// channel-specific payloads (Value, ChannelData).
type Activity struct {
	Type         ActivityType         `json:"type,omitempty"`
	ID           string               `json:"id,omitempty"`
	Timestamp    *time.Time           `json:"timestamp,omitempty"`
	ChannelID    string               `json:"channelId,omitempty"`
	ServiceURL   string               `json:"serviceUrl,omitempty"`
	From         *ChannelAccount      `json:"from,omitempty"`
	Recipient    *ChannelAccount      `json:"recipient,omitempty"`
	Conversation *ConversationAccount `json:"conversation,omitempty"`
	DeliveryMode DeliveryMode         `json:"deliveryMode,omitempty"`
	ReplyToID    string               `json:"replyToId,omitempty"`
	Locale       string               `json:"locale,omitempty"`

	// Message fields.
	Text  string `json:"text,omitempty"`
	Speak string `json:"speak,omitempty"`

	// Invoke and event fields.
	Name  string `json:"name,omitempty"`
	Value any    `json:"value,omitempty"`

	// Trace fields.
	Label     string `json:"label,omitempty"`
	ValueType string `json:"valueType,omitempty"`

	// Conversation update fields.
	MembersAdded   []ChannelAccount `json:"membersAdded,omitempty"`
	MembersRemoved []ChannelAccount `json:"membersRemoved,omitempty"`

	// ChannelData holds channel-specific metadata the core does not interpret.
	ChannelData json.RawMessage `json:"channelData,omitempty"`
}

// ConversationReference captures the addressing information needed to send a
// later activity back into the same conversation.
type ConversationReference struct {
	ActivityID   string               `json:"activityId,omitempty"`
	User         *ChannelAccount      `json:"user,omitempty"`
	Bot          *ChannelAccount      `json:"bot,omitempty"`
	Conversation *ConversationAccount `json:"conversation,omitempty"`
	ChannelID    string               `json:"channelId,omitempty"`
	ServiceURL   string               `json:"serviceUrl,omitempty"`
	Locale       string               `json:"locale,omitempty"`
}

// ExpectedReplies is the InvokeResponse body returned for activities delivered
// with [DeliveryModeExpectReplies]: every reply the bot produced during the
// turn, in send order.
type ExpectedReplies struct {
	Activities []*Activity `json:"activities"`
}

// ParseActivity decodes a JSON activity from r. It returns
// [ErrInvalidActivity] when the body is unparseable or the activity has no
// discernible type.
func ParseActivity(r io.Reader) (*Activity, error) {
	var a Activity
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidActivity, err)
	}
	if a.Type == "" {
		return nil, fmt.Errorf("%w: missing activity type", ErrInvalidActivity)
	}
	return &a, nil
}

// IsInvoke reports whether the activity requires a synchronous reply payload
// in the same HTTP response.
func (a *Activity) IsInvoke() bool {
	return a.Type == ActivityTypeInvoke
}

// ExpectsReplies reports whether the activity was delivered with the
// expectReplies delivery mode.
func (a *Activity) ExpectsReplies() bool {
	return a.DeliveryMode == DeliveryModeExpectReplies
}

// GetConversationReference extracts a [ConversationReference] from an inbound
// activity.
func (a *Activity) GetConversationReference() *ConversationReference {
	return &ConversationReference{
		ActivityID:   a.ID,
		User:         a.From,
		Bot:          a.Recipient,
		Conversation: a.Conversation,
		ChannelID:    a.ChannelID,
		ServiceURL:   a.ServiceURL,
		Locale:       a.Locale,
	}
}

// CreateReply creates a message activity addressed back to the sender of a.
func (a *Activity) CreateReply(text string) *Activity {
	now := time.Now().UTC()
	reply := &Activity{
		Type:      ActivityTypeMessage,
		Timestamp: &now,
		Text:      text,
		Locale:    a.Locale,
	}
	reply.ApplyConversationReference(a.GetConversationReference(), false)
	return reply
}

// CreateTrace creates a trace activity carrying diagnostic value, addressed
// back into the conversation of a.
func (a *Activity) CreateTrace(name, label, valueType string, value any) *Activity {
	now := time.Now().UTC()
	trace := &Activity{
		Type:      ActivityTypeTrace,
		Timestamp: &now,
		Name:      name,
		Label:     label,
		ValueType: valueType,
		Value:     value,
	}
	trace.ApplyConversationReference(a.GetConversationReference(), false)
	return trace
}

// ApplyConversationReference updates the activity's addressing fields from
// ref. When isIncoming is true the activity is treated as travelling to the
// bot (From = user); otherwise as a bot reply (From = bot, ReplyToID set).
func (a *Activity) ApplyConversationReference(ref *ConversationReference, isIncoming bool) {
	a.ChannelID = ref.ChannelID
	a.ServiceURL = ref.ServiceURL
	a.Conversation = ref.Conversation
	if ref.Locale != "" {
		a.Locale = ref.Locale
	}
	if isIncoming {
		a.From = ref.User
		a.Recipient = ref.Bot
		if ref.ActivityID != "" {
			a.ID = ref.ActivityID
		}
		return
	}
	a.From = ref.Bot
	a.Recipient = ref.User
	if ref.ActivityID != "" {
		a.ReplyToID = ref.ActivityID
	}
}

func newUUID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	b[6] = (b[6] & 0x0f) | 0x40 // version 4
	b[8] = (b[8] & 0x3f) | 0x80 // variant 10
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
