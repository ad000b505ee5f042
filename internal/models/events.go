package models

// EventType names a realtime event delivered to a user's websocket sessions.
type EventType string

const (
	EventFriendRequestReceived  EventType = "friend_request_received"
	EventFriendRequestSent      EventType = "friend_request_sent"
	EventFriendRequestAccepted  EventType = "friend_request_accepted"
	EventFriendRequestRejected  EventType = "friend_request_rejected"
	EventFriendRequestCancelled EventType = "friend_request_cancelled"
	EventFriendRemoved          EventType = "friend_removed"
	EventUserBlocked            EventType = "user_blocked"
)

// RealtimeEvent is the envelope written to websocket clients.
type RealtimeEvent struct {
	Type    EventType    `json:"type"`
	Payload EventPayload `json:"payload"`
}

// EventPayload describes the relationship change behind an event.
type EventPayload struct {
	RelationshipID  uint               `json:"relationshipId"`
	Status          RelationshipStatus `json:"status,omitempty"`
	Message         string             `json:"message,omitempty"`
	ConversationRef *string            `json:"conversationRef,omitempty"`
	User            *NotificationActor `json:"user,omitempty"`
}
