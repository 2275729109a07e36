package synapse

// UserListOptions filters GET v2/users.
type UserListOptions struct {
	From        int
	Limit       int
	Guests      *bool // nil leaves the server default
	Deactivated bool
	Name        string
	UserID      string
}

// Threepid is a third-party identifier such as an email address.
type Threepid struct {
	Medium  string `json:"medium"`
	Address string `json:"address"`
}

// UserModification is the body of PUT v2/users/<user_id>. Nil fields are
// left out so that the server keeps their current value.
type UserModification struct {
	Password    *string
	DisplayName *string
	Threepids   []Threepid
	AvatarURL   *string
	Admin       *bool
	Deactivated *bool
}

// Body returns the JSON request body.
func (m UserModification) Body() map[string]any {
	body := map[string]any{}
	if m.Password != nil {
		body["password"] = *m.Password
	}
	if m.DisplayName != nil {
		body["displayname"] = *m.DisplayName
	}
	if len(m.Threepids) > 0 {
		body["threepids"] = m.Threepids
	}
	if m.AvatarURL != nil {
		body["avatar_url"] = *m.AvatarURL
	}
	if m.Admin != nil {
		body["admin"] = *m.Admin
	}
	if m.Deactivated != nil {
		body["deactivated"] = *m.Deactivated
	}
	return body
}

// RoomListOptions filters GET v1/rooms.
type RoomListOptions struct {
	From    int
	Limit   int
	Name    string
	OrderBy string
	Reverse bool
}

// RoomOrderings lists the values accepted for RoomListOptions.OrderBy.
var RoomOrderings = []string{
	"name", "canonical_alias", "joined_members", "joined_local_members",
	"version", "creator", "encryption", "federatable", "public",
	"join_rules", "guest_access", "history_visibility", "state_events",
}

// RoomDeleteOptions is the body of DELETE v1/rooms/<room_id>.
type RoomDeleteOptions struct {
	NewRoomUserID string
	RoomName      string
	Message       string
	Block         bool
	Purge         bool
}

// Body returns the JSON request body. Optional strings are only sent when set.
func (o RoomDeleteOptions) Body() map[string]any {
	body := map[string]any{
		"block": o.Block,
		"purge": o.Purge,
	}
	if o.NewRoomUserID != "" {
		body["new_room_user_id"] = o.NewRoomUserID
	}
	if o.RoomName != "" {
		body["room_name"] = o.RoomName
	}
	if o.Message != "" {
		body["message"] = o.Message
	}
	return body
}

// MediaDeleteOptions selects local media for POST v1/media/<server>/delete.
type MediaDeleteOptions struct {
	BeforeTS     int64
	SizeGT       int64
	KeepProfiles bool
}

// PurgeHistoryOptions selects the events removed by POST v1/purge_history.
// Exactly one of EventID and BeforeTS should be set.
type PurgeHistoryOptions struct {
	EventID     string
	BeforeTS    int64
	DeleteLocal bool
}

// Body returns the JSON request body.
func (o PurgeHistoryOptions) Body() map[string]any {
	body := map[string]any{"delete_local_events": o.DeleteLocal}
	if o.EventID != "" {
		body["purge_up_to_event_id"] = o.EventID
	} else {
		body["purge_up_to_ts"] = o.BeforeTS
	}
	return body
}

// Notice is the content of a server notice.
type Notice struct {
	Plain     string
	Formatted string
}

// Content returns the m.room.message content of the notice.
func (n Notice) Content() map[string]any {
	formatted := n.Formatted
	if formatted == "" {
		formatted = n.Plain
	}
	return map[string]any{
		"msgtype":        "m.text",
		"body":           n.Plain,
		"format":         "org.matrix.custom.html",
		"formatted_body": formatted,
	}
}

// RegTokenOptions is the body of POST v1/registration_tokens/new and
// PUT v1/registration_tokens/<token>. Nil pointers are omitted. The
// Clear flags send an explicit null, which removes a limit.
type RegTokenOptions struct {
	Token            string
	Length           int
	UsesAllowed      *int64
	ExpiryTime       *int64
	ClearUsesAllowed bool
	ClearExpiryTime  bool
}

// Body returns the JSON request body.
func (o RegTokenOptions) Body() map[string]any {
	body := map[string]any{}
	if o.Token != "" {
		body["token"] = o.Token
	}
	if o.Length > 0 {
		body["length"] = o.Length
	}
	switch {
	case o.ClearUsesAllowed:
		body["uses_allowed"] = nil
	case o.UsesAllowed != nil:
		body["uses_allowed"] = *o.UsesAllowed
	}
	switch {
	case o.ClearExpiryTime:
		body["expiry_time"] = nil
	case o.ExpiryTime != nil:
		body["expiry_time"] = *o.ExpiryTime
	}
	return body
}
