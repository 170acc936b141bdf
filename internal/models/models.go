package models

import (
	"encoding/json"
	"time"
)

type User struct {
	ID             int64     `json:"id"`
	CommunityID    *int64    `json:"community_id,omitempty"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Password       string    `json:"-"`
	ProfilePicture *string   `json:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PublicUser is the denormalized author shape embedded in posts, comments
// and chat messages.
type PublicUser struct {
	ID             int64   `json:"id"`
	Username       string  `json:"username"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

// CommunitySettings gates which features a community exposes.
type CommunitySettings struct {
	Calendar bool `json:"calendar"`
	Lists    bool `json:"lists"`
	Posts    bool `json:"posts"`
	Events   bool `json:"events"`
	Messages bool `json:"messages"`
}

func DefaultCommunitySettings() CommunitySettings {
	return CommunitySettings{Calendar: true, Lists: true, Posts: true, Events: true, Messages: true}
}

type Community struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Settings  CommunitySettings `json:"settings"`
	PinBoard  json.RawMessage   `json:"pin_board"`
	CreatedAt time.Time         `json:"created_at"`
}

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

type Membership struct {
	UserID      int64     `json:"user_id"`
	CommunityID int64     `json:"community_id"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

type Post struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	CommunityID *int64      `json:"community_id,omitempty"`
	Title       string      `json:"title"`
	Content     string      `json:"content"`
	Author      *PublicUser `json:"author,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Comment struct {
	ID        int64       `json:"id"`
	PostID    int64       `json:"post_id"`
	UserID    int64       `json:"user_id"`
	Content   string      `json:"content"`
	Author    *PublicUser `json:"author,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Event struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	CommunityID *int64     `json:"community_id,omitempty"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Type        *string    `json:"type,omitempty"`
	Date        time.Time  `json:"date"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type EventAttendee struct {
	UserID    int64     `json:"user_id"`
	EventID   int64     `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}

type List struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	CommunityID *int64    `json:"community_id,omitempty"`
	Title       string    `json:"title"`
	Category    *string   `json:"category,omitempty"`
	Privacy     string    `json:"privacy"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListItem struct {
	ID          int64     `json:"id"`
	ListID      int64     `json:"list_id"`
	Name        string    `json:"name"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Message struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	CommunityID *int64      `json:"community_id,omitempty"`
	Content     string      `json:"content"`
	User        *PublicUser `json:"User,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

type MessageReaction struct {
	ID        int64     `json:"id"`
	MessageID int64     `json:"message_id"`
	UserID    int64     `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}
