package domain

import (
	"time"
)

// Permission names one capability flag of a PermissionSet.
type Permission string

const (
	CanEdit               Permission = "can_edit"
	CanDelete             Permission = "can_delete"
	CanModerate           Permission = "can_moderate"
	BypassTagRestrictions Permission = "bypass_tag_restrictions"
)

type User struct {
	ID        ID         `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name,omitempty"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

type PermissionSet struct {
	Role                  string `json:"role"`
	CanEdit               bool   `json:"can_edit"`
	CanDelete             bool   `json:"can_delete"`
	CanModerate           bool   `json:"can_moderate"`
	BypassTagRestrictions bool   `json:"bypass_tag_restrictions"`
}

// Has reports whether the permission set grants p. A nil set grants nothing.
func (p *PermissionSet) Has(perm Permission) bool {
	if p == nil {
		return false
	}
	switch perm {
	case CanEdit:
		return p.CanEdit
	case CanDelete:
		return p.CanDelete
	case CanModerate:
		return p.CanModerate
	case BypassTagRestrictions:
		return p.BypassTagRestrictions
	}
	return false
}

// HasAll reports whether every one of required is granted.
func (p *PermissionSet) HasAll(required ...Permission) bool {
	for _, perm := range required {
		if !p.Has(perm) {
			return false
		}
	}
	return true
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
}

// UserWrite is the payload used by administrators to create or update accounts.
type UserWrite struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
}

type UserSearch struct {
	Query string
	Role  string
	Page  int
}

type Profile struct {
	UserID      ID                `json:"user_id"`
	Bio         string            `json:"bio,omitempty"`
	AvatarURL   string            `json:"avatar_url,omitempty"`
	SocialLinks map[string]string `json:"social_links,omitempty"`
	User        *User             `json:"user,omitempty"`
}

// ProfileData is the writable part of a profile, used both to create and to update it.
type ProfileData struct {
	Bio         string            `json:"bio,omitempty"`
	AvatarURL   string            `json:"avatar_url,omitempty"`
	SocialLinks map[string]string `json:"social_links,omitempty"`
}

type ProfileVersion struct {
	ID        ID             `json:"id"`
	UserID    ID             `json:"user_id"`
	Content   map[string]any `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

type Media struct {
	ID               ID        `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	StoragePath      string    `json:"storage_path"`
	BucketName       string    `json:"bucket_name"`
	ObjectKey        string    `json:"object_key"`
	MimeType         string    `json:"mime_type"`
	FileSize         int64     `json:"file_size"`
	PublicURL        string    `json:"public_url"`
	UploadedAt       time.Time `json:"uploaded_at"`
}
