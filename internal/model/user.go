package model

import (
	"slices"
	"time"
)

type User struct {
	ID           string
	Name         string
	Username     string
	Email        string
	PasswordHash string
	Favorites    []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the only user representation handed to clients.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Favorites []string  `json:"favorites"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u User) Public() PublicUser {
	favorites := slices.Clone(u.Favorites)
	if favorites == nil {
		favorites = []string{}
	}

	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		Email:     u.Email,
		Favorites: favorites,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UniqueField names a store column carrying a uniqueness constraint.
type UniqueField string

const (
	FieldUsername UniqueField = "username"
	FieldEmail    UniqueField = "email"
)

type AuthClaims struct {
	UserID    string
	Type      string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenPair struct {
	UserID       string `json:"id"`
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
