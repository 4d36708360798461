package users

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	RoleAdmin  = "admin"
	RolePlayer = "player"

	FounderID = "bshapp"

	DefaultTheme = "nebula_ink"
)

var ErrUsernameTaken = errors.New("that username is taken")
var ErrUserNotFound = errors.New("user not found")

var ThemeKeys = []string{"nebula_ink", "solar_gold", "tide_glass", "ember_veil"}

type Starplace struct {
	Confirmed bool   `json:"confirmed"`
	ThemeKey  string `json:"theme_key"`
	Avatar    string `json:"avatar"`
	Quote     string `json:"quote"`
	Journal   string `json:"journal,omitempty"`
}

type User struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name"`
	Vibe        string          `json:"vibe"`
	Title       string          `json:"title"`
	Role        string          `json:"role"`
	CreatedAt   string          `json:"created_at"`
	Claims      map[string]bool `json:"claims"`
	Starplace   Starplace       `json:"starplace"`
}

type Meta struct {
	Version   string `json:"version"`
	UpdatedAt string `json:"updated_at"`
}

type Directory struct {
	Users []User `json:"users"`
	Meta  Meta   `json:"meta"`
}

func NewDirectory(now time.Time) *Directory {
	d := &Directory{
		Users: []User{},
		Meta:  Meta{Version: "v3", UpdatedAt: now.UTC().Format(time.RFC3339)},
	}
	d.EnsureFounder(now)
	return d
}

func (d *Directory) EnsureFounder(now time.Time) {
	for _, u := range d.Users {
		if u.UserID == FounderID {
			return
		}
	}
	ts := now.UTC().Format(time.RFC3339)
	founder := User{
		UserID:      FounderID,
		DisplayName: FounderID,
		Vibe:        "Admin",
		Title:       "Founder",
		Role:        RoleAdmin,
		CreatedAt:   ts,
		Claims:      map[string]bool{"admin_auto": true, "intro_access": true, "all_access": true},
		Starplace:   Starplace{Confirmed: true, ThemeKey: DefaultTheme, Avatar: "✨"},
	}
	d.Users = append([]User{founder}, d.Users...)
	d.Meta.UpdatedAt = ts
}

func (d *Directory) FindByID(userID string) (User, bool) {
	for _, u := range d.Users {
		if u.UserID == userID {
			return u, true
		}
	}
	return User{}, false
}

func (d *Directory) displayNameTaken(name string) bool {
	lowered := strings.ToLower(strings.TrimSpace(name))
	for _, u := range d.Users {
		if strings.ToLower(strings.TrimSpace(u.DisplayName)) == lowered {
			return true
		}
	}
	return false
}

func (d *Directory) nextUserID() string {
	existing := make(map[string]bool, len(d.Users))
	for _, u := range d.Users {
		existing[u.UserID] = true
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("user-%d", i)
		if !existing[candidate] {
			return candidate
		}
	}
}

func (d *Directory) Create(now time.Time, displayName, vibe, title string) (User, error) {
	if d.displayNameTaken(displayName) {
		return User{}, ErrUsernameTaken
	}
	ts := now.UTC().Format(time.RFC3339)
	user := User{
		UserID:      d.nextUserID(),
		DisplayName: strings.TrimSpace(displayName),
		Vibe:        strings.TrimSpace(vibe),
		Title:       title,
		Role:        RolePlayer,
		CreatedAt:   ts,
		Claims:      map[string]bool{"sign_on_bonus": true},
		Starplace:   Starplace{ThemeKey: DefaultTheme, Avatar: "✨"},
	}
	d.Users = append(d.Users, user)
	d.Meta.UpdatedAt = ts
	return user, nil
}

func (d *Directory) GrantClaim(now time.Time, userID, claim string) error {
	for i := range d.Users {
		if d.Users[i].UserID != userID {
			continue
		}
		if d.Users[i].Claims == nil {
			d.Users[i].Claims = map[string]bool{}
		}
		d.Users[i].Claims[claim] = true
		d.Meta.UpdatedAt = now.UTC().Format(time.RFC3339)
		return nil
	}
	return ErrUserNotFound
}

func (d *Directory) HasClaim(userID, claim string) bool {
	u, ok := d.FindByID(userID)
	if !ok || u.Claims == nil {
		return false
	}
	return u.Claims[claim]
}

func (d *Directory) UpdateStarplace(now time.Time, userID string, sp Starplace) error {
	for i := range d.Users {
		if d.Users[i].UserID != userID {
			continue
		}
		sp.ThemeKey = NormalizeTheme(sp.ThemeKey)
		sp.Quote = strings.Join(strings.Fields(sp.Quote), " ")
		d.Users[i].Starplace = sp
		d.Meta.UpdatedAt = now.UTC().Format(time.RFC3339)
		return nil
	}
	return ErrUserNotFound
}

func NormalizeTheme(key string) string {
	for _, known := range ThemeKeys {
		if key == known {
			return key
		}
	}
	return DefaultTheme
}

func (d *Directory) Clone() *Directory {
	dup := *d
	dup.Users = make([]User, len(d.Users))
	for i, u := range d.Users {
		claims := make(map[string]bool, len(u.Claims))
		for k, v := range u.Claims {
			claims[k] = v
		}
		u.Claims = claims
		dup.Users[i] = u
	}
	return &dup
}
