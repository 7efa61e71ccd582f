// Package http provides HTTP server and handler implementations.
//
// This file implements the builder used by every form handler to answer a
// POST with a redirect and a one-shot flash message (post/redirect/get).

package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookie = "portfel_flash"

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// Flash is a message shown once on the page after a redirect.
type Flash struct {
	Type    NotificationType `json:"t"`
	Message string           `json:"m"`
}

// RedirectBuilder provides a fluent API for post/redirect/get responses.
type RedirectBuilder struct {
	location string
	flash    *Flash
	cookies  []*http.Cookie
	secure   bool
}

// Redirect creates a builder sending the client to location with 303.
func Redirect(location string) *RedirectBuilder {
	return &RedirectBuilder{location: location}
}

// Notify attaches a flash message of the given type.
func (b *RedirectBuilder) Notify(t NotificationType, message string) *RedirectBuilder {
	b.flash = &Flash{Type: t, Message: message}
	return b
}

func (b *RedirectBuilder) Success(message string) *RedirectBuilder {
	return b.Notify(NotificationSuccess, message)
}

func (b *RedirectBuilder) Error(message string) *RedirectBuilder {
	return b.Notify(NotificationError, message)
}

// Cookie adds a cookie to the response, e.g. the session cookie after login.
func (b *RedirectBuilder) Cookie(c *http.Cookie) *RedirectBuilder {
	b.cookies = append(b.cookies, c)
	return b
}

// Secure marks the flash cookie Secure.
func (b *RedirectBuilder) Secure(secure bool) *RedirectBuilder {
	b.secure = secure
	return b
}

// Write sends the redirect.
func (b *RedirectBuilder) Write(w http.ResponseWriter, r *http.Request) {
	for _, c := range b.cookies {
		http.SetCookie(w, c)
	}
	if b.flash != nil {
		if v, err := encodeFlash(*b.flash); err == nil {
			http.SetCookie(w, &http.Cookie{
				Name:     flashCookie,
				Value:    v,
				Path:     "/",
				HttpOnly: true,
				Secure:   b.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
	}
	http.Redirect(w, r, b.location, http.StatusSeeOther)
}

func encodeFlash(f Flash) (string, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeFlash(v string) (Flash, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return Flash{}, false
	}
	var f Flash
	if err := json.Unmarshal(raw, &f); err != nil || f.Message == "" {
		return Flash{}, false
	}
	return f, true
}

// takeFlash returns the pending flash message, if any, and clears it.
func takeFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	f, ok := decodeFlash(c.Value)
	if !ok {
		return nil
	}
	return &f
}

// ErrorPage writes a plain error response for requests that cannot redirect.
func ErrorPage(w http.ResponseWriter, statusCode int, message string) {
	http.Error(w, message, statusCode)
}
