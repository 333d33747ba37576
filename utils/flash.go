package utils

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// FlashCookieName is the cookie carrying pending flash messages
const FlashCookieName = "flash"

// Flash categories
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown after a redirect
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// AddFlash queues a message for the next page the browser loads
func AddFlash(c *gin.Context, category, message string) {
	flashes := append(pendingFlashes(c), Flash{Category: category, Message: message})
	c.Set(FlashCookieName, flashes)
	writeFlashCookie(c, flashes)
}

// PopFlashes returns and clears the queued messages
func PopFlashes(c *gin.Context) []Flash {
	flashes := pendingFlashes(c)
	c.Set(FlashCookieName, []Flash(nil))
	if _, err := c.Cookie(FlashCookieName); err == nil {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     FlashCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
	if flashes == nil {
		return []Flash{}
	}
	return flashes
}

// pendingFlashes prefers messages added during this request over the cookie
func pendingFlashes(c *gin.Context) []Flash {
	if v, ok := c.Get(FlashCookieName); ok {
		if flashes, ok := v.([]Flash); ok {
			return flashes
		}
	}
	raw, err := c.Cookie(FlashCookieName)
	if err != nil || raw == "" {
		return nil
	}
	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(decoded, &flashes); err != nil {
		return nil
	}
	return flashes
}

func writeFlashCookie(c *gin.Context, flashes []Flash) {
	if cookie := FlashCookie(flashes...); cookie != nil {
		http.SetCookie(c.Writer, cookie)
	}
}

// FlashCookie encodes flashes into a cookie for handlers running outside gin
func FlashCookie(flashes ...Flash) *http.Cookie {
	encoded, err := json.Marshal(flashes)
	if err != nil {
		return nil
	}
	return &http.Cookie{
		Name:     FlashCookieName,
		Value:    base64.URLEncoding.EncodeToString(encoded),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
