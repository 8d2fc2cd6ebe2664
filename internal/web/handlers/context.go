package handlers

import (
	"github.com/shindakun/areagate/internal/i18n"
	"github.com/shindakun/areagate/internal/models"
)

// RequestContext carries everything an action needs about the current request.
// It is built fresh for every request and passed explicitly to the action.
type RequestContext struct {
	Language     string
	Application  string
	Area         string
	Subject      string
	Action       string
	Translations i18n.Table
	Messages     []models.FlashMessage
}

// Title returns the subject's display name
func (rc *RequestContext) Title() string {
	return rc.Translations.Get(rc.Subject, "name")
}

// Translate looks up key in the subject namespace
func (rc *RequestContext) Translate(key string) string {
	return rc.Translations.Get(rc.Subject, key)
}
