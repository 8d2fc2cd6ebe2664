package models

import "encoding/gob"

// Flash message categories, used as CSS classes by the templates
const (
	FlashDanger  = "danger"
	FlashSuccess = "success"
	FlashInfo    = "info"
)

// FlashMessage is a short-lived notification shown once on the next rendered page
type FlashMessage struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

func init() {
	// gorilla/sessions serializes flashes with gob
	gob.Register(FlashMessage{})
}
