package discord

import "time"

const (
	ColorBlue   = 3447003
	ColorYellow = 16776960
	ColorRed    = 15158332

	MaxEmbedLength    = 6000
	MaxTitleLen       = 256
	MaxDescriptionLen = 4096
	MaxFieldValueLen  = 1024
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultRetryCount = 2
	DefaultRetryDelay = 1 * time.Second
	DefaultUsername   = "realtime-sync"
	UserAgent         = "realtime-sync/1.0"
)
