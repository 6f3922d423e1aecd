package handlers

const (
	// Embed Colors
	ColorBlue   = 0x3498db
	ColorGreen  = 0x2ecc71
	ColorRed    = 0xf04747
	ColorYellow = 0xfaa61a
	ColorGray   = 0x99aab5

	// Component ID プレフィックス。後ろにプレビューIDが続く
	PreviewAcceptPrefix = "geminify_preview_accept:"
	PreviewRejectPrefix = "geminify_preview_reject:"
)
