package handlers

// Action types for the operator action log
const (
	ActionCommandStart      = "command_start"
	ActionCommandAntidelete = "command_antidelete"
	ActionSetMode           = "set_mode"
	ActionToggleExclusion   = "toggle_exclusion"
	ActionSetForward        = "set_forward"
	ActionConnectionUpdate  = "business_connection"
	ActionModerationDelete  = "moderation_delete"
)
