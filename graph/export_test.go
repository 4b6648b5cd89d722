package graph

var (
	SanitizeStateName = sanitizeStateName
	GetDirectionCode  = getDirectionCode
)
