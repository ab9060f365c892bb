package memory

// Role tags who produced a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Turn is one role-tagged message. Turns are values; memory never mutates
// one after it is appended.
type Turn struct {
	Role    Role
	Content string
}

const (
	DefaultMaxTokens           = 6000
	DefaultTargetContextTokens = 3000
	DefaultSummaryMaxLength    = 800

	// recentTurnWindow is how many trailing turns Summary reproduces verbatim.
	recentTurnWindow = 6
)
