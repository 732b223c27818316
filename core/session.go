package core

// Theme is the display mode preferred by the signed-in user.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeSystem || t == ThemeLight || t == ThemeDark
}

// Session is the signed-in state handed explicitly to whatever needs it
// (the API client, CLI commands) instead of living in a process-wide global.
type Session struct {
	Token    string
	UserID   string
	Username string
	Roles    []string
	IsAdmin  bool
	Theme    Theme
}

// Anonymous is the zero session.
var Anonymous = Session{Theme: ThemeSystem}

func (s Session) Authenticated() bool {
	return s.Token != ""
}

func (s Session) WithTheme(t Theme) Session {
	if t.Valid() {
		s.Theme = t
	}
	return s
}
