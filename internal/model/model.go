package model

type RoomID string

const EmptyRoomID RoomID = ""

type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguagePython     Language = "python"
)

// StarterTemplate returns the boilerplate document for a language.
// Unknown languages get the javascript template.
func (l Language) StarterTemplate() string {
	if t, ok := starterTemplates[l]; ok {
		return t
	}
	return starterTemplates[LanguageJavaScript]
}

var starterTemplates = map[Language]string{
	LanguageJavaScript: "// Welcome to the collaborative coding interview!\n// Start coding in JavaScript...\n\nfunction greet(name) {\n  return `Hello, ${name}!`;\n}\n",
	LanguagePython:     "# Welcome to the collaborative coding interview!\n# Start coding in Python...\n\ndef greet(name):\n    return f'Hello, {name}!'\n",
}

// ConnID identifies a single transport connection. Assigned on upgrade.
type ConnID string

type User struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Room is the shared editing session: one document plus its members,
// keyed by connection. A user appears under at most one connection.
type Room struct {
	Code     string
	Language Language
	Members  map[ConnID]User
}

// RoomSnapshot is a point-in-time copy of room state handed to a joiner.
type RoomSnapshot struct {
	Code     string   `json:"code"`
	Language Language `json:"language"`
	Users    []User   `json:"users"`
}
