package notify

import "time"

// Kind selects the toast's styling and title.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Position is the screen corner or edge a toast group is anchored to.
type Position string

const (
	PositionTop         Position = "top"
	PositionBottom      Position = "bottom"
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
)

// DefaultDuration is used by the shortcut helpers.
const DefaultDuration = 5 * time.Second

var validKinds = map[Kind]bool{
	KindSuccess: true,
	KindError:   true,
	KindWarning: true,
	KindInfo:    true,
}

var validPositions = map[Position]bool{
	PositionTop:         true,
	PositionBottom:      true,
	PositionTopLeft:     true,
	PositionTopRight:    true,
	PositionBottomLeft:  true,
	PositionBottomRight: true,
}

// Toast is a single transient notification.
type Toast struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Position  Position      `json:"position"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Persistent reports whether the toast stays until dismissed.
func (t Toast) Persistent() bool { return t.Duration == 0 }

// EventType says what happened to a toast.
type EventType string

const (
	EventShown     EventType = "shown"
	EventDismissed EventType = "dismissed"
)

// Event is delivered to subscribers whenever the set of toasts changes.
type Event struct {
	Type  EventType
	Toast Toast
}

// TitleFor returns the heading shown above a toast of the given kind.
func TitleFor(k Kind) string {
	switch k {
	case KindSuccess:
		return "Yay! 🎉"
	case KindError:
		return "Oops! 😬"
	case KindWarning:
		return "Heads up! ⚠️"
	case KindInfo:
		return "FYI! 💡"
	default:
		return "Notice! 📢"
	}
}

// NormalizeKind maps unknown kinds to info.
func NormalizeKind(k Kind) Kind {
	if validKinds[k] {
		return k
	}
	return KindInfo
}

// NormalizePosition maps unknown positions to top-right.
func NormalizePosition(p Position) Position {
	if validPositions[p] {
		return p
	}
	return PositionTopRight
}

// IsTop reports whether toasts at p slide in from the top edge.
func (p Position) IsTop() bool {
	return p == PositionTop || p == PositionTopLeft || p == PositionTopRight
}
