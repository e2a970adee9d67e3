package model

// Account is one configured user session on the classroom platform.
type Account struct {
	// Raw is the credential string as configured, bundling an optional
	// display label and the session cookie.
	Raw string

	// Label is the optional human-readable tag ("username=<tag>;..."),
	// empty if absent.
	Label string

	// Cookie is the "key=value" pair sent verbatim in the Cookie header.
	Cookie string
}

type TaskKind string

const (
	TaskGPS    TaskKind = "gps"
	TaskQRCode TaskKind = "qrcode"
)

// Task is a pending check-in discovered on the course page. Tasks are
// ephemeral: discovered and consumed within a single cycle, never persisted.
type Task struct {
	ID   string
	Kind TaskKind
}

type Coordinate struct {
	Lat float64
	Lng float64
	Alt float64
}
