// Navigation vocabulary: directions, commands, modes and the state they live in.
package nav

import (
	"fmt"
	"strconv"
	"strings"
)

// Direction is one of the five sectors around the robot.
type Direction int

const (
	Left Direction = iota
	FrontLeft
	Front
	FrontRight
	Right
)

// Directions lists every sector from left to right.
var Directions = []Direction{Left, FrontLeft, Front, FrontRight, Right}

var directionNames = map[Direction]string{
	Left:       "LEFT",
	FrontLeft:  "FRONTLEFT",
	Front:      "FRONT",
	FrontRight: "FRONTRIGHT",
	Right:      "RIGHT",
}

func (d Direction) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Valid reports whether d is one of the five sectors.
func (d Direction) Valid() bool {
	_, ok := directionNames[d]
	return ok
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDirection, int(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Command returns the drive command that moves towards d.
func (d Direction) Command() Command { return Command(d) }

// ParseDirection accepts the wire names used by the perception module
// (FRONTLEFT) as well as the underscored form (FRONT_LEFT).
func ParseDirection(s string) (Direction, error) {
	key := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "_", "")
	for d, name := range directionNames {
		if name == key {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// Command is a discrete drive command. The first five values coincide with
// Direction so that every direction is also a command.
type Command int

const (
	CmdLeft       = Command(Left)
	CmdFrontLeft  = Command(FrontLeft)
	CmdFront      = Command(Front)
	CmdFrontRight = Command(FrontRight)
	CmdRight      = Command(Right)
	CmdSlowLeft   Command = 5
	CmdSlowRight  Command = 6
	CmdStop       Command = -1
)

var commandNames = map[Command]string{
	CmdLeft:       "LEFT",
	CmdFrontLeft:  "FRONTLEFT",
	CmdFront:      "FRONT",
	CmdFrontRight: "FRONTRIGHT",
	CmdRight:      "RIGHT",
	CmdSlowLeft:   "SLOW_LEFT",
	CmdSlowRight:  "SLOW_RIGHT",
	CmdStop:       "STOP",
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

func (c Command) MarshalText() ([]byte, error) {
	if _, ok := commandNames[c]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCommand, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText accepts a command name or its integer code.
func (c *Command) UnmarshalText(b []byte) error {
	v, err := ParseCommandName(string(b))
	if err != nil {
		v, err = ParseCommand(string(b))
	}
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Code is the integer sent on the actuation channel.
func (c Command) Code() int { return int(c) }

// Direction reports the sector c drives towards. STOP and the slow
// rotations are not sectors.
func (c Command) Direction() (Direction, bool) {
	d := Direction(c)
	if c >= 0 && d.Valid() {
		return d, true
	}
	return 0, false
}

// CommandFromCode validates an integer command code.
func CommandFromCode(code int) (Command, error) {
	c := Command(code)
	if _, ok := commandNames[c]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownCommand, code)
	}
	return c, nil
}

// ParseCommand parses a decimal command code such as "2" or "-1".
func ParseCommand(s string) (Command, error) {
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
	return CommandFromCode(code)
}

// ParseCommandName parses a command name such as FRONT_LEFT or SLOW_RIGHT.
func ParseCommandName(s string) (Command, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	for c, name := range commandNames {
		if name == key || strings.ReplaceAll(name, "_", "") == strings.ReplaceAll(key, "_", "") {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Mode selects who decides the desired direction.
type Mode int

const (
	Manual Mode = iota
	Autonomous
)

func (m Mode) String() string {
	switch m {
	case Manual:
		return "MANUAL"
	case Autonomous:
		return "AUTONOMOUS"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) MarshalText() ([]byte, error) {
	if m != Manual && m != Autonomous {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMode accepts MANUAL, AUTONOMOUS and the short AUTO alias.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MANUAL":
		return Manual, nil
	case "AUTONOMOUS", "AUTO":
		return Autonomous, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Pose is the robot position in world metres and its heading in degrees,
// (-180, 180], counter-clockwise from +x.
type Pose struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	HeadingDeg float64 `json:"heading_deg"`
}

// Target is a named waypoint.
type Target struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// NoMarker is the marker id reported when nothing is in view.
const NoMarker = -1

// MarkerObservation is one sighting relative to a fixed marker. Distance is
// NaN when the detector could not estimate it.
type MarkerObservation struct {
	MarkerID int     `json:"marker_id"`
	Distance float64 `json:"distance"`
	Yaw      float64 `json:"yaw"`
	Skew     float64 `json:"skew"`
}

// Visible reports whether the observation refers to a real marker.
func (o MarkerObservation) Visible() bool { return o.MarkerID != NoMarker }

// FreeSpace maps each sector to true when it is clear. It is either empty
// (nothing perceived yet) or holds all five sectors.
type FreeSpace map[Direction]bool

// NewFreeSpace validates a complete perception update keyed by wire name.
// Unknown or missing sectors reject the whole update.
func NewFreeSpace(raw map[string]bool) (FreeSpace, error) {
	fs := make(FreeSpace, len(Directions))
	for key, free := range raw {
		d, err := ParseDirection(key)
		if err != nil {
			return nil, err
		}
		fs[d] = free
	}
	for _, d := range Directions {
		if _, ok := fs[d]; !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrIncompleteFreeSpace, d)
		}
	}
	return fs, nil
}

// Clear reports whether d is known to be free.
func (fs FreeSpace) Clear(d Direction) bool { return fs[d] }

func (fs FreeSpace) clone() FreeSpace {
	if fs == nil {
		return nil
	}
	out := make(FreeSpace, len(fs))
	for k, v := range fs {
		out[k] = v
	}
	return out
}

// Session is an obstacle-avoidance detour. A nil Active means no detour.
type Session struct {
	Active *Direction `json:"active,omitempty"`
}

// InSession reports whether a detour is being followed.
func (s Session) InSession() bool { return s.Active != nil }

func sessionOn(d Direction) Session { return Session{Active: &d} }
