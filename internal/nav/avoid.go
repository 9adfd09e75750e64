package nav

// detourKey selects a priority list. The front diagonals depend on the
// mode; every other sector uses the same list in both modes.
type detourKey struct {
	blocked Direction
	mode    Mode
}

// detours lists, for each blocked sector, the sectors to try in order.
// Manual mode keeps to the side the operator asked for; autonomous mode
// prefers going straight over turning further away from the target.
var detours = map[detourKey][]Direction{
	{Front, Manual}:          {FrontLeft, FrontRight, Left, Right},
	{Front, Autonomous}:      {FrontLeft, FrontRight, Left, Right},
	{FrontLeft, Manual}:      {Left, Front, FrontRight, Right},
	{FrontLeft, Autonomous}:  {Front, FrontRight, Right, Left},
	{FrontRight, Manual}:     {Right, Front, FrontLeft, Left},
	{FrontRight, Autonomous}: {Front, FrontLeft, Left, Right},
	{Left, Manual}:           {FrontLeft, Front, FrontRight, Right},
	{Left, Autonomous}:       {FrontLeft, Front, FrontRight, Right},
	{Right, Manual}:          {FrontRight, Front, FrontLeft, Left},
	{Right, Autonomous}:      {FrontRight, Front, FrontLeft, Left},
}

// DetourOrder returns the candidates tried when blocked is not clear.
func DetourOrder(blocked Direction, mode Mode) []Direction {
	return detours[detourKey{blocked, mode}]
}

// Decide turns the desired command into the command to drive, given the
// latest free-space map and the current avoidance session.
//
// STOP, the slow rotations and an empty map pass through untouched. A clear
// desired sector ends the session. While a detour stays clear it is kept
// even if other sectors open up. Otherwise the first clear candidate for
// the blocked sector starts a new session; when none is clear the robot
// stops and the session is left as it was.
func Decide(desired Command, fs FreeSpace, mode Mode, session Session) (Command, Session) {
	want, ok := desired.Direction()
	if !ok || len(fs) == 0 {
		return desired, session
	}
	if fs.Clear(want) {
		return desired, Session{}
	}

	blocked := want
	if session.InSession() {
		active := *session.Active
		if fs.Clear(active) {
			return active.Command(), session
		}
		blocked = active
	}

	for _, d := range DetourOrder(blocked, mode) {
		if fs.Clear(d) {
			return d.Command(), sessionOn(d)
		}
	}
	return CmdStop, session
}
