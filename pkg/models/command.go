package models

// Command is the instruction the server most recently issued to an asset.
type Command string

const (
	// CommandNone indicates the server had nothing to say.
	CommandNone Command = "NONE"
	// CommandGoto directs the asset to a specific position.
	CommandGoto Command = "GOTO"
	// CommandContinue tells the asset to carry on with its current task.
	CommandContinue Command = "CONTINUE"
	// CommandRTL tells the asset to return to its launch point.
	CommandRTL Command = "RTL"
	// CommandCircle tells the asset to hold by circling its position.
	CommandCircle Command = "CIRCLE"
	// CommandAbandonSearch tells the asset to give up its current search.
	CommandAbandonSearch Command = "ABANDON_SEARCH"
	// CommandMissionComplete tells the asset the mission is over.
	CommandMissionComplete Command = "MISSION_COMPLETE"
	// CommandUnknown is reported when the server sent something this
	// library does not recognise.
	CommandUnknown Command = "UNKNOWN"
)

// CommandUpdate is the decoded outcome of a position report: the command
// the server responded with, plus a target position when the command
// carries one.
type CommandUpdate struct {
	Command   Command
	Latitude  float64
	Longitude float64
	// HasPosition is true only when Command is CommandGoto and the
	// server supplied target coordinates.
	HasPosition bool
}
