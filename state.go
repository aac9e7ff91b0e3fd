package mcpshot

// State is the position of a harness run in its conversation.
type State int

const (
	StateNotStarted State = iota
	StateSpawned
	StateHandshaking
	StateInitialized
	StateDevicesListed
	StateArtifactCaptured
	StateNoDevices
	StateTerminated
)

var stateNames = map[State]string{
	StateNotStarted:       "not_started",
	StateSpawned:          "spawned",
	StateHandshaking:      "handshaking",
	StateInitialized:      "initialized",
	StateDevicesListed:    "devices_listed",
	StateArtifactCaptured: "artifact_captured",
	StateNoDevices:        "no_devices",
	StateTerminated:       "terminated",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}
