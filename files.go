package mcpshot

const (
	// DefaultOutputFileName is where the captured artifact is written.
	DefaultOutputFileName = "screenshot.png"

	outputFilePerm = 0o644
)

const (
	// MethodServerInfo is the optional readiness notification sent by the server.
	MethodServerInfo = "server_info"
	// MethodInitialize opens the session.
	MethodInitialize = "initialize"
	// MethodToolCall invokes a named tool.
	MethodToolCall = "tool/call"
)

const (
	// ToolListDevices lists the devices the server can drive.
	ToolListDevices = "mobile_list_available_devices"
	// ToolTakeScreenshot captures a screenshot from one device.
	ToolTakeScreenshot = "mobile_take_screenshot"
)
