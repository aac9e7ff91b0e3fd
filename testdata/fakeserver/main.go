// Package main provides a scripted stdio JSON-RPC server for tests.
//
// FAKESERVER_MODE holds comma separated behaviours:
//
//	info        send server_info before reading requests
//	chatty      send an unrelated notification first
//	notify      send a notification before every response
//	initerror   answer initialize with an error
//	nodevices   report an empty device list
//	badlist     report a device list that is not JSON
//	mixedlist   report a usable first device followed by malformed entries
//	cwd         include the working directory in server_info params
//	spam        send a notification every 50ms and never send server_info
//	nodata      answer the screenshot call without data
//	silent      never answer
//	exit        exit before reading anything
//	ignoreterm  ignore SIGTERM and keep running after stdin closes
//
// FAKESERVER_LOG names a file that receives every request line.
// FAKESERVER_IMAGE overrides the base64 screenshot payload.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
)

const defaultImage = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="

type request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     json.RawMessage `json:"id"`
}

type toolParams struct {
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

type lockedEncoder struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (e *lockedEncoder) Encode(v any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.enc.Encode(v)
}

func main() {
	modes := map[string]bool{}
	for _, m := range strings.Split(os.Getenv("FAKESERVER_MODE"), ",") {
		if m = strings.TrimSpace(m); m != "" {
			modes[m] = true
		}
	}

	if modes["ignoreterm"] {
		signal.Ignore(syscall.SIGTERM)
	}

	fmt.Fprintln(os.Stderr, "fakeserver starting")

	if modes["exit"] {
		os.Exit(0)
	}

	out := &lockedEncoder{enc: json.NewEncoder(os.Stdout)}

	if modes["chatty"] {
		_ = out.Encode(map[string]any{"jsonrpc": "2.0", "method": "log", "params": map[string]any{"msg": "booting"}})
	}

	if modes["spam"] {
		go func() {
			for {
				_ = out.Encode(map[string]any{"jsonrpc": "2.0", "method": "log", "params": map[string]any{"msg": "tick"}})
				time.Sleep(50 * time.Millisecond)
			}
		}()
	}

	if modes["info"] {
		params := map[string]any{"name": "fakeserver"}
		if modes["cwd"] {
			wd, err := os.Getwd()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			params["cwd"] = wd
		}
		_ = out.Encode(map[string]any{"jsonrpc": "2.0", "method": "server_info", "params": params})
	}

	var logFile *os.File
	if path := os.Getenv("FAKESERVER_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		logFile = f
	}

	in := bufio.NewReader(os.Stdin)
	for {
		line, err := in.ReadBytes('\n')
		if len(line) > 0 {
			if logFile != nil {
				_, _ = logFile.Write(line)
			}

			var req request
			if jerr := json.Unmarshal(line, &req); jerr != nil {
				fmt.Fprintln(os.Stderr, "bad request:", jerr)
				continue
			}

			fmt.Fprintln(os.Stderr, "handling", req.Method)

			if modes["silent"] {
				continue
			}

			if modes["notify"] {
				_ = out.Encode(map[string]any{"jsonrpc": "2.0", "method": "progress", "params": map[string]any{"step": req.Method}})
			}

			_ = out.Encode(respond(req, modes))
		}

		if err != nil {
			break
		}
	}

	if modes["ignoreterm"] {
		for {
			time.Sleep(time.Hour)
		}
	}
}

func respond(req request, modes map[string]bool) map[string]any {
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}

	switch req.Method {
	case "initialize":
		if modes["initerror"] {
			resp["error"] = map[string]any{"code": -32603, "message": "init failed"}
			return resp
		}
		resp["result"] = map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo":      map[string]any{"name": "fakeserver", "version": "1.0.0"},
		}
	case "tool/call":
		var p toolParams
		_ = json.Unmarshal(req.Params, &p)
		resp["result"] = toolResult(p, modes)
	default:
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	}

	return resp
}

func toolResult(p toolParams, modes map[string]bool) map[string]any {
	switch p.Name {
	case "mobile_list_available_devices":
		text := `{"devices":[{"id":"dev-1","name":"Pixel"},{"id":"dev-2","name":"iPhone"}]}`
		if modes["nodevices"] {
			text = `{"devices":[]}`
		}
		if modes["badlist"] {
			text = "no devices attached"
		}
		if modes["mixedlist"] {
			text = `{"devices":[{"id":"dev-1","name":"Pixel"},{"name":"no id"},{"id":2}]}`
		}
		return map[string]any{"content": []any{map[string]any{"type": "text", "text": text}}}
	case "mobile_take_screenshot":
		if modes["nodata"] {
			return map[string]any{"content": []any{map[string]any{"type": "text", "text": "device offline"}}}
		}
		image := os.Getenv("FAKESERVER_IMAGE")
		if image == "" {
			image = defaultImage
		}
		return map[string]any{"content": []any{map[string]any{
			"type":     "image",
			"data":     image,
			"mimeType": "image/png",
			"device":   p.Input["device"],
		}}}
	default:
		return map[string]any{"content": []any{map[string]any{"type": "text", "text": "unknown tool"}}}
	}
}
