//go:build js && wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/noisefield/internal/preset"
	"github.com/MeKo-Tech/noisefield/internal/query"
)

var presets *preset.Set

func respond(resp query.Response) any {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}

func failure(format string, args ...any) any {
	return respond(query.Response{Error: fmt.Sprintf(format, args...)})
}

// sample is called from JavaScript with a JSON query.Request and returns a
// JSON query.Response. Setting "surface" returns displaced vertices and
// "flow" returns particles.
func sample(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return failure("missing arguments")
	}

	var req query.Request
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return failure("failed to parse request: %v", err)
	}

	resp, err := query.Run(presets, req)
	if err != nil {
		return failure("%v", err)
	}
	return respond(resp)
}

func presetNames(this js.Value, args []js.Value) any {
	data, err := json.Marshal(presets.Names())
	if err != nil {
		return failure("%v", err)
	}
	return string(data)
}

func main() {
	var err error
	presets, err = preset.Defaults()
	if err != nil {
		fmt.Println("Failed to load presets:", err)
		return
	}

	js.Global().Set("noisefieldSample", js.FuncOf(sample))
	js.Global().Set("noisefieldPresets", js.FuncOf(presetNames))

	fmt.Println("noisefield WASM module loaded")
	select {}
}
