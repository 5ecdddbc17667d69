package common

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type ciResult struct {
	OK        bool     `json:"ok"`
	Name      string   `json:"name"`
	Details   []string `json:"details,omitempty"`
	Error     string   `json:"error,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// PrintCIResult emits one machine-readable JSON line for CI pipelines.
func PrintCIResult(ok bool, name string, details []string, err error) {
	res := ciResult{
		OK:        ok,
		Name:      name,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		res.Error = err.Error()
	}
	out, marshalErr := json.Marshal(res)
	if marshalErr != nil {
		fmt.Fprintf(os.Stderr, "ci result marshal: %v\n", marshalErr)
		return
	}
	fmt.Println(string(out))
}
