package common

import (
	"encoding/json"
	"fmt"
	"io"
)

type CIResult struct {
	OK      bool     `json:"ok"`
	Title   string   `json:"title"`
	Details []string `json:"details,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// WriteCIResult emits one JSON object per line so CI logs stay greppable.
func WriteCIResult(w io.Writer, ok bool, title string, details []string, err error) {
	res := CIResult{OK: ok, Title: title, Details: details}
	if err != nil {
		res.Error = err.Error()
	}
	b, mErr := json.Marshal(res)
	if mErr != nil {
		fmt.Fprintf(w, "{\"ok\":false,\"title\":%q,\"error\":%q}\n", title, mErr.Error())
		return
	}
	fmt.Fprintln(w, string(b))
}
