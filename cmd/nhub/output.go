package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// outputJSON writes v to w as one compact JSON line.
func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// outputJSONError writes {"error": "<message>"} to w.
func outputJSONError(w io.Writer, err error) {
	if encErr := outputJSON(w, map[string]string{"error": err.Error()}); encErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
