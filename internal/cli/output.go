package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/mmr-tortoise/modcommit/internal/model"
)

// printCommitResult outputs the result in text or JSON format, depending
// on the --json flag.
func printCommitResult(w io.Writer, result *model.CommitResult) error {
	if IsJSONOutput() {
		return printCommitResultJSON(w, result)
	}
	return emitCommitID(w, result.Commit)
}

// emitCommitID writes the commit id. A trailing newline is added only when
// w is a terminal, so `$(modcommit ...)` and pipes get the bare id.
func emitCommitID(w io.Writer, id string) error {
	if isTerminal(w) {
		_, err := fmt.Fprintln(w, id)
		return err
	}
	_, err := io.WriteString(w, id)
	return err
}

// printCommitResultJSON writes the result as indented JSON. JSON output is
// always newline-terminated.
func printCommitResultJSON(w io.Writer, result *model.CommitResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to encode result", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// isTerminal reports whether w is a file attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
