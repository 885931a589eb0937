package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func (a *app) callCommand() *cobra.Command {
	var inline, file string
	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Call any server tool with JSON arguments",
		Long: `Call a tool by name. Arguments are a JSON object taken from --params, from
--file, or from standard input when it is not a terminal.`,
		Example: `  m365 call list-mail-messages --params '{"top":3}'
  echo '{"search":"John"}' | m365 call search-people`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				payload []byte
				err     error
			)
			switch {
			case inline != "" && file != "":
				return errors.New("--params and --file are mutually exclusive")
			case inline != "":
				payload = []byte(inline)
			case file != "":
				payload, err = os.ReadFile(file)
			case !isTerminalReader(cmd.InOrStdin()):
				payload, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			params, err := parseParams(payload)
			if err != nil {
				return err
			}
			return a.invoke(cmd, args[0], params)
		},
	}
	cmd.Flags().StringVar(&inline, "params", "", "Inline JSON object of tool arguments")
	cmd.Flags().StringVar(&file, "file", "", "Path to a JSON object of tool arguments")
	return cmd
}

// parseParams decodes a JSON object. Blank input means no arguments.
func parseParams(payload []byte) (map[string]any, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("decode tool arguments: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode tool arguments: trailing data after JSON object")
	}
	if params == nil {
		return nil, errors.New("decode tool arguments: expected a JSON object")
	}
	return params, nil
}

func isTerminalReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
