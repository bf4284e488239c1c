package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/appstate/internal/models"
	"github.com/atinyakov/appstate/internal/store"
)

const shellHelp = "Available commands: help, state, paths, get <path>, commit <mutation> [json], dispatch <action> [json], exit"

// parsePayload decodes an optional JSON argument. Input that is not exactly
// one JSON value is taken as a plain string, unless it looks like JSON.
func parsePayload(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	err := dec.Decode(&v)
	if err == nil && dec.InputOffset() < int64(len(raw)) {
		err = fmt.Errorf("trailing data after JSON value: %q", raw[dec.InputOffset():])
	}
	if err != nil {
		if !strings.ContainsAny(raw, `{}[]"`) {
			return raw, nil
		}
		return nil, err
	}
	return v, nil
}

// shell runs the interactive loop, reading commands from in until exit or EOF.
func shell(ctx context.Context, in io.Reader, out io.Writer, st *store.Store) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "appstate> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		cmd, rest, _ := strings.Cut(line, " ")
		if cmd == "" {
			continue
		}
		name, arg, _ := strings.Cut(strings.TrimSpace(rest), " ")

		switch cmd {
		case "help":
			fmt.Fprintln(out, shellHelp)
		case "state":
			b, _ := json.MarshalIndent(st.State(), "", "  ")
			fmt.Fprintln(out, string(b))
		case "paths":
			for _, p := range st.Paths() {
				fmt.Fprintln(out, p)
			}
		case "get":
			if name == "" {
				fmt.Fprintln(out, "Usage: get <path>")
				continue
			}
			v, err := st.Get(name)
			if err != nil {
				fmt.Fprintln(out, "Error:", err)
				continue
			}
			b, _ := json.Marshal(v)
			fmt.Fprintln(out, string(b))
		case "commit":
			if name == "" {
				fmt.Fprintln(out, "Usage: commit <mutation> [json]")
				continue
			}
			payload, err := parsePayload(arg)
			if err != nil {
				fmt.Fprintln(out, "Invalid payload:", err)
				continue
			}
			if err := st.Commit(models.Mutation(name), payload); err != nil {
				fmt.Fprintln(out, "Error:", err)
				continue
			}
			fmt.Fprintln(out, "OK")
		case "dispatch":
			if name == "" {
				fmt.Fprintln(out, "Usage: dispatch <action> [json]")
				continue
			}
			payload, err := parsePayload(arg)
			if err != nil {
				fmt.Fprintln(out, "Invalid payload:", err)
				continue
			}
			p, err := st.Dispatch(ctx, models.Action(name), payload)
			if err == nil {
				_, err = p.Await(ctx)
			}
			if err != nil {
				fmt.Fprintln(out, "Error:", err)
				continue
			}
			fmt.Fprintln(out, "OK")
		case "exit":
			fmt.Fprintln(out, "Bye")
			return
		default:
			fmt.Fprintln(out, "Unknown command. Type 'help' for a list of commands.")
		}
	}
}
