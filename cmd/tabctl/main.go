// tabctl is a one-shot client for the tab host socket: it encodes a single
// command, prints the reply as JSON, and exits non-zero on an error reply.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dgnsrekt/tabhost/internal/ipc"
	"github.com/dgnsrekt/tabhost/internal/tabs"
)

const usage = `usage: tabctl [-socket path] <command> [args]

commands:
  ping                            check the host is alive
  capabilities                    print the host feature surface
  list                            list all tabs grouped in display order
  state <tab>                     print one tab's state
  create [-title t] [-program p] [-url u] [-group n]
  close [tab]                     close a tab (default: active)
  select <active|next|previous|last|N|tab>
  move <tab> [-group n] [-index i]
  title <tab> [text]              set or clear a custom title
  group-name <group> [text]       set or clear a group name
  restore                         reopen the most recently closed tab
  open <url> [-tab tab|-current]  open a url (default: new tab)
  reload [tab]                    reload a web tab
  panel [-enabled bool] [-width n]
  input <text> [tab]              write text to a terminal tab
  action <name> [tab]             dispatch a named action
  command <input> [tab]           run a command bar line
  targets                         list inspector targets
  attach [-tab tab] [-target n]   attach an inspector session
  detach <session>                detach an inspector session
  send <session> <message>        forward a protocol message
  poll <session> [-max n]         drain queued inspector messages
  raw [json]                      send a raw request line (or read stdin)

tab arguments are index.generation pairs, e.g. 0.1`

func main() {
	socket := flag.String("socket", "", "host socket path (default: discovery)")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	req, err := buildRequest(args[0], args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "tabctl: %v\n", err)
		os.Exit(2)
	}

	var reply *ipc.Reply
	if req != nil {
		reply, err = ipc.Send(*socket, req)
	} else {
		var line []byte
		line, err = rawLine(args[1:])
		if err == nil {
			reply, err = ipc.SendRaw(*socket, line)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "tabctl: %v\n", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(reply); err != nil {
		fmt.Fprintf(os.Stderr, "tabctl: %v\n", err)
		os.Exit(1)
	}
	if _, isErr := reply.IsError(); isErr {
		os.Exit(1)
	}
}

// buildRequest maps one command line onto a request; a nil request with nil
// error selects raw mode.
func buildRequest(command string, args []string) (*ipc.Request, error) {
	switch command {
	case "ping":
		return &ipc.Request{Type: ipc.ReqPing}, nil

	case "capabilities":
		return &ipc.Request{Type: ipc.ReqGetCapabilities}, nil

	case "list":
		return &ipc.Request{Type: ipc.ReqListTabs}, nil

	case "state":
		if len(args) < 1 {
			return nil, fmt.Errorf("state requires a tab")
		}
		id, err := parseTabID(args[0])
		if err != nil {
			return nil, err
		}
		return &ipc.Request{Type: ipc.ReqGetTabState, TabID: &id}, nil

	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		title := fs.String("title", "", "initial title")
		program := fs.String("program", "", "program to run")
		url := fs.String("url", "", "open a web tab at this url")
		group := fs.Int("group", -1, "target group id")
		fs.Parse(args)

		opts := ipc.CreateOptions{}
		if *title != "" {
			opts.Title = title
		}
		if *program != "" {
			opts.Program = program
		}
		if *url != "" {
			opts.URL = url
		}
		if *group >= 0 {
			opts.GroupID = group
		}
		return &ipc.Request{Type: ipc.ReqCreateTab, Options: &opts}, nil

	case "close":
		req := &ipc.Request{Type: ipc.ReqCloseTab}
		if len(args) > 0 {
			id, err := parseTabID(args[0])
			if err != nil {
				return nil, err
			}
			req.TabID = &id
		}
		return req, nil

	case "select":
		if len(args) != 1 {
			return nil, fmt.Errorf("select requires a selector")
		}
		sel, err := parseSelection(args[0])
		if err != nil {
			return nil, err
		}
		return &ipc.Request{Type: ipc.ReqSelectTab, Selection: sel}, nil

	case "move":
		if len(args) < 1 {
			return nil, fmt.Errorf("move requires a tab")
		}
		id, err := parseTabID(args[0])
		if err != nil {
			return nil, err
		}
		fs := flag.NewFlagSet("move", flag.ExitOnError)
		group := fs.Int("group", -1, "target group id (omit for a fresh group)")
		index := fs.Int("index", -1, "target position (omit to append)")
		fs.Parse(args[1:])

		req := &ipc.Request{Type: ipc.ReqMoveTab, TabID: &id}
		if *group >= 0 {
			req.TargetGroupID = group
		}
		if *index >= 0 {
			req.TargetIndex = index
		}
		return req, nil

	case "title":
		if len(args) < 1 {
			return nil, fmt.Errorf("title requires a tab")
		}
		id, err := parseTabID(args[0])
		if err != nil {
			return nil, err
		}
		req := &ipc.Request{Type: ipc.ReqSetTabTitle, TabID: &id}
		if len(args) > 1 {
			text := strings.Join(args[1:], " ")
			req.Title = &text
		}
		return req, nil

	case "group-name":
		if len(args) < 1 {
			return nil, fmt.Errorf("group-name requires a group id")
		}
		groupID, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid group id %q", args[0])
		}
		req := &ipc.Request{Type: ipc.ReqSetGroupName, GroupID: &groupID}
		if len(args) > 1 {
			text := strings.Join(args[1:], " ")
			req.Name = &text
		}
		return req, nil

	case "restore":
		return &ipc.Request{Type: ipc.ReqRestoreClosedTab}, nil

	case "open":
		if len(args) < 1 {
			return nil, fmt.Errorf("open requires a url")
		}
		url := args[0]
		fs := flag.NewFlagSet("open", flag.ExitOnError)
		tab := fs.String("tab", "", "load into this tab")
		current := fs.Bool("current", false, "load into the current tab")
		fs.Parse(args[1:])

		req := &ipc.Request{Type: ipc.ReqOpenURL, URL: &url}
		switch {
		case *tab != "":
			id, err := parseTabID(*tab)
			if err != nil {
				return nil, err
			}
			req.Target = &ipc.URLTarget{Type: ipc.TargetTabID, TabID: &id}
		case *current:
			req.Target = &ipc.URLTarget{Type: ipc.TargetCurrent}
		}
		return req, nil

	case "reload":
		req := &ipc.Request{Type: ipc.ReqReloadWeb}
		if len(args) > 0 {
			id, err := parseTabID(args[0])
			if err != nil {
				return nil, err
			}
			req.TabID = &id
		}
		return req, nil

	case "panel":
		fs := flag.NewFlagSet("panel", flag.ExitOnError)
		enabled := fs.String("enabled", "", "show or hide the panel (true/false)")
		width := fs.Int("width", 0, "panel width in pixels")
		fs.Parse(args)

		if *enabled == "" && *width == 0 {
			return &ipc.Request{Type: ipc.ReqGetTabPanel}, nil
		}
		req := &ipc.Request{Type: ipc.ReqSetTabPanel}
		if *enabled != "" {
			value, err := strconv.ParseBool(*enabled)
			if err != nil {
				return nil, fmt.Errorf("invalid -enabled value %q", *enabled)
			}
			req.Enabled = &value
		}
		if *width > 0 {
			req.Width = width
		}
		return req, nil

	case "input":
		if len(args) < 1 {
			return nil, fmt.Errorf("input requires text")
		}
		req := &ipc.Request{Type: ipc.ReqSendInput, Text: &args[0]}
		if len(args) > 1 {
			id, err := parseTabID(args[1])
			if err != nil {
				return nil, err
			}
			req.TabID = &id
		}
		return req, nil

	case "action":
		if len(args) < 1 {
			return nil, fmt.Errorf("action requires a name")
		}
		req := &ipc.Request{Type: ipc.ReqDispatchAction,
			Action: &ipc.Action{Type: ipc.ActionNamed, Name: &args[0]}}
		if len(args) > 1 {
			id, err := parseTabID(args[1])
			if err != nil {
				return nil, err
			}
			req.TabID = &id
		}
		return req, nil

	case "command":
		if len(args) < 1 {
			return nil, fmt.Errorf("command requires input")
		}
		req := &ipc.Request{Type: ipc.ReqRunCommandBar, Input: &args[0]}
		if len(args) > 1 {
			id, err := parseTabID(args[1])
			if err != nil {
				return nil, err
			}
			req.TabID = &id
		}
		return req, nil

	case "targets":
		return &ipc.Request{Type: ipc.ReqListInspectorTargets}, nil

	case "attach":
		fs := flag.NewFlagSet("attach", flag.ExitOnError)
		tab := fs.String("tab", "", "attach to this tab's page")
		target := fs.Uint64("target", 0, "attach to this target id")
		fs.Parse(args)

		req := &ipc.Request{Type: ipc.ReqAttachInspector}
		if *tab != "" {
			id, err := parseTabID(*tab)
			if err != nil {
				return nil, err
			}
			req.TabID = &id
		}
		if *target != 0 {
			req.TargetID = target
		}
		if req.TabID == nil && req.TargetID == nil {
			return nil, fmt.Errorf("attach requires -tab or -target")
		}
		return req, nil

	case "detach":
		if len(args) != 1 {
			return nil, fmt.Errorf("detach requires a session id")
		}
		return &ipc.Request{Type: ipc.ReqDetachInspector, SessionID: &args[0]}, nil

	case "send":
		if len(args) != 2 {
			return nil, fmt.Errorf("send requires a session id and a message")
		}
		return &ipc.Request{Type: ipc.ReqSendInspectorMessage,
			SessionID: &args[0], Message: &args[1]}, nil

	case "poll":
		if len(args) < 1 {
			return nil, fmt.Errorf("poll requires a session id")
		}
		fs := flag.NewFlagSet("poll", flag.ExitOnError)
		max := fs.Int("max", 0, "maximum messages to drain (0 = all)")
		fs.Parse(args[1:])

		req := &ipc.Request{Type: ipc.ReqPollInspectorMessages, SessionID: &args[0]}
		if *max > 0 {
			req.Max = max
		}
		return req, nil

	case "raw":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown command %q", command)
}

func rawLine(args []string) ([]byte, error) {
	if len(args) > 0 {
		return []byte(args[0]), nil
	}
	line, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, err
	}
	return line, nil
}

// parseTabID reads the index.generation form printed by list and state.
func parseTabID(input string) (tabs.TabID, error) {
	index, generation, ok := strings.Cut(input, ".")
	if !ok {
		return tabs.TabID{}, fmt.Errorf("invalid tab %q: want index.generation", input)
	}
	idx, err := strconv.ParseUint(index, 10, 32)
	if err != nil {
		return tabs.TabID{}, fmt.Errorf("invalid tab %q: %w", input, err)
	}
	gen, err := strconv.ParseUint(generation, 10, 32)
	if err != nil {
		return tabs.TabID{}, fmt.Errorf("invalid tab %q: %w", input, err)
	}
	return tabs.TabID{Index: uint32(idx), Generation: uint32(gen)}, nil
}

// parseSelection accepts the named selectors, a bare group index, or an
// index.generation tab id.
func parseSelection(input string) (*ipc.Selection, error) {
	switch input {
	case "active", "next", "previous", "last":
		return &ipc.Selection{Type: input}, nil
	}
	if index, err := strconv.Atoi(input); err == nil {
		return &ipc.Selection{Type: ipc.SelByIndex, Index: &index}, nil
	}
	id, err := parseTabID(input)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q", input)
	}
	return &ipc.Selection{Type: ipc.SelByID, TabID: &id}, nil
}
