package lsp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

// frame wraps a JSON-RPC payload in Content-Length framing.
func frame(msg interface{}) string {
	data, _ := json.Marshal(msg)
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(data), data)
}

// readFrames splits the server's output stream into JSON payloads.
func readFrames(t *testing.T, out string) []map[string]interface{} {
	t.Helper()
	var msgs []map[string]interface{}
	rest := out
	for rest != "" {
		var length int
		n, err := fmt.Sscanf(rest, "Content-Length: %d", &length)
		if n != 1 || err != nil {
			break
		}
		idx := strings.Index(rest, "\r\n\r\n")
		if idx < 0 {
			break
		}
		payload := rest[idx+4 : idx+4+length]
		rest = rest[idx+4+length:]
		var msg map[string]interface{}
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			t.Fatalf("bad frame: %v\npayload: %s", err, payload)
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func runSession(t *testing.T, requests ...interface{}) []map[string]interface{} {
	t.Helper()
	var input strings.Builder
	for _, r := range requests {
		input.WriteString(frame(r))
	}
	var output bytes.Buffer
	server := NewServer(&output)
	server.Run(strings.NewReader(input.String()))
	return readFrames(t, output.String())
}

func initializeRequest() RequestMessage {
	root := "/tmp/project"
	return RequestMessage{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  "initialize",
		Params:  InitializeParams{RootPath: &root},
	}
}

func didOpen(uri, text string) RequestMessage {
	return RequestMessage{
		Jsonrpc: "2.0",
		Method:  "textDocument/didOpen",
		Params: DidOpenTextDocumentParams{
			TextDocument: TextDocumentItem{URI: uri, LanguageID: "vaisto", Version: 1, Text: text},
		},
	}
}

func TestInitializeCapabilities(t *testing.T) {
	msgs := runSession(t, initializeRequest())
	if len(msgs) == 0 {
		t.Fatal("no response to initialize")
	}
	result := msgs[0]["result"].(map[string]interface{})
	caps := result["capabilities"].(map[string]interface{})

	if caps["textDocumentSync"] != float64(TextDocumentSyncFull) {
		t.Errorf("textDocumentSync = %v, want full", caps["textDocumentSync"])
	}
	for _, cap := range []string{"hoverProvider", "definitionProvider", "documentSymbolProvider"} {
		if caps[cap] != true {
			t.Errorf("capability %s not advertised", cap)
		}
	}
}

func TestDidOpenPublishesDiagnostics(t *testing.T) {
	msgs := runSession(t,
		initializeRequest(),
		didOpen("file:///tmp/x.va", `(defn broken [] (+ 1 "two"))`),
	)

	var diags *map[string]interface{}
	for _, m := range msgs {
		if m["method"] == "textDocument/publishDiagnostics" {
			params := m["params"].(map[string]interface{})
			diags = &params
		}
	}
	if diags == nil {
		t.Fatal("no diagnostics notification")
	}
	list := (*diags)["diagnostics"].([]interface{})
	if len(list) == 0 {
		t.Fatal("expected at least one diagnostic")
	}
	first := list[0].(map[string]interface{})
	if first["source"] != "vaisto" {
		t.Errorf("diagnostic source = %v, want vaisto", first["source"])
	}
	if first["severity"] != float64(DiagnosticSeverityError) {
		t.Errorf("severity = %v, want error", first["severity"])
	}
}

func TestCleanDocumentPublishesEmptyDiagnostics(t *testing.T) {
	msgs := runSession(t,
		initializeRequest(),
		didOpen("file:///tmp/ok.va", `(defn add [x y] (+ x y))`),
	)
	for _, m := range msgs {
		if m["method"] == "textDocument/publishDiagnostics" {
			params := m["params"].(map[string]interface{})
			list := params["diagnostics"].([]interface{})
			if len(list) != 0 {
				t.Errorf("expected no diagnostics, got %v", list)
			}
			return
		}
	}
	t.Fatal("no diagnostics notification")
}

func TestHoverOnDefn(t *testing.T) {
	src := "(defn add [x y] (+ x y))"
	msgs := runSession(t,
		initializeRequest(),
		didOpen("file:///tmp/h.va", src),
		RequestMessage{
			Jsonrpc: "2.0",
			ID:      2,
			Method:  "textDocument/hover",
			Params: TextDocumentPositionParams{
				TextDocument: TextDocumentIdentifier{URI: "file:///tmp/h.va"},
				Position:     Position{Line: 0, Character: 7}, // inside "add"
			},
		},
	)

	for _, m := range msgs {
		if m["id"] == float64(2) {
			result, ok := m["result"].(map[string]interface{})
			if !ok {
				t.Fatalf("hover result = %v", m["result"])
			}
			contents := result["contents"].(map[string]interface{})
			value := contents["value"].(string)
			if !strings.Contains(value, "add") || !strings.Contains(value, "Int") {
				t.Errorf("hover = %q, want the signature of add", value)
			}
			return
		}
	}
	t.Fatal("no hover response")
}

func TestDocumentSymbols(t *testing.T) {
	src := "(deftype Color (Red) (Green))\n(defn pick [c] 1)\n(process counter 0 :inc (+ state 1))"
	msgs := runSession(t,
		initializeRequest(),
		didOpen("file:///tmp/s.va", src),
		RequestMessage{
			Jsonrpc: "2.0",
			ID:      3,
			Method:  "textDocument/documentSymbol",
			Params: DocumentSymbolParams{
				TextDocument: TextDocumentIdentifier{URI: "file:///tmp/s.va"},
			},
		},
	)

	for _, m := range msgs {
		if m["id"] == float64(3) {
			symbols := m["result"].([]interface{})
			names := map[string]bool{}
			for _, s := range symbols {
				names[s.(map[string]interface{})["name"].(string)] = true
			}
			for _, want := range []string{"Color", "pick", "counter"} {
				if !names[want] {
					t.Errorf("missing symbol %s in %v", want, names)
				}
			}
			return
		}
	}
	t.Fatal("no documentSymbol response")
}

func TestUTF16Positions(t *testing.T) {
	// A surrogate-pair rune occupies two UTF-16 units.
	line := "x\U0001F600yz"
	if got := runeColumnToUTF16(line, 1); got != 1 {
		t.Errorf("col 1 = %d, want 1", got)
	}
	if got := runeColumnToUTF16(line, 2); got != 3 {
		t.Errorf("col 2 = %d, want 3 (after the surrogate pair)", got)
	}
	if got := utf16ToRuneColumn(line, 3); got != 2 {
		t.Errorf("utf16 3 = rune %d, want 2", got)
	}
}
