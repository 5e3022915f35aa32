package bridge

import "encoding/json"

// harnessScript evaluates a notebook source blob and optionally calls one
// function. It reads a JSON request on stdin and writes a single JSON
// response on stdout. Anything the notebook code prints goes to stderr so it
// cannot corrupt the response.
const harnessScript = `import json
import sys
import traceback


def respond(out, payload):
    out.write(json.dumps(payload))
    out.flush()


def failure(kind, exc):
    return {
        "ok": False,
        "kind": kind,
        "type": type(exc).__name__,
        "message": str(exc),
        "traceback": traceback.format_exc(),
    }


def main():
    out = sys.stdout
    request = json.load(sys.stdin)
    sys.stdout = sys.stderr

    namespace = {"__name__": "__notebook__"}
    try:
        exec(compile(request["source"], "<notebook>", "exec"), namespace)
    except BaseException as exc:
        return respond(out, failure("evaluation", exc))

    fn = namespace.get(request["name"])
    if fn is None or not callable(fn):
        return respond(out, {"ok": False, "kind": "not_found", "message": request["name"]})

    if request["mode"] == "probe":
        return respond(out, {"ok": True, "result": None})

    try:
        value = fn(*(request.get("args") or []), **(request.get("kwargs") or {}))
    except BaseException as exc:
        return respond(out, failure("evaluation", exc))

    try:
        json.dumps(value, allow_nan=False)
    except (TypeError, ValueError):
        return respond(out, {"ok": True, "result": repr(value), "repr": True})
    respond(out, {"ok": True, "result": value})


main()
`

// Request modes
const (
	modeProbe = "probe"
	modeCall  = "call"
)

// Response kinds
const (
	kindEvaluation = "evaluation"
	kindNotFound   = "not_found"
)

type harnessRequest struct {
	Source string         `json:"source"`
	Name   string         `json:"name"`
	Mode   string         `json:"mode"`
	Args   []any          `json:"args,omitempty"`
	Kwargs map[string]any `json:"kwargs,omitempty"`
}

type harnessResponse struct {
	OK        bool            `json:"ok"`
	Result    json.RawMessage `json:"result"`
	Repr      bool            `json:"repr"`
	Kind      string          `json:"kind"`
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Traceback string          `json:"traceback"`
}
