package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reglet-dev/hostbridge/bridge"
	"github.com/reglet-dev/hostbridge/domain/value"
	"github.com/reglet-dev/hostbridge/internal/testutil"
	"github.com/reglet-dev/hostbridge/memhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCall(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"ping", []string{"call", "PING"}, "PONG\n"},
		{"echo", []string{"call", "ECHO", "hi"}, "hi\n"},
		{"missing key", []string{"call", "GET", "nope"}, "(nil)\n"},
		{"integer", []string{"call", "INCRBY", "n", "3"}, "(integer) 3\n"},
		{"push", []string{"call", "RPUSH", "l", "a"}, "(integer) 1\n"},
		{"host error", []string{"call", "GET"}, "(error) ERR wrong number of arguments for 'get' command\n"},
		{"unknown", []string{"call", "NOPE"}, "(error) ERR host failed to run command 'NOPE'\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCall_RequiresCommand(t *testing.T) {
	_, err := execute(t, "", "call")
	assert.Error(t, err)
}

func TestCall_Frames(t *testing.T) {
	out, err := execute(t, "", "call", "--frames", "LRANGE", "empty", "0", "-1")
	require.NoError(t, err)
	assert.Equal(t, "(empty array)\nreply status: OK\n1. array 0\n", out)

	out, err = execute(t, "", "call", "--frames", "GET")
	require.NoError(t, err)
	assert.Contains(t, out, "1. error \"ERR wrong number of arguments for 'get' command\"")
}

func TestCall_JSON(t *testing.T) {
	out, err := execute(t, "", "call", "--json", "LRANGE", "l", "0", "-1")
	require.NoError(t, err)
	testutil.AssertJSONEqual(t, `{"command":"LRANGE","value":[]}`, out)

	out, err = execute(t, "", "call", "--json", "INCRBY", "n", "5")
	require.NoError(t, err)
	testutil.AssertJSONEqual(t, `{"command":"INCRBY","value":5}`, out)

	out, err = execute(t, "", "call", "--json", "GET", "missing")
	require.NoError(t, err)
	testutil.AssertJSONEqual(t, `{"command":"GET","value":null}`, out)

	out, err = execute(t, "", "call", "--json", "GET")
	require.NoError(t, err)
	testutil.AssertJSONEqual(t, `{
		"command": "GET",
		"value": null,
		"error": {
			"message": "ERR wrong number of arguments for 'get' command",
			"type": "host",
			"code": "ERR"
		}
	}`, out)
}

func TestCall_JSONAndFramesConflict(t *testing.T) {
	_, err := execute(t, "", "call", "--json", "--frames", "PING")
	require.Error(t, err)
}

func TestJSONValue(t *testing.T) {
	got := jsonValue(value.Array{
		value.SimpleString("a"),
		value.Integer(2),
		value.Float(1.5),
		value.None,
		value.Array{value.OK},
	})
	assert.Equal(t, []any{"a", int64(2), 1.5, nil, []any{"OK"}}, got)
}

func TestScript(t *testing.T) {
	script := `# seed a list
RPUSH fruits apple "passion fruit"
LRANGE fruits 0 -1

SET greeting "hello world"
GET greeting
TYPE fruits
`
	out, err := execute(t, script, "script")
	require.NoError(t, err)
	assert.Equal(t, `> RPUSH fruits apple "passion fruit"
(integer) 2
> LRANGE fruits 0 -1
1) apple
2) passion fruit
> SET greeting "hello world"
OK
> GET greeting
hello world
> TYPE fruits
list
`, out)
}

func TestScript_FromFile(t *testing.T) {
	path := writeFile(t, "cmds.txt", "SET k v\nGET k\n")
	out, err := execute(t, "", "script", path)
	require.NoError(t, err)
	assert.Equal(t, "> SET k v\nOK\n> GET k\nv\n", out)
}

func TestScript_UnterminatedQuote(t *testing.T) {
	_, err := execute(t, "ECHO \"open\n", "script")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1: unterminated quote")
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"PING", []string{"PING"}},
		{"SET  k\tv", []string{"SET", "k", "v"}},
		{`ECHO "a b"`, []string{"ECHO", "a b"}},
		{`ECHO ""`, []string{"ECHO", ""}},
		{`ECHO x"y z"`, []string{"ECHO", "xy z"}},
	}

	for _, tt := range tests {
		got, err := splitWords(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestStress(t *testing.T) {
	out, err := execute(t, "", "stress", "--workers", "4", "--calls", "25")
	require.NoError(t, err)
	assert.Contains(t, out, "workers:          4\n")
	assert.Contains(t, out, "calls:            100\n")
	assert.Contains(t, out, "unlocked calls:   0\n")
	assert.Contains(t, out, "detached freed:   4/4\n")
	assert.Contains(t, out, "host log records: 4\n")
}

func TestStress_FailingCommand(t *testing.T) {
	path := writeFile(t, "stress.toml", "[stress]\ncommand = \"GET\"\nargs = []\nworkers = 2\ncalls = 3\n")
	_, err := execute(t, "", "--config", path, "stress")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong number of arguments")
}

func TestStress_InvalidOverride(t *testing.T) {
	_, err := execute(t, "", "stress", "--workers", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stress options")
}

func TestSchema(t *testing.T) {
	out, err := execute(t, "", "schema")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, out, `"max_reply_depth"`)
	assert.Contains(t, out, `"workers"`)
	assert.Contains(t, out, `"level"`)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := writeFile(t, "bridgectl.toml", `
[log]
level = "DEBUG"

[bridge]
max_reply_depth = 4

[stress]
workers = 2
`)
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Bridge.MaxReplyDepth)
	assert.Equal(t, bridge.DefaultConfig().AllocLimit, cfg.Bridge.AllocLimit)
	assert.Equal(t, 2, cfg.Stress.Workers)
	assert.Equal(t, 100, cfg.Stress.Calls)
	assert.Equal(t, "INCR", cfg.Stress.Command)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[bridge\n", "load config"},
		{"unknown key", "[bridge]\ncolour = 1\n", `unknown key "bridge.colour"`},
		{"invalid depth", "[bridge]\nmax_reply_depth = 0\n", "validation failed"},
		{"invalid level", "[log]\nlevel = \"loud\"\n", "validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeFile(t, "bad.toml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfigFile_ReachesBridge(t *testing.T) {
	path := writeFile(t, "shallow.toml", "[bridge]\nmax_reply_depth = 1\n")
	out, err := execute(t, "RPUSH l a\nLRANGE l 0 -1\n", "--config", path, "script")
	require.NoError(t, err)
	// A flat array is within depth 1.
	assert.Contains(t, out, "1) a\n")
}

func TestWasmHeap_MissingFile(t *testing.T) {
	_, err := execute(t, "", "--wasm-heap", filepath.Join(t.TempDir(), "missing.wasm"), "call", "PING")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read wasm heap")
}

func TestFormatFrames_UsesHostRecording(t *testing.T) {
	h, err := memhost.NewBuiltin()
	require.NoError(t, err)
	m, err := bridge.NewModule(h)
	require.NoError(t, err)
	ctx := m.Context(h.NewContext())

	var out bytes.Buffer
	v, callErr := ctx.Call("INCRBY", "n", "2")
	printFrames(&out, h, ctx, v, callErr)
	assert.Equal(t, "reply status: OK\n1. integer 2\n", out.String())
}
