package cli_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rulelabel/internal/cli"
)

const rulesJSON = `{
  "apiVersion": "v1",
  "kind": "List",
  "items": [
    {
      "apiVersion": "monitoring.coreos.com/v1",
      "kind": "PrometheusRule",
      "metadata": {"name": "kube", "namespace": "monitoring"},
      "spec": {
        "groups": [
          {
            "name": "g1",
            "rules": [
              {"alert": "Foo", "expr": "up == 0", "for": "5m", "labels": {"severity": "warning"}},
              {"alert": "Bar", "expr": "rate(x[5m]) > 1 && y < 2", "labels": {"severity": "info"}},
              {"record": "job:up:sum", "expr": "sum(up)"}
            ]
          }
        ]
      }
    }
  ]
}`

const minimalConfig = "apiVersion: rulelabel.jacobcolvin.com/v1beta1\nkind: Configuration\n"

type testEnv struct {
	dir       string
	config    string
	rules     string
	alerts    string
	output    string
	stdout    *bytes.Buffer
	stderrLog *bytes.Buffer
}

func newTestEnv(t *testing.T, alerts string) *testEnv {
	t.Helper()

	dir := t.TempDir()
	te := &testEnv{
		dir:       dir,
		config:    filepath.Join(dir, "config.yaml"),
		rules:     filepath.Join(dir, "rules.json"),
		alerts:    filepath.Join(dir, "alerts.txt"),
		output:    filepath.Join(dir, "out.json"),
		stdout:    &bytes.Buffer{},
		stderrLog: &bytes.Buffer{},
	}

	require.NoError(t, os.WriteFile(te.config, []byte(minimalConfig), 0o600))
	require.NoError(t, os.WriteFile(te.rules, []byte(rulesJSON), 0o600))
	require.NoError(t, os.WriteFile(te.alerts, []byte(alerts), 0o600))

	return te
}

func (te *testEnv) run(t *testing.T, args ...string) error {
	t.Helper()

	cmd := cli.NewRootCmd()
	cmd.SetArgs(append([]string{"--config", te.config, "--log-format", "logfmt"}, args...))
	cmd.SetOut(te.stdout)
	cmd.SetErr(te.stderrLog)

	return cmd.Execute()
}

func (te *testEnv) readOutput(t *testing.T) map[string]any {
	t.Helper()

	b, err := os.ReadFile(te.output)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))

	return out
}

func rulesOf(t *testing.T, doc map[string]any, path ...int) []any {
	t.Helper()

	spec := doc
	if len(path) > 0 {
		items, ok := doc["items"].([]any)
		require.True(t, ok)

		spec, ok = items[path[0]].(map[string]any)
		require.True(t, ok)
	}

	s, ok := spec["spec"].(map[string]any)
	require.True(t, ok)

	groups, ok := s["groups"].([]any)
	require.True(t, ok)

	group, ok := groups[0].(map[string]any)
	require.True(t, ok)

	rules, ok := group["rules"].([]any)
	require.True(t, ok)

	return rules
}

func labelsOf(t *testing.T, rule any) map[string]any {
	t.Helper()

	r, ok := rule.(map[string]any)
	require.True(t, ok)

	labels, ok := r["labels"].(map[string]any)
	require.True(t, ok)

	return labels
}

func TestRun_Clone(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, "Foo\n")

	err := te.run(t, "-l", "severity", "-v", "critical", "-f", te.alerts, "-j", te.rules, "-o", te.output)
	require.NoError(t, err)

	out := te.readOutput(t)
	assert.Equal(t, "monitoring.coreos.com/v1", out["apiVersion"])
	assert.Equal(t, "PrometheusRule", out["kind"])

	meta, ok := out["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "prometheus", meta["name"])
	assert.Equal(t, "openshift-monitoring", meta["namespace"])
	assert.InDelta(t, 1, meta["generation"], 0)

	rules := rulesOf(t, out)
	require.Len(t, rules, 1)

	rule, ok := rules[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Foo-custom", rule["alert"])
	assert.Equal(t, "up == 0", rule["expr"])
	assert.Equal(t, "5m", rule["for"])
	assert.Equal(t, map[string]any{"severity": "critical"}, labelsOf(t, rule))

	assert.Contains(t, te.stderrLog.String(), "resource=monitoring/kube")

	// The input file is not touched.
	in, err := os.ReadFile(te.rules)
	require.NoError(t, err)
	assert.JSONEq(t, rulesJSON, string(in))
}

func TestRun_Update(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, "Bar\n")

	err := te.run(t, "-l", "team", "-v", "sre", "-f", te.alerts, "-j", te.rules, "-o", te.output, "-m", "update")
	require.NoError(t, err)

	b, err := os.ReadFile(te.output)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"rate(x[5m]) > 1 && y < 2"`)
	assert.Contains(t, string(b), "\n    \"apiVersion\"")

	out := te.readOutput(t)
	rules := rulesOf(t, out, 0)
	require.Len(t, rules, 3)

	assert.Equal(t, map[string]any{"severity": "warning"}, labelsOf(t, rules[0]))
	assert.Equal(t, map[string]any{"severity": "info", "team": "sre"}, labelsOf(t, rules[1]))

	record, ok := rules[2].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, record, "labels")
}

func TestRun_EmptyValue(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, "Bar\n")

	err := te.run(t, "-l", "team", "-v", "", "-f", te.alerts, "-j", te.rules, "-o", te.output, "-m", "update")
	require.NoError(t, err)

	rules := rulesOf(t, te.readOutput(t), 0)
	assert.Equal(t, map[string]any{"severity": "info", "team": ""}, labelsOf(t, rules[1]))
}

func TestRun_EmptyValueFromEnv(t *testing.T) {
	t.Setenv("RULELABEL_VALUE", "")

	te := newTestEnv(t, "Bar\n")

	err := te.run(t, "-l", "team", "-f", te.alerts, "-j", te.rules, "-o", te.output, "-m", "update")
	require.NoError(t, err)

	rules := rulesOf(t, te.readOutput(t), 0)
	assert.Equal(t, map[string]any{"severity": "info", "team": ""}, labelsOf(t, rules[1]))
}

func TestRun_DebugLogsAlertNames(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, "Foo\nBar\n")

	err := te.run(t, "--log-level", "debug", "-l", "a", "-v", "b", "-f", te.alerts, "-j", te.rules, "-o", te.output)
	require.NoError(t, err)

	assert.Contains(t, te.stderrLog.String(), `names="[Bar Foo]"`)
}

func TestRun_Match(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, "")

	err := te.run(t, "-l", "team", "-v", "sre", "-j", te.rules, "-o", te.output,
		"--match", `labels.severity == "info"`, "--suffix", "-sre")
	require.NoError(t, err)

	rules := rulesOf(t, te.readOutput(t))
	require.Len(t, rules, 1)

	rule, ok := rules[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Bar-sre", rule["alert"])
}

func TestRun_FetchCommand(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, "Foo\nBar\n")

	err := te.run(t, "-l", "severity", "-v", "critical", "-f", te.alerts, "-o", te.output,
		"--fetch-command", "cat "+te.rules)
	require.NoError(t, err)

	rules := rulesOf(t, te.readOutput(t))
	require.Len(t, rules, 2)
}

func TestRun_Apply(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		applyCommand string
	}{
		"apply succeeds": {applyCommand: "true"},
		"apply failure is not fatal": {applyCommand: "false"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			te := newTestEnv(t, "Foo\n")

			err := te.run(t, "-l", "severity", "-v", "critical", "-f", te.alerts, "-j", te.rules, "-o", te.output,
				"--apply", "--apply-command", tc.applyCommand)
			require.NoError(t, err)

			_, err = os.Stat(te.output)
			require.NoError(t, err)
		})
	}
}

func TestRun_ApplyOnlyWhenRequested(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		args       []string
		wantMarker bool
	}{
		"without --apply": {},
		"with --apply": {
			args:       []string{"--apply"},
			wantMarker: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			te := newTestEnv(t, "Foo\n")
			marker := filepath.Join(te.dir, "applied")

			args := []string{
				"-l", "severity", "-v", "critical", "-f", te.alerts, "-j", te.rules, "-o", te.output,
				"--apply-command", "touch " + marker,
			}
			require.NoError(t, te.run(t, append(args, tc.args...)...))

			_, err := os.Stat(marker)
			if tc.wantMarker {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

func TestRun_Diff(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t, "Foo\n")

	err := te.run(t, "-l", "severity", "-v", "critical", "-f", te.alerts, "-j", te.rules, "-o", te.output,
		"-m", "update", "--diff")
	require.NoError(t, err)

	out := te.stdout.String()
	assert.Contains(t, out, "--- "+te.rules)
	assert.Contains(t, out, "+++ "+te.output)
	assert.Contains(t, out, `-                                    "severity": "warning"`)
	assert.Contains(t, out, `+                                    "severity": "critical"`)
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		args   func(te *testEnv) []string
		errMsg string
	}{
		"missing alert file": {
			args: func(te *testEnv) []string {
				return []string{"-l", "a", "-v", "b", "-f", filepath.Join(te.dir, "nope.txt"), "-j", te.rules}
			},
			errMsg: "not found",
		},
		"missing rules file": {
			args: func(te *testEnv) []string {
				return []string{"-l", "a", "-v", "b", "-f", te.alerts, "-j", filepath.Join(te.dir, "nope.json")}
			},
			errMsg: "not found",
		},
		"invalid rules file": {
			args: func(te *testEnv) []string {
				return []string{"-l", "a", "-v", "b", "-f", te.alerts, "-j", te.alerts}
			},
			errMsg: "invalid JSON",
		},
		"missing label and value": {
			args: func(te *testEnv) []string {
				return []string{"-f", te.alerts, "-j", te.rules}
			},
			errMsg: `required flag(s) "label", "value" not set`,
		},
		"empty label": {
			args: func(te *testEnv) []string {
				return []string{"-l", "", "-v", "b", "-f", te.alerts, "-j", te.rules}
			},
			errMsg: "label key must not be empty",
		},
		"missing alert file and selector": {
			args: func(te *testEnv) []string {
				return []string{"-l", "a", "-v", "b", "-j", te.rules}
			},
			errMsg: `required flag(s) "file" not set`,
		},
		"unknown mode": {
			args: func(te *testEnv) []string {
				return []string{"-l", "a", "-v", "b", "-f", te.alerts, "-j", te.rules, "-m", "merge"}
			},
			errMsg: "unknown mode",
		},
		"invalid selector": {
			args: func(te *testEnv) []string {
				return []string{"-l", "a", "-v", "b", "-j", te.rules, "--match", "alert +"}
			},
			errMsg: "--match",
		},
		"failing fetch command": {
			args: func(te *testEnv) []string {
				return []string{"-l", "a", "-v", "b", "-f", te.alerts, "--fetch-command", "false"}
			},
			errMsg: "fetch rules",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			te := newTestEnv(t, "Foo\n")

			err := te.run(t, append(tc.args(te), "-o", te.output)...)
			require.ErrorContains(t, err, tc.errMsg)

			_, err = os.Stat(te.output)
			require.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

func TestRun_Config(t *testing.T) {
	t.Parallel()

	t.Run("write config", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "rulelabel", "config.yaml")

		cmd := cli.NewRootCmd()
		cmd.SetArgs([]string{"--config", path, "--write-config"})
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		require.NoError(t, cmd.Execute())

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(b), "kind: Configuration")
	})

	t.Run("show config", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t, "")

		require.NoError(t, te.run(t, "--show-config", "--fetch-command", "kubectl get prometheusrules -A -o json"))

		out := te.stdout.String()
		assert.Contains(t, out, "kind: Configuration")
		assert.Contains(t, out, "command: kubectl")
		assert.Contains(t, out, "namespace: openshift-monitoring")

		// The overridden source keeps its envFrom, as does the default apply.
		assert.Equal(t, 2, strings.Count(out, "name: KUBECONFIG"))
	})

	t.Run("explicit config must exist", func(t *testing.T) {
		t.Parallel()

		cmd := cli.NewRootCmd()
		cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--show-config"})
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		require.ErrorIs(t, cmd.Execute(), os.ErrNotExist)
	})

	t.Run("envelope from config", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t, "Foo\n")
		require.NoError(t, os.WriteFile(te.config, []byte(minimalConfig+`envelope:
  name: team-alerts
  namespace: team
`), 0o600))

		require.NoError(t, te.run(t, "-l", "a", "-v", "b", "-f", te.alerts, "-j", te.rules, "-o", te.output))

		meta, ok := te.readOutput(t)["metadata"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "team-alerts", meta["name"])
		assert.Equal(t, "team", meta["namespace"])
	})
}
