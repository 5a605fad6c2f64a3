package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testVectorizer = "../../ml/testdata/vectorizer.json"
	testClassifier = "../../ml/testdata/classifier_lr.json"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out)
	cmd.SetArgs(append([]string{
		"--config", "does-not-exist.yaml",
		"--vectorizer", testVectorizer,
		"--classifier", testClassifier,
	}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyArgs(t *testing.T) {
	out, err := execute(t, "", "Shocking", "miracle", "cure", "--terms")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "fake", got["prediction"])
	assert.InDelta(t, 0.97195, got["fake_probability"], 1e-4)
	assert.Equal(t, []interface{}{"shocking", "miracle", "cure", "miracle cure"}, got["terms"])
}

func TestClassifyStdin(t *testing.T) {
	out, err := execute(t, "Official government report\n")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "real", got["prediction"])
	assert.NotContains(t, got, "terms")
}

func TestClassifyInspect(t *testing.T) {
	out, err := execute(t, "", "--inspect")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, true, got["loaded"])
	assert.Equal(t, "logistic_regression", got["classifier_type"])
	assert.Equal(t, float64(7), got["features"])
}

func TestClassifyErrors(t *testing.T) {
	_, err := execute(t, "   ")
	assert.Error(t, err)

	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader("text"), &out)
	cmd.SetArgs([]string{"--config", "does-not-exist.yaml", "--vectorizer", "missing.json"})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	assert.Error(t, cmd.Execute())
}
