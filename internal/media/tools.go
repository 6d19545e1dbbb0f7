package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Tool names an external binary the pipeline depends on.
type Tool struct {
	Name string
	// Path is the binary to run, resolved through PATH when it has no separator.
	Path string
	// VersionArgs print the version and exit, e.g. "-version".
	VersionArgs []string
}

// DecoderTools are the binaries the Vidio decoder shells out to.
var DecoderTools = []Tool{
	{Name: "ffmpeg", Path: "ffmpeg", VersionArgs: []string{"-version"}},
	{Name: "ffprobe", Path: "ffprobe", VersionArgs: []string{"-version"}},
}

// ToolStatus is the outcome of probing a Tool.
type ToolStatus struct {
	Tool    Tool
	Version string
	Err     error
}

// Available reports whether the tool ran successfully.
func (s ToolStatus) Available() bool {
	return s.Err == nil
}

// ProbeTools runs every tool's version command and reports what it found.
// A missing tool is not an error for the caller; it is reported in the status.
func ProbeTools(ctx context.Context, tools ...Tool) []ToolStatus {
	statuses := make([]ToolStatus, 0, len(tools))
	for _, t := range tools {
		version, err := probe(ctx, t)
		statuses = append(statuses, ToolStatus{Tool: t, Version: version, Err: err})
	}
	return statuses
}

// probe returns the first line the tool prints for its version command.
func probe(ctx context.Context, t Tool) (string, error) {
	// #nosec G204 - tool paths come from configuration, not user input
	cmd := exec.CommandContext(ctx, t.Path, t.VersionArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s probe cancelled: %w", t.Name, ctx.Err())
		}
		return "", fmt.Errorf("%s unavailable: %w: %s", t.Name, err, strings.TrimSpace(stderr.String()))
	}

	line, _, _ := strings.Cut(strings.TrimSpace(stdout.String()), "\n")
	return strings.TrimSpace(line), nil
}
