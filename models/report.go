package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Report is the snapshot a Manifest produces when it is saved
type Report struct {
	ID      string     `json:"id"`
	Start   time.Time  `json:"start"`
	End     time.Time  `json:"end"`
	Inputs  []string   `json:"inputs"`
	Outputs []string   `json:"outputs"`
	Git     GitStatus  `json:"git"`
	Uname   Platform   `json:"uname"`
	Runtime RuntimeEnv `json:"runtime"`
}

// GitStatus is the version-control state of the working tree.
//
// It is either a success value (Branch, Commit, Dirty, Remotes) or a failure
// value carrying only Error. The failure value encodes as {"error": "..."}.
type GitStatus struct {
	Branch  string              `json:"branch,omitempty"`
	Commit  string              `json:"commit,omitempty"`
	Dirty   bool                `json:"dirty,omitempty"`
	Remotes map[string][]string `json:"remotes,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// GitFailure returns the failure variant of GitStatus
func GitFailure(format string, args ...any) GitStatus {
	return GitStatus{Error: fmt.Sprintf(format, args...)}
}

// OK reports whether the status describes a repository
func (g GitStatus) OK() bool {
	return g.Error == ""
}

func (g GitStatus) MarshalJSON() ([]byte, error) {
	if !g.OK() {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{g.Error})
	}

	remotes := make(map[string][]string, len(g.Remotes))
	for name, urls := range g.Remotes {
		if urls == nil {
			urls = []string{}
		}
		remotes[name] = urls
	}

	return json.Marshal(struct {
		Branch  string              `json:"branch"`
		Commit  string              `json:"commit"`
		Dirty   bool                `json:"dirty"`
		Remotes map[string][]string `json:"remotes"`
	}{g.Branch, g.Commit, g.Dirty, remotes})
}

// Platform holds the host identification reported by the operating system
type Platform struct {
	System    string `json:"system"`
	Release   string `json:"release"`
	Version   string `json:"version"`
	Machine   string `json:"machine"`
	Processor string `json:"processor"`
}

// RuntimeEnv describes the hosting Go runtime and the modules linked into the binary
type RuntimeEnv struct {
	Version  string            `json:"version"`
	Packages map[string]string `json:"packages"`
}

func (r RuntimeEnv) MarshalJSON() ([]byte, error) {
	packages := r.Packages
	if packages == nil {
		packages = map[string]string{}
	}
	return json.Marshal(struct {
		Version  string            `json:"version"`
		Packages map[string]string `json:"packages"`
	}{r.Version, packages})
}

// Encode renders the report as indented JSON
func Encode(report *Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

// AsMap converts the report into its generic JSON shape (maps, slices, strings)
func AsMap(report *Report) (map[string]any, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return out, nil
}
