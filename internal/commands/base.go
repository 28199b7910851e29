// Package commands provides the built-in command kinds: raw shell scripts,
// directory changes, file readers and chains.
package commands

import (
	"fmt"
	"strings"

	"github.com/doeshing/shexec/internal/application/execution"
	"github.com/doeshing/shexec/internal/domain"
)

// Factory creates a fresh command of one kind.
type Factory func() execution.Command

// Defaults maps every creatable kind name to its factory. Chains are built
// from other commands with Then and have no factory.
func Defaults() map[string]Factory {
	return map[string]Factory{
		NameShell: func() execution.Command { return &Shell{} },
		NameCd:    func() execution.Command { return &ChangeDirectory{} },
		NameCat:   func() execution.Command { return &Cat{} },
		NameHead:  func() execution.Command { return &Head{} },
		NameTail:  func() execution.Command { return &Tail{} },
		NameEnv:   func() execution.Command { return &Env{} },
	}
}

// Kind names.
const (
	NameShell = "shell"
	NameCd    = "cd"
	NameCat   = "cat"
	NameHead  = "head"
	NameTail  = "tail"
	NameEnv   = "env"
	NameChain = "chain"
)

const defaultLines = 10

// inputBytes feeds the previous stage's stdout to the next stage's stdin.
func inputBytes(input *domain.CommandResult) []byte {
	if input == nil || input.RawOutput == "" {
		return nil
	}
	return []byte(input.RawOutput)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneEnv(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func validateFiles(files []string, errs map[string]string) {
	for i, f := range files {
		if strings.TrimSpace(f) == "" {
			errs[fmt.Sprintf("files[%d]", i)] = "must not be empty"
		}
	}
}
