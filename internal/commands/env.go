package commands

import (
	"context"
	"strings"

	"github.com/doeshing/shexec/internal/application/execution"
	"github.com/doeshing/shexec/internal/domain"
)

// Env prints the backend's environment. Output is parsed into
// {key, value, raw_line} records directly instead of going through the
// normalizer, since KEY=VALUE is not a colon pair.
type Env struct{}

func (e *Env) Name() string { return NameEnv }

func (e *Env) Build() []string { return []string{"env"} }

func (e *Env) Validate() map[string]string { return map[string]string{} }

func (e *Env) Execute(ctx context.Context, ec *execution.Context, _ *domain.CommandResult) domain.CommandResult {
	res := execution.ToResult(ec.Run(ctx, e.Build(), execution.RunOptions{}))
	if !res.Success {
		return res
	}
	return res.WithStructured(parseEnv(res.RawOutput))
}

func (e *Env) Clone() execution.Command { return &Env{} }

func (e *Env) Traits() execution.Traits {
	return execution.Traits{Structured: true, Cacheable: true}
}

func parseEnv(out string) []domain.Record {
	var records []domain.Record
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			records = append(records, domain.Record{domain.FieldRawLine: line})
			continue
		}
		records = append(records, domain.Record{"key": key, "value": value, domain.FieldRawLine: line})
	}
	return records
}
