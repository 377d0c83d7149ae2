package usecase

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"logstream-srv/internal/model"
	ws "logstream-srv/internal/websocket"
)

// logFilter narrows log traffic for one connection. Empty sets match
// everything; the CEL program, when present, must also evaluate to true.
type logFilter struct {
	levels  map[string]struct{}
	sources map[string]struct{}
	prog    cel.Program
}

var filterEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("level", cel.StringType),
		cel.Variable("message", cel.StringType),
		cel.Variable("source", cel.StringType),
		cel.Variable("ts", cel.TimestampType),
		cel.Variable("metadata", cel.MapType(cel.StringType, cel.DynType)),
	)
})

// newLogFilter compiles req. It returns nil when req filters nothing.
func newLogFilter(req ws.SetFiltersRequest) (*logFilter, error) {
	f := &logFilter{}
	for _, l := range req.Levels {
		if f.levels == nil {
			f.levels = make(map[string]struct{}, len(req.Levels))
		}
		f.levels[string(model.ParseLevel(l))] = struct{}{}
	}
	for _, s := range req.Sources {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if f.sources == nil {
			f.sources = make(map[string]struct{}, len(req.Sources))
		}
		f.sources[s] = struct{}{}
	}

	if expr := strings.TrimSpace(req.Expression); expr != "" {
		prog, err := compileFilter(expr)
		if err != nil {
			return nil, err
		}
		f.prog = prog
	}

	if f.levels == nil && f.sources == nil && f.prog == nil {
		return nil, nil
	}
	return f, nil
}

func compileFilter(expr string) (cel.Program, error) {
	env, err := filterEnv()
	if err != nil {
		return nil, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ws.ErrInvalidFilter, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: expression must evaluate to bool, got %s", ws.ErrInvalidFilter, ast.OutputType())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ws.ErrInvalidFilter, err)
	}
	return prog, nil
}

func (f *logFilter) match(e ws.LogEntryData) bool {
	if f.levels != nil {
		if _, ok := f.levels[e.Level]; !ok {
			return false
		}
	}
	if f.sources != nil {
		if _, ok := f.sources[e.Source]; !ok {
			return false
		}
	}
	if f.prog == nil {
		return true
	}

	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"level":    e.Level,
		"message":  e.Message,
		"source":   e.Source,
		"ts":       e.Timestamp,
		"metadata": metadata,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

func (f *logFilter) apply(entries []ws.LogEntryData) []ws.LogEntryData {
	kept := make([]ws.LogEntryData, 0, len(entries))
	for _, e := range entries {
		if f.match(e) {
			kept = append(kept, e)
		}
	}
	return kept
}
