package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/cdgi-bus-assistant/agent/contract"
)

// Registry maps tool names to invokable implementations.
type Registry struct {
	tools map[string]einotool.InvokableTool
	order []string
}

var _ contractx.ToolRegistry = (*Registry)(nil)

func NewRegistry(ctx context.Context, tools ...einotool.InvokableTool) (*Registry, error) {
	r := &Registry{tools: make(map[string]einotool.InvokableTool, len(tools))}
	for _, t := range tools {
		if t == nil {
			continue
		}
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: tool info: %v", contractx.ErrValidation, err)
		}
		name := strings.TrimSpace(info.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
		}
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("%w: duplicate tool=%s", contractx.ErrValidation, name)
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return r, nil
}

// BuildDefault returns the registry holding the bus stop lookup.
func BuildDefault(ctx context.Context, finder contractx.StopFinder) (*Registry, error) {
	return NewRegistry(ctx, NewFindBusForStop(finder))
}

func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		info, err := r.tools[name].Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: tool info for %s: %v", contractx.ErrValidation, name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (r *Registry) Lookup(name string) (einotool.InvokableTool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.tools[strings.TrimSpace(name)]
	return t, ok
}

func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}
