// Package toggle switches bot features on and off per group.
//
// Features are addressed by key ("tarot") or by their display name
// ("塔罗牌"). Most features start enabled and are switched off explicitly;
// a feature marked DefaultOff (role-play, 摩诃) starts disabled and has to be
// switched on. The toggle feature itself is not registered and therefore
// can never be disabled.
//
// State is one record in a [store.Store], read once and then served from
// memory. Every change goes through [store.Store.Update] and refreshes the
// in-memory copy.
package toggle

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/store"
)

// Feature is a switchable bot feature.
type Feature struct {
	Key        string
	Name       string
	DefaultOff bool
}

// Registry lists the switchable features in display order.
var Registry = []Feature{
	{Key: "tarot", Name: "塔罗牌"},
	{Key: "quotes", Name: "群友语录"},
	{Key: "symmetric", Name: "对称图片"},
	{Key: "wolfram", Name: "数学求解"},
	{Key: "roleplay", Name: "角色扮演", DefaultOff: true},
	{Key: "mohe", Name: "摩诃", DefaultOff: true},
}

// SelfKey is the key of the toggle commands, which are always enabled.
const SelfKey = "toggle"

// storeKey is the record holding all groups' switches.
const storeKey = "toggle/state"

// Lookup resolves a feature by key or display name.
func Lookup(name string) (Feature, bool) {
	name = strings.TrimSpace(name)
	for _, f := range Registry {
		if f.Key == name || f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}

// Names returns the display names joined with 、.
func Names() string {
	names := make([]string, len(Registry))
	for i, f := range Registry {
		names[i] = f.Name
	}
	return strings.Join(names, "、")
}

// state is the persisted record. Disabled lists default-on features that
// were switched off, Enabled lists default-off features that were switched
// on, both keyed by group ID.
type state struct {
	Disabled map[string][]string `json:"disabled"`
	Enabled  map[string][]string `json:"enabled,omitempty"`
}

func (s *state) isEnabled(group string, f Feature) bool {
	if f.DefaultOff {
		return slices.Contains(s.Enabled[group], f.Key)
	}
	return !slices.Contains(s.Disabled[group], f.Key)
}

// set records f as enabled or disabled in group. It returns false if f
// was already in that state.
func (s *state) set(group string, f Feature, enabled bool) bool {
	if s.isEnabled(group, f) == enabled {
		return false
	}
	if s.Disabled == nil {
		s.Disabled = map[string][]string{}
	}
	if s.Enabled == nil {
		s.Enabled = map[string][]string{}
	}

	list := s.Disabled
	add := !enabled
	if f.DefaultOff {
		list = s.Enabled
		add = enabled
	}
	if add {
		list[group] = append(list[group], f.Key)
		return true
	}
	keys := slices.DeleteFunc(list[group], func(k string) bool { return k == f.Key })
	if len(keys) == 0 {
		delete(list, group)
	} else {
		list[group] = keys
	}
	return true
}

func (s *state) clone() *state {
	c := &state{Disabled: map[string][]string{}, Enabled: map[string][]string{}}
	for g, keys := range s.Disabled {
		c.Disabled[g] = slices.Clone(keys)
	}
	for g, keys := range s.Enabled {
		c.Enabled[g] = slices.Clone(keys)
	}
	return c
}

// Status is one feature's state in a group.
type Status struct {
	Feature
	Enabled bool
}

// Toggles answers and changes per-group feature switches. It is safe for
// concurrent use.
type Toggles struct {
	store store.Store

	mu     sync.RWMutex
	loaded *state
}

// New returns Toggles persisted in s.
func New(s store.Store) *Toggles {
	return &Toggles{store: s}
}

func (t *Toggles) current(ctx context.Context) (*state, error) {
	t.mu.RLock()
	st := t.loaded
	t.mu.RUnlock()
	if st != nil {
		return st, nil
	}

	var loaded state
	if _, err := t.store.Get(ctx, storeKey, &loaded); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.loaded == nil {
		t.loaded = &loaded
	}
	return t.loaded, nil
}

// IsEnabled reports whether the feature with key is enabled in group.
// Unknown keys and [SelfKey] are always enabled. Store errors fall back to
// the feature's default.
func (t *Toggles) IsEnabled(ctx context.Context, group, key string) bool {
	f, ok := Lookup(key)
	if !ok {
		return true
	}
	st, err := t.current(ctx)
	if err != nil {
		return !f.DefaultOff
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return st.isEnabled(group, f)
}

// Status lists every registered feature with its state in group.
func (t *Toggles) Status(ctx context.Context, group string) ([]Status, error) {
	st, err := t.current(ctx)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Status, len(Registry))
	for i, f := range Registry {
		out[i] = Status{Feature: f, Enabled: st.isEnabled(group, f)}
	}
	return out, nil
}

// Enable switches the named feature on in group.
func (t *Toggles) Enable(ctx context.Context, group, name string) (Feature, error) {
	return t.set(ctx, group, name, true)
}

// Disable switches the named feature off in group.
func (t *Toggles) Disable(ctx context.Context, group, name string) (Feature, error) {
	return t.set(ctx, group, name, false)
}

func (t *Toggles) set(ctx context.Context, group, name string, enabled bool) (Feature, error) {
	if group == "" {
		return Feature{}, errors.New(errors.ErrCodeInvalidGroup, "feature switches need a group")
	}
	f, ok := Lookup(name)
	if !ok {
		return Feature{}, errors.New(errors.ErrCodeInvalidFeature, "未知功能「%s」，可用功能：%s", name, Names())
	}

	var st state
	changed := false
	err := t.store.Update(ctx, storeKey, &st, func(bool) error {
		changed = st.set(group, f, enabled)
		if !changed {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return f, err
	}

	t.mu.Lock()
	t.loaded = st.clone()
	t.mu.Unlock()

	if !changed {
		word := "禁用"
		if enabled {
			word = "启用"
		}
		return f, errors.New(errors.ErrCodeAlreadyExists, "功能「%s」在本群已经是%s状态", f.Name, word)
	}
	return f, nil
}
