package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule is one configured rule of a use case.
type Rule struct {
	Kind   Kind
	Name   string // type as written in the file
	Params Params
}

// UseCase is a named scenario and its ordered rules. Use cases are
// immutable once loaded.
type UseCase struct {
	ID       string
	Metadata map[string]any
	Rules    []Rule
}

type useCaseFile struct {
	Metadata map[string]any   `yaml:"metadata"`
	Rules    []map[string]any `yaml:"rules"`
}

// ParseUseCase decodes one use-case document. fallbackID is used when the
// metadata carries no id.
func ParseUseCase(data []byte, fallbackID string) (UseCase, error) {
	var f useCaseFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return UseCase{}, fmt.Errorf("parse use case: %w", err)
	}
	uc := UseCase{Metadata: f.Metadata}
	if uc.Metadata == nil {
		uc.Metadata = map[string]any{}
	}
	if id, ok := uc.Metadata["id"]; ok && id != nil && fmt.Sprint(id) != "" {
		uc.ID = fmt.Sprint(id)
	} else {
		uc.ID = fallbackID
		uc.Metadata["id"] = fallbackID
	}
	if uc.ID == "" {
		return UseCase{}, fmt.Errorf("use case has no id")
	}

	for i, raw := range f.Rules {
		params := make(Params, len(raw))
		var name string
		for k, v := range raw {
			switch k {
			case "type", "kind":
				if name == "" || k == "type" {
					name = fmt.Sprint(v)
				}
			default:
				params[k] = v
			}
		}
		kind := ParseKind(name)
		if kind == KindUnknown {
			diagf("use case %s: rule %d has unknown type %q, ignoring", uc.ID, i, name)
		}
		uc.Rules = append(uc.Rules, Rule{Kind: kind, Name: name, Params: params})
	}
	return uc, nil
}

// LoadUseCase reads one use-case file; its stem is the fallback id.
func LoadUseCase(path string) (UseCase, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return UseCase{}, fmt.Errorf("read use case: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	uc, err := ParseUseCase(data, stem)
	if err != nil {
		return UseCase{}, fmt.Errorf("%s: %w", path, err)
	}
	return uc, nil
}

// LoadUseCases loads every *.yaml file in dir. The result is sorted by id;
// a later file with a duplicate id replaces the earlier one.
func LoadUseCases(dir string) ([]UseCase, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	byID := make(map[string]UseCase, len(paths))
	for _, p := range paths {
		uc, err := LoadUseCase(p)
		if err != nil {
			return nil, err
		}
		if _, dup := byID[uc.ID]; dup {
			opsf("use case %s redefined by %s", uc.ID, p)
		}
		byID[uc.ID] = uc
	}

	out := make([]UseCase, 0, len(byID))
	for _, uc := range byID {
		out = append(out, uc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	diagf("loaded %d use cases from %s", len(out), dir)
	return out, nil
}
